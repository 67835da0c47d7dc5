package presets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/larkvale/budgetchess-server/internal/engine"
)

func TestEmbeddedCatalog(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("load embedded catalog: %v", err)
	}
	want := []string{"classic", "legion", "cavalry"}
	got := c.Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v", got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("names = %v, want %v", got, want)
		}
	}

	if _, ok := c.Get("CLASSIC"); !ok {
		t.Fatalf("lookup is not case-insensitive")
	}
	if _, ok := c.Get("nonesuch"); ok {
		t.Fatalf("unknown preset found")
	}
}

func TestClassicSpendsFullBudget(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	classic, ok := c.Get("classic")
	if !ok {
		t.Fatalf("classic preset missing")
	}

	g := engine.NewGame("preset-test", engine.Options{})
	if err := g.AttachOpponent(); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := g.ApplyLayout(engine.SideWhite, classic); err != nil {
		t.Fatalf("apply classic: %v", err)
	}
	if g.WhiteBudget != 0 {
		t.Fatalf("white budget after classic = %d, want 0", g.WhiteBudget)
	}
	if spent := g.Board.SpentPoints(engine.SideWhite); spent != engine.InitialBudget {
		t.Fatalf("spent = %d, want %d", spent, engine.InitialBudget)
	}
}

func TestEveryPresetAppliesForBothSides(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	for _, name := range c.Names() {
		l, _ := c.Get(name)
		g := engine.NewGame("preset-"+name, engine.Options{})
		if err := g.AttachOpponent(); err != nil {
			t.Fatalf("attach: %v", err)
		}
		if err := g.ApplyLayout(engine.SideWhite, l); err != nil {
			t.Fatalf("preset %q for white: %v", name, err)
		}
		if err := g.FinishSetup(engine.SideWhite); err != nil {
			t.Fatalf("preset %q finish white: %v", name, err)
		}
		if err := g.ApplyLayout(engine.SideBlack, l); err != nil {
			t.Fatalf("preset %q for black: %v", name, err)
		}
		if err := g.FinishSetup(engine.SideBlack); err != nil {
			t.Fatalf("preset %q finish black: %v", name, err)
		}
		if g.Phase != engine.PhasePlaying {
			t.Fatalf("preset %q: phase = %s", name, g.Phase)
		}
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := `presets:
  - name: classic
    pieces:
      - { kind: king, square: e1 }
      - { kind: queen, square: d1 }
  - name: minimal
    pieces:
      - { kind: king, square: e1 }
      - { kind: pawn, square: e2 }
`
	if err := os.WriteFile(filepath.Join(dir, "10-custom.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("load with overrides: %v", err)
	}
	classic, ok := c.Get("classic")
	if !ok || len(classic.Placements) != 2 {
		t.Fatalf("override did not replace classic: %+v", classic)
	}
	if _, ok := c.Get("minimal"); !ok {
		t.Fatalf("override did not add minimal")
	}
	// Built-ins not named by the override survive.
	if _, ok := c.Get("legion"); !ok {
		t.Fatalf("legion lost during override")
	}
}

func TestRejectsBrokenOverrides(t *testing.T) {
	cases := map[string]string{
		"unknown kind": `presets:
  - name: bad
    pieces:
      - { kind: wizard, square: e1 }
`,
		"out of zone": `presets:
  - name: bad
    pieces:
      - { kind: pawn, square: e5 }
`,
		"over budget": `presets:
  - name: bad
    pieces:
      - { kind: queen, square: a1 }
      - { kind: queen, square: b1 }
      - { kind: queen, square: c1 }
      - { kind: queen, square: d1 }
      - { kind: queen, square: f1 }
`,
		"empty name": `presets:
  - name: ""
    pieces: []
`,
		"duplicate square": `presets:
  - name: bad
    pieces:
      - { kind: pawn, square: a2 }
      - { kind: rook, square: a2 }
`,
		"kingless on king home": `presets:
  - name: bad
    pieces:
      - { kind: rook, square: e1 }
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := New(dir); err == nil {
				t.Fatalf("broken override accepted")
			}
		})
	}
}
