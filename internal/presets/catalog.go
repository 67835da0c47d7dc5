// Package presets loads the built-in draft layouts from an embedded YAML
// catalog, with an optional override directory for operators who want to
// ship their own armies.
package presets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/larkvale/budgetchess-server/internal/engine"
)

//go:embed presets.yaml
var defaultFiles embed.FS

type presetFile struct {
	Presets []presetEntry `yaml:"presets"`
}

type presetEntry struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Pieces      []pieceEntry `yaml:"pieces"`
}

type pieceEntry struct {
	Kind   string `yaml:"kind"`
	Square string `yaml:"square"`
}

// Catalog is an immutable name -> layout lookup built at startup.
type Catalog struct {
	layouts map[string]engine.Layout
	order   []string
}

// New loads the embedded catalog and then applies *.yaml overrides from dir
// if provided. Overrides may add presets or replace built-ins by name.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{layouts: make(map[string]engine.Layout)}

	raw, err := fs.ReadFile(defaultFiles, "presets.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded presets: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read preset dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.applyYAML(b); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return nil
}

func (c *Catalog) applyYAML(raw []byte) error {
	var f presetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse presets: %w", err)
	}
	for _, e := range f.Presets {
		l, err := buildLayout(e)
		if err != nil {
			return err
		}
		if _, exists := c.layouts[l.Name]; !exists {
			c.order = append(c.order, l.Name)
		}
		c.layouts[l.Name] = l
	}
	return nil
}

func buildLayout(e presetEntry) (engine.Layout, error) {
	name := strings.TrimSpace(strings.ToLower(e.Name))
	if name == "" {
		return engine.Layout{}, fmt.Errorf("preset with empty name")
	}
	l := engine.Layout{Name: name}
	cost := 0
	hasKing := false
	taken := map[engine.Position]bool{}
	for _, p := range e.Pieces {
		kind := engine.Kind(strings.TrimSpace(strings.ToLower(p.Kind)))
		if !kind.Valid() {
			return engine.Layout{}, fmt.Errorf("preset %q: unknown kind %q", name, p.Kind)
		}
		sq, err := engine.ParsePosition(p.Square)
		if err != nil {
			return engine.Layout{}, fmt.Errorf("preset %q: %w", name, err)
		}
		if !engine.InZone(engine.SideWhite, sq) {
			return engine.Layout{}, fmt.Errorf("preset %q: %s outside the placement zone", name, sq)
		}
		if taken[sq] {
			return engine.Layout{}, fmt.Errorf("preset %q: %s placed twice", name, sq)
		}
		taken[sq] = true
		if kind == engine.KindKing {
			hasKing = true
		}
		cost += engine.Cost(kind)
		l.Placements = append(l.Placements, engine.Placement{Kind: kind, Square: sq})
	}
	if cost > engine.InitialBudget {
		return engine.Layout{}, fmt.Errorf("preset %q costs %d, budget is %d", name, cost, engine.InitialBudget)
	}
	// Kingless presets rely on the forced king; its home square must be free.
	if !hasKing && taken[engine.KingHome(engine.SideWhite)] {
		return engine.Layout{}, fmt.Errorf("preset %q: %s occupied but no king placed", name, engine.KingHome(engine.SideWhite))
	}
	return l, nil
}

// Get returns a layout by name.
func (c *Catalog) Get(name string) (engine.Layout, bool) {
	l, ok := c.layouts[strings.TrimSpace(strings.ToLower(name))]
	return l, ok
}

// Names lists the catalog in load order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}
