package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/larkvale/budgetchess-server/internal/engine"
	"github.com/larkvale/budgetchess-server/internal/presets"
)

func newTestManager(t *testing.T, maxOpen int) *Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	catalog, err := presets.New("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	mgr, err := NewManager("redis://"+mr.Addr(), catalog, time.Hour, maxOpen)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func createJoined(t *testing.T, mgr *Manager, opts engine.Options) *engine.Game {
	t.Helper()
	ctx := context.Background()
	g, code, err := mgr.Create(ctx, "alice", "Alice", opts)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	g, err = mgr.Join(ctx, code, "bob", "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	return g
}

func sq(t *testing.T, s string) engine.Position {
	t.Helper()
	pos, err := engine.ParsePosition(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return pos
}

func TestCreateAndJoin(t *testing.T) {
	mgr := newTestManager(t, 10)
	ctx := context.Background()

	g, code, err := mgr.Create(ctx, "alice", "Alice", engine.Options{FogOfWar: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code = %q", code)
	}
	if g.Phase != engine.PhaseWaiting || g.WhiteID != "alice" {
		t.Fatalf("created game: phase=%s white=%s", g.Phase, g.WhiteID)
	}

	byCode, err := mgr.GetByCode(ctx, code)
	if err != nil || byCode.ID != g.ID {
		t.Fatalf("get by code: %v", err)
	}

	open, err := mgr.ListOpen(ctx)
	if err != nil || len(open) != 1 {
		t.Fatalf("open games = %d, err %v", len(open), err)
	}

	joined, err := mgr.Join(ctx, code, "bob", "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Phase != engine.PhaseSetup || joined.BlackID != "bob" {
		t.Fatalf("joined game: phase=%s black=%s", joined.Phase, joined.BlackID)
	}

	open, err = mgr.ListOpen(ctx)
	if err != nil || len(open) != 0 {
		t.Fatalf("game still listed after join: %d, err %v", len(open), err)
	}

	// A seated player can rejoin with the same code.
	again, err := mgr.Join(ctx, code, "bob", "Bob")
	if err != nil || again.BlackID != "bob" {
		t.Fatalf("rejoin: %v", err)
	}

	if _, err := mgr.Join(ctx, code, "carol", "Carol"); err != ErrGameFull {
		t.Fatalf("third seat: got %v", err)
	}
	if _, err := mgr.Join(ctx, "ZZZZZZ", "dave", "Dave"); err != ErrCodeNotFound {
		t.Fatalf("bad code: got %v", err)
	}
}

func TestCreateAppliesDefaultMoveLimit(t *testing.T) {
	mgr := newTestManager(t, 10)
	mgr.SetDefaultMoveLimit(30)
	ctx := context.Background()

	g, _, err := mgr.Create(ctx, "alice", "Alice", engine.Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.MoveTimeLimit != 30 || g.WhiteTime != 30 || g.BlackTime != 30 {
		t.Fatalf("default limit not applied: limit=%d clocks=%d/%d", g.MoveTimeLimit, g.WhiteTime, g.BlackTime)
	}

	// An explicit request limit wins over the default.
	g, _, err = mgr.Create(ctx, "alice", "Alice", engine.Options{MoveTimeLimit: 15})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.MoveTimeLimit != 15 {
		t.Fatalf("explicit limit overridden: %d", g.MoveTimeLimit)
	}
}

func TestCreateRespectsOpenGameCap(t *testing.T) {
	mgr := newTestManager(t, 1)
	ctx := context.Background()
	if _, _, err := mgr.Create(ctx, "alice", "Alice", engine.Options{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, _, err := mgr.Create(ctx, "bob", "Bob", engine.Options{}); err != ErrTooManyOpen {
		t.Fatalf("second create: got %v", err)
	}
}

func TestDraftFlowToPlaying(t *testing.T) {
	mgr := newTestManager(t, 10)
	ctx := context.Background()
	g := createJoined(t, mgr, engine.Options{})
	startVersion := g.Version

	if _, err := mgr.ApplyPreset(ctx, g.ID, "alice", "classic"); err != nil {
		t.Fatalf("white preset: %v", err)
	}
	if _, err := mgr.FinishSetup(ctx, g.ID, "alice"); err != nil {
		t.Fatalf("white finish: %v", err)
	}
	if _, err := mgr.ApplyPreset(ctx, g.ID, "bob", "classic"); err != nil {
		t.Fatalf("black preset: %v", err)
	}
	started, err := mgr.FinishSetup(ctx, g.ID, "bob")
	if err != nil {
		t.Fatalf("black finish: %v", err)
	}
	if started.Phase != engine.PhasePlaying || started.Turn != engine.SideWhite {
		t.Fatalf("phase=%s turn=%s", started.Phase, started.Turn)
	}
	if started.Version <= startVersion {
		t.Fatalf("version did not advance: %d -> %d", startVersion, started.Version)
	}

	moved, res, err := mgr.Move(ctx, g.ID, "alice", sq(t, "e2"), sq(t, "e4"))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.Notation != "e2-e4" || moved.Turn != engine.SideBlack {
		t.Fatalf("res=%+v turn=%s", res, moved.Turn)
	}

	reloaded, err := mgr.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.MoveHistory) != 1 || reloaded.MoveHistory[0] != "e2-e4" {
		t.Fatalf("history = %v", reloaded.MoveHistory)
	}
}

func TestRejectionsSurfaceUnchanged(t *testing.T) {
	mgr := newTestManager(t, 10)
	ctx := context.Background()
	g := createJoined(t, mgr, engine.Options{})

	if _, err := mgr.Place(ctx, g.ID, "mallory", sq(t, "e2"), engine.KindPawn); err != ErrNotParticipant {
		t.Fatalf("stranger: got %v", err)
	}
	if _, err := mgr.Place(ctx, g.ID, "bob", sq(t, "e7"), engine.KindPawn); err != engine.ErrNotYourTurn {
		t.Fatalf("off-turn: got %v", err)
	}
	if _, err := mgr.Place(ctx, g.ID, "alice", sq(t, "e5"), engine.KindPawn); err != engine.ErrOutOfZone {
		t.Fatalf("out of zone: got %v", err)
	}
	if _, err := mgr.Get(ctx, "nope"); err != ErrGameNotFound {
		t.Fatalf("missing game: got %v", err)
	}

	// The rejected operations must not have bumped the version.
	reloaded, err := mgr.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Version != g.Version {
		t.Fatalf("version moved on rejection: %d -> %d", g.Version, reloaded.Version)
	}
}

func TestSaveAndReuseLayout(t *testing.T) {
	mgr := newTestManager(t, 10)
	ctx := context.Background()
	g := createJoined(t, mgr, engine.Options{})

	if _, err := mgr.Place(ctx, g.ID, "alice", sq(t, "a2"), engine.KindPawn); err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := mgr.Place(ctx, g.ID, "alice", sq(t, "d1"), engine.KindQueen); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := mgr.SaveLayout(ctx, g.ID, "alice", "skirmish"); err != nil {
		t.Fatalf("save layout: %v", err)
	}

	if _, err := mgr.ResetSide(ctx, g.ID, "alice"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	applied, err := mgr.ApplyPreset(ctx, g.ID, "alice", "skirmish")
	if err != nil {
		t.Fatalf("apply saved layout: %v", err)
	}
	if applied.WhiteBudget != engine.InitialBudget-10 {
		t.Fatalf("budget = %d, want %d", applied.WhiteBudget, engine.InitialBudget-10)
	}

	if _, err := mgr.ApplyPreset(ctx, g.ID, "alice", "nonesuch"); err != ErrLayoutNotFound {
		t.Fatalf("unknown layout: got %v", err)
	}
}

func TestResignEndsGame(t *testing.T) {
	mgr := newTestManager(t, 10)
	ctx := context.Background()
	g := createJoined(t, mgr, engine.Options{})

	ended, err := mgr.Resign(ctx, g.ID, "bob")
	if err != nil {
		t.Fatalf("resign: %v", err)
	}
	if ended.Phase != engine.PhaseGameOver || ended.Status != engine.StatusWhiteWins {
		t.Fatalf("phase=%s status=%s", ended.Phase, ended.Status)
	}
	if _, err := mgr.Resign(ctx, g.ID, "alice"); err != engine.ErrGameOver {
		t.Fatalf("resign twice: got %v", err)
	}
}

func TestTick(t *testing.T) {
	mgr := newTestManager(t, 10)
	ctx := context.Background()
	g := createJoined(t, mgr, engine.Options{MoveTimeLimit: 5})

	// An untimed draft-phase tick is a silent no-op.
	if _, res, err := mgr.Tick(ctx, g.ID); err != nil || res.Ticked {
		t.Fatalf("draft tick: res=%+v err=%v", res, err)
	}

	if _, err := mgr.FinishSetup(ctx, g.ID, "alice"); err != nil {
		t.Fatalf("white finish: %v", err)
	}
	if _, err := mgr.FinishSetup(ctx, g.ID, "bob"); err != nil {
		t.Fatalf("black finish: %v", err)
	}

	ticked, res, err := mgr.Tick(ctx, g.ID)
	if err != nil || !res.Ticked {
		t.Fatalf("tick: res=%+v err=%v", res, err)
	}
	if ticked.WhiteTime != 4 {
		t.Fatalf("white clock = %d, want 4", ticked.WhiteTime)
	}
}

func TestSnapshotBroadcast(t *testing.T) {
	mgr := newTestManager(t, 10)
	ctx := context.Background()
	g := createJoined(t, mgr, engine.Options{})

	sub := mgr.Subscribe(ctx, g.ID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil { // subscription confirmation
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := mgr.Place(ctx, g.ID, "alice", sq(t, "a2"), engine.KindPawn); err != nil {
		t.Fatalf("place: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		snap, err := engine.Hydrate([]byte(msg.Payload))
		if err != nil {
			t.Fatalf("broadcast payload: %v", err)
		}
		if snap.ID != g.ID || snap.Board.At(sq(t, "a2")) == nil {
			t.Fatalf("broadcast snapshot stale: %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no broadcast received")
	}
}

func TestGamesByUser(t *testing.T) {
	mgr := newTestManager(t, 10)
	ctx := context.Background()
	g := createJoined(t, mgr, engine.Options{})

	for _, user := range []string{"alice", "bob"} {
		games, err := mgr.GamesByUser(ctx, user)
		if err != nil || len(games) != 1 || games[0].ID != g.ID {
			t.Fatalf("games for %s: %v err=%v", user, games, err)
		}
	}
	games, err := mgr.GamesByUser(ctx, "mallory")
	if err != nil || len(games) != 0 {
		t.Fatalf("stranger games: %v err=%v", games, err)
	}
}
