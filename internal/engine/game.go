package engine

import (
	"encoding/json"
	"time"
)

// Phase is the game lifecycle state.
type Phase string

const (
	PhaseWaiting  Phase = "waiting_for_opponent"
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseGameOver Phase = "game_over"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseWaiting, PhaseSetup, PhasePlaying, PhaseGameOver:
		return true
	}
	return false
}

// Status is the derived game outcome.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWhiteWins  Status = "white_wins"
	StatusBlackWins  Status = "black_wins"
	StatusDraw       Status = "draw"
)

func winStatus(s Side) Status {
	if s == SideWhite {
		return StatusWhiteWins
	}
	return StatusBlackWins
}

// InitialBudget is the draft point allowance per side: the exact cost of a
// classic non-king army.
const InitialBudget = 39

// Options configure a new game.
type Options struct {
	FogOfWar      bool `json:"fog_of_war"`
	MoveTimeLimit int  `json:"move_time_limit"` // seconds per move, 0 = unlimited
}

// Game is the authoritative session aggregate and, serialized, the snapshot
// handed to the persistence adapter. Hydrating a snapshot and emitting it
// again is byte-stable.
type Game struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`

	Board       Board    `json:"board"`
	Phase       Phase    `json:"phase"`
	Turn        Side     `json:"current_turn"`
	MoveHistory []string `json:"move_history"`
	Status      Status   `json:"game_status"`

	WhiteBudget    int  `json:"white_budget"`
	BlackBudget    int  `json:"black_budget"`
	WhiteSetupDone bool `json:"white_setup_complete"`
	BlackSetupDone bool `json:"black_setup_complete"`

	FogOfWar      bool `json:"fog_of_war_enabled"`
	MoveTimeLimit int  `json:"move_time_limit"`
	WhiteTime     int  `json:"time_remaining_white"`
	BlackTime     int  `json:"time_remaining_black"`

	WhiteID   string `json:"white_id,omitempty"`
	WhiteName string `json:"white_name,omitempty"`
	BlackID   string `json:"black_id,omitempty"`
	BlackName string `json:"black_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGame creates a session waiting for an opponent. The white seat belongs
// to the creator; the board stays empty until setup begins.
func NewGame(id string, opts Options) *Game {
	return &Game{
		ID:            id,
		Phase:         PhaseWaiting,
		Turn:          SideWhite,
		MoveHistory:   []string{},
		Status:        StatusInProgress,
		WhiteBudget:   InitialBudget,
		BlackBudget:   InitialBudget,
		FogOfWar:      opts.FogOfWar,
		MoveTimeLimit: opts.MoveTimeLimit,
		WhiteTime:     opts.MoveTimeLimit,
		BlackTime:     opts.MoveTimeLimit,
	}
}

// AttachOpponent moves the game from waiting to setup. Both kings are
// force-placed on their home squares; White drafts first.
func (g *Game) AttachOpponent() error {
	if g.Phase != PhaseWaiting {
		return ErrWrongPhase
	}
	g.Phase = PhaseSetup
	g.Turn = SideWhite
	g.ensureKing(SideWhite)
	g.ensureKing(SideBlack)
	return nil
}

func (g *Game) budget(s Side) *int {
	if s == SideWhite {
		return &g.WhiteBudget
	}
	return &g.BlackBudget
}

func (g *Game) setupDone(s Side) *bool {
	if s == SideWhite {
		return &g.WhiteSetupDone
	}
	return &g.BlackSetupDone
}

func (g *Game) timeLeft(s Side) *int {
	if s == SideWhite {
		return &g.WhiteTime
	}
	return &g.BlackTime
}

// Seat maps a user id to its side, or "" when the user is not a player.
func (g *Game) Seat(userID string) Side {
	switch {
	case userID != "" && userID == g.WhiteID:
		return SideWhite
	case userID != "" && userID == g.BlackID:
		return SideBlack
	}
	return ""
}

// Visibility returns a side's current observation grid.
func (g *Game) Visibility(s Side) Grid {
	return VisibleSquares(&g.Board, s, g.FogOfWar)
}

// MovesFrom computes the legal destination set for the piece on from, as
// seen by its owner. Callers use it for move preview; Move revalidates.
func (g *Game) MovesFrom(from Position) MoveSet {
	pc := g.Board.At(from)
	if pc == nil {
		return MoveSet{}
	}
	return LegalMoves(&g.Board, from, g.FogOfWar, g.Visibility(pc.Side))
}

// MoveResult reports what a playing-phase move actually did. Under fog the
// landing square can differ from the requested destination.
type MoveResult struct {
	From     Position `json:"from"`
	To       Position `json:"to"`     // requested destination
	Landed   Position `json:"landed"` // actual landing square
	Captured *Piece   `json:"captured,omitempty"`
	Probe    bool     `json:"probe"`          // destination was fogged
	Slip     bool     `json:"slip,omitempty"` // pawn diagonal that found no victim
	Notation string   `json:"notation"`
	GameOver bool     `json:"game_over"`
	Winner   Side     `json:"winner,omitempty"`
}

// Move validates and applies one playing-phase move for side. Fogged
// destinations are resolved by ray-tracing: a sliding piece stops at (and
// captures) the first occupied square along the path even short of the
// intended destination, a non-slider lands exactly where it aimed. A pawn
// aimed diagonally at an empty fogged square still moves there without
// capturing.
func (g *Game) Move(side Side, from, to Position) (MoveResult, error) {
	var res MoveResult
	switch g.Phase {
	case PhaseGameOver:
		return res, ErrGameOver
	case PhasePlaying:
	default:
		return res, ErrWrongPhase
	}
	if !side.Valid() || side != g.Turn {
		return res, ErrNotYourTurn
	}
	if !from.InBounds() || !to.InBounds() {
		return res, ErrBadSquare
	}
	pc := g.Board.At(from)
	if pc == nil {
		return res, ErrNoPiece
	}
	if pc.Side != side {
		return res, ErrNotYourPiece
	}

	legal := LegalMoves(&g.Board, from, g.FogOfWar, g.Visibility(side))
	res = MoveResult{From: from, To: to, Landed: to}
	switch {
	case legal.HasVisible(to):
	case g.FogOfWar && legal.HasFogged(to):
		res.Probe = true
	default:
		return MoveResult{}, ErrIllegalMove
	}

	if res.Probe {
		g.resolveProbe(pc, &res)
	}

	if victim := g.Board.At(res.Landed); victim != nil {
		// Own pieces are always inside their own visibility halo, so a blind
		// landing square can only hold an opponent.
		res.Captured = victim
	}

	g.Board.clear(from)
	g.Board.set(res.Landed, pc)
	res.Notation = MoveNotation(from, res.Landed)
	g.MoveHistory = append(g.MoveHistory, res.Notation)

	if res.Captured != nil && res.Captured.Kind == KindKing {
		res.GameOver = true
		res.Winner = side
		g.finish(winStatus(side))
		return res, nil
	}

	g.toggleTurn()
	return res, nil
}

// resolveProbe turns an intended fogged destination into the actual landing
// square.
func (g *Game) resolveProbe(pc *Piece, res *MoveResult) {
	if pc.Kind.sliding() {
		dr := sign(res.To.Row - res.From.Row)
		dc := sign(res.To.Col - res.From.Col)
		p := res.From
		for {
			p = Position{Row: p.Row + dr, Col: p.Col + dc}
			if g.Board.At(p) != nil || p == res.To {
				res.Landed = p
				return
			}
		}
	}
	// Non-sliders land exactly where they aimed. A diagonal pawn probe that
	// finds nothing still completes as a quiet diagonal step.
	res.Landed = res.To
	if pc.Kind == KindPawn && res.To.Col != res.From.Col && g.Board.At(res.To) == nil {
		res.Slip = true
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// toggleTurn hands the move to the other side and grants it a full clock.
func (g *Game) toggleTurn() {
	g.Turn = g.Turn.Opponent()
	if g.MoveTimeLimit > 0 {
		*g.timeLeft(g.Turn) = g.MoveTimeLimit
	}
}

func (g *Game) finish(st Status) {
	g.Phase = PhaseGameOver
	g.Status = st
}

// Resign ends the game in the opponent's favor. Allowed from setup onward.
func (g *Game) Resign(side Side) error {
	if !side.Valid() {
		return ErrNotYourPiece
	}
	switch g.Phase {
	case PhaseSetup, PhasePlaying:
		g.finish(winStatus(side.Opponent()))
		return nil
	case PhaseGameOver:
		return ErrGameOver
	default:
		return ErrWrongPhase
	}
}

// TickResult reports one second of clock movement.
type TickResult struct {
	Ticked  bool `json:"ticked"`
	Expired bool `json:"expired"`
	// ExpiredSide is set when a clock ran out this tick.
	ExpiredSide Side `json:"expired_side,omitempty"`
}

// TickSecond advances the active side's countdown by one wall-clock second.
// On expiry the turn is force-toggled without a move and both allowances
// return to the full limit; running out of time never ends the game.
func (g *Game) TickSecond() TickResult {
	if g.Phase != PhasePlaying || g.MoveTimeLimit <= 0 {
		return TickResult{}
	}
	t := g.timeLeft(g.Turn)
	*t--
	if *t > 0 {
		return TickResult{Ticked: true}
	}
	expired := g.Turn
	*t = g.MoveTimeLimit // allowance for their next turn
	g.toggleTurn()
	return TickResult{Ticked: true, Expired: true, ExpiredSide: expired}
}

// Clone deep-copies the aggregate. Board cells are immutable pieces, so the
// array copy suffices; slices are reallocated.
func (g *Game) Clone() *Game {
	cp := *g
	cp.MoveHistory = append([]string(nil), g.MoveHistory...)
	return &cp
}

// ViewFor redacts the snapshot for one seat under fog: pieces on squares
// the seat cannot observe are blanked. Once the game is over, or when fog
// is off, the full board is returned. The authoritative snapshot is never
// redacted; this view exists for presentation.
func (g *Game) ViewFor(side Side) *Game {
	cp := g.Clone()
	if !g.FogOfWar || !side.Valid() || g.Phase == PhaseGameOver {
		return cp
	}
	vis := g.Visibility(side)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if !vis[r][c] {
				cp.Board[r][c] = nil
			}
		}
	}
	return cp
}

// Snapshot emits the canonical serialized form of the aggregate.
func (g *Game) Snapshot() ([]byte, error) {
	return json.Marshal(g)
}

// Hydrate rebuilds a game from a snapshot, replacing state wholesale. A
// malformed snapshot is fatal to the attempt: no partial state escapes.
func Hydrate(raw []byte) (*Game, error) {
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, snapshotErr("decode: %v", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if g.MoveHistory == nil {
		g.MoveHistory = []string{}
	}
	return &g, nil
}

// Validate checks the structural invariants a snapshot must satisfy.
func (g *Game) Validate() error {
	if !g.Phase.Valid() {
		return snapshotErr("phase %q", g.Phase)
	}
	if !g.Turn.Valid() {
		return snapshotErr("current_turn %q", g.Turn)
	}
	switch g.Status {
	case StatusInProgress, StatusWhiteWins, StatusBlackWins, StatusDraw:
	default:
		return snapshotErr("game_status %q", g.Status)
	}
	if g.WhiteBudget < 0 || g.WhiteBudget > InitialBudget ||
		g.BlackBudget < 0 || g.BlackBudget > InitialBudget {
		return snapshotErr("budget out of range (%d/%d)", g.WhiteBudget, g.BlackBudget)
	}
	if g.MoveTimeLimit < 0 || g.WhiteTime < 0 || g.BlackTime < 0 {
		return snapshotErr("negative clock")
	}
	kings := map[Side]int{}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			pc := g.Board[r][c]
			if pc == nil {
				continue
			}
			if !pc.Kind.Valid() || !pc.Side.Valid() {
				return snapshotErr("bad piece %+v at %s", *pc, Position{Row: r, Col: c})
			}
			if pc.Kind == KindKing {
				kings[pc.Side]++
			}
		}
	}
	for side, n := range kings {
		if n > 1 {
			return snapshotErr("%s has %d kings", side, n)
		}
	}
	return nil
}
