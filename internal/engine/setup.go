package engine

// Placement is one square of a draft layout, expressed in White's frame.
// Layouts are mirrored across the midline when applied for Black.
type Placement struct {
	Kind   Kind     `json:"kind"`
	Square Position `json:"square"`
}

// Layout is a reusable draft: either a built-in preset (Cost 0, recomputed
// on apply) or a saved custom layout (Cost recorded when it was saved).
type Layout struct {
	Name       string      `json:"name"`
	Cost       int         `json:"cost,omitempty"`
	Placements []Placement `json:"placements"`
}

// setupGuard rejects draft operations outside the active side's draft turn.
func (g *Game) setupGuard(side Side) error {
	if g.Phase != PhaseSetup {
		return ErrWrongPhase
	}
	if !side.Valid() || side != g.Turn {
		return ErrNotYourTurn
	}
	if *g.setupDone(side) {
		return ErrSetupFinished
	}
	return nil
}

// ensureKing force-places a side's king on its home square when the side
// has none. The king is free, mandatory, and cannot be deleted.
func (g *Game) ensureKing(side Side) {
	if _, ok := g.Board.FindKing(side); ok {
		return
	}
	home := KingHome(side)
	g.Board.set(home, &Piece{Kind: KindKing, Side: side})
}

// PlacePiece buys a piece and puts it on an empty square inside the side's
// placement zone, deducting its cost from the budget.
func (g *Game) PlacePiece(side Side, pos Position, kind Kind) error {
	if err := g.setupGuard(side); err != nil {
		return err
	}
	if !kind.Valid() {
		return ErrUnknownKind
	}
	if !InZone(side, pos) {
		return ErrOutOfZone
	}
	if g.Board.At(pos) != nil {
		return ErrSquareOccupied
	}
	if kind == KindKing {
		if _, ok := g.Board.FindKing(side); ok {
			return ErrSecondKing
		}
	}
	cost := Cost(kind)
	b := g.budget(side)
	if cost > *b {
		return ErrBudgetExceeded
	}
	g.Board.set(pos, &Piece{Kind: kind, Side: side})
	*b -= cost
	return nil
}

// MoveSetupPiece relocates one of the side's placed pieces to another
// square of its zone. Landing on an own piece is rejected. Landing on an
// opponent piece removes it and refunds its cost to the mover; the zones
// are disjoint, so that branch cannot trigger on an 8x8 board.
func (g *Game) MoveSetupPiece(side Side, from, to Position) error {
	if err := g.setupGuard(side); err != nil {
		return err
	}
	pc := g.Board.At(from)
	if pc == nil {
		return ErrNoPiece
	}
	if pc.Side != side {
		return ErrNotYourPiece
	}
	if !InZone(side, to) {
		return ErrOutOfZone
	}
	if t := g.Board.At(to); t != nil {
		if t.Side == side {
			return ErrSquareOccupied
		}
		if t.Kind == KindKing {
			return ErrKingRemoval
		}
		*g.budget(side) += Cost(t.Kind)
	}
	g.Board.clear(from)
	g.Board.set(to, pc)
	return nil
}

// RemovePiece takes one of the side's own non-king pieces off the board and
// refunds its cost.
func (g *Game) RemovePiece(side Side, pos Position) error {
	if err := g.setupGuard(side); err != nil {
		return err
	}
	pc := g.Board.At(pos)
	if pc == nil {
		return ErrNoPiece
	}
	if pc.Side != side {
		return ErrNotYourPiece
	}
	if pc.Kind == KindKing {
		return ErrKingRemoval
	}
	g.Board.clear(pos)
	*g.budget(side) += Cost(pc.Kind)
	return nil
}

// ApplyLayout atomically replaces the side's current placement with the
// layout. Built-in presets are costed from the catalog; saved layouts keep
// the cost recorded at save time. Nothing changes if the layout does not
// validate or fit the budget.
func (g *Game) ApplyLayout(side Side, l Layout) error {
	if err := g.setupGuard(side); err != nil {
		return err
	}
	cost := l.Cost
	if cost <= 0 {
		cost = 0
		for _, p := range l.Placements {
			cost += Cost(p.Kind)
		}
	}
	if cost > InitialBudget {
		return ErrLayoutTooBig
	}

	var kingAt *Position
	seen := map[Position]bool{}
	for _, p := range l.Placements {
		if !p.Kind.Valid() {
			return ErrUnknownKind
		}
		sq := resolveSquare(side, p.Square)
		if !InZone(side, sq) {
			return ErrOutOfZone
		}
		if seen[sq] {
			return ErrSquareOccupied
		}
		seen[sq] = true
		if p.Kind == KindKing {
			if kingAt != nil {
				return ErrSecondKing
			}
			at := sq
			kingAt = &at
		}
	}
	// A kingless layout gets the king force-placed on its home square, so
	// that square must stay free.
	if kingAt == nil && seen[KingHome(side)] {
		return ErrSquareOccupied
	}

	g.clearSide(side)
	for _, p := range l.Placements {
		g.Board.set(resolveSquare(side, p.Square), &Piece{Kind: p.Kind, Side: side})
	}
	g.ensureKing(side)
	*g.budget(side) = InitialBudget - cost
	return nil
}

// CurrentLayout captures the side's placement, normalized to White's frame,
// with the points spent so far recorded as its cost.
func (g *Game) CurrentLayout(side Side) Layout {
	l := Layout{Cost: g.Board.SpentPoints(side)}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			pc := g.Board[r][c]
			if pc == nil || pc.Side != side {
				continue
			}
			sq := Position{Row: r, Col: c}
			l.Placements = append(l.Placements, Placement{Kind: pc.Kind, Square: normalizeSquare(side, sq)})
		}
	}
	return l
}

// FinishSetup freezes the side's draft. When both sides are done the game
// enters play with White to move and fresh clocks; otherwise the draft turn
// passes to the side that has not finished.
func (g *Game) FinishSetup(side Side) error {
	if err := g.setupGuard(side); err != nil {
		return err
	}
	if _, ok := g.Board.FindKing(side); !ok {
		return ErrKingMissing
	}
	*g.setupDone(side) = true
	if *g.setupDone(side.Opponent()) {
		g.Phase = PhasePlaying
		g.Turn = SideWhite
		if g.MoveTimeLimit > 0 {
			g.WhiteTime = g.MoveTimeLimit
			g.BlackTime = g.MoveTimeLimit
		}
		return nil
	}
	g.Turn = side.Opponent()
	return nil
}

// ResetSide clears the side's draft back to a lone king on its home square
// and a full budget.
func (g *Game) ResetSide(side Side) error {
	if err := g.setupGuard(side); err != nil {
		return err
	}
	g.clearSide(side)
	g.ensureKing(side)
	*g.budget(side) = InitialBudget
	return nil
}

func (g *Game) clearSide(side Side) {
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if pc := g.Board[r][c]; pc != nil && pc.Side == side {
				g.Board[r][c] = nil
			}
		}
	}
}

// resolveSquare maps a White-frame layout square onto the given side's
// zone; normalizeSquare is its inverse.
func resolveSquare(side Side, sq Position) Position {
	if side == SideWhite {
		return sq
	}
	return Position{Row: mirrorRow(sq.Row), Col: sq.Col}
}

func normalizeSquare(side Side, sq Position) Position {
	return resolveSquare(side, sq)
}
