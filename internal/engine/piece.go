// Package engine implements the budget chess rules: draft-phase budget
// accounting, move generation with the fog-of-war variant, the turn and
// phase state machine, per-move clocks, and win detection. The package is
// pure: no I/O, no logging, no wall clock. Callers feed it snapshots and
// persist what comes back.
package engine

// Side identifies one of the two players.
type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

func (s Side) Valid() bool { return s == SideWhite || s == SideBlack }

func (s Side) Opponent() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// Kind identifies a piece type from the fixed catalog.
type Kind string

const (
	KindPawn   Kind = "pawn"
	KindKnight Kind = "knight"
	KindBishop Kind = "bishop"
	KindRook   Kind = "rook"
	KindQueen  Kind = "queen"
	KindKing   Kind = "king"
)

// pointCosts is the draft catalog. The king is free: it is mandatory,
// force-placed, and cannot be bought or sold.
var pointCosts = map[Kind]int{
	KindPawn:   1,
	KindKnight: 3,
	KindBishop: 3,
	KindRook:   5,
	KindQueen:  9,
	KindKing:   0,
}

// Cost returns the draft point cost of a piece kind. Unknown kinds cost -1
// so that a budget check can never accidentally accept them.
func Cost(k Kind) int {
	if c, ok := pointCosts[k]; ok {
		return c
	}
	return -1
}

func (k Kind) Valid() bool {
	_, ok := pointCosts[k]
	return ok
}

// sliding reports whether the kind moves along rays. Sliding pieces have
// distinct blind-move resolution under fog of war.
func (k Kind) sliding() bool {
	return k == KindBishop || k == KindRook || k == KindQueen
}

var glyphs = map[Side]map[Kind]rune{
	SideWhite: {KindPawn: '♙', KindKnight: '♘', KindBishop: '♗', KindRook: '♖', KindQueen: '♕', KindKing: '♔'},
	SideBlack: {KindPawn: '♟', KindKnight: '♞', KindBishop: '♝', KindRook: '♜', KindQueen: '♛', KindKing: '♚'},
}

// Glyph returns the display rune for a piece. Presentation only.
func Glyph(k Kind, s Side) rune {
	if g, ok := glyphs[s][k]; ok {
		return g
	}
	return '?'
}

// Piece is an immutable board occupant. Moves replace pieces, they never
// mutate them.
type Piece struct {
	Kind Kind `json:"kind"`
	Side Side `json:"side"`
}
