package engine

import (
	"fmt"
	"strings"
)

// BoardSize is fixed at the classic 8x8.
const BoardSize = 8

// Position addresses a board square. Row 0 is Black's home edge, row 7 is
// White's, matching the snapshot grid layout.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < BoardSize && p.Col >= 0 && p.Col < BoardSize
}

// String renders algebraic notation: file a..h left to right, rank 8-row.
func (p Position) String() string {
	return fmt.Sprintf("%c%d", 'a'+rune(p.Col), BoardSize-p.Row)
}

// ParsePosition parses algebraic notation such as "e2".
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Position{}, fmt.Errorf("%w: %q", ErrBadSquare, s)
	}
	return Position{Row: BoardSize - int(s[1]-'0'), Col: int(s[0] - 'a')}, nil
}

// MoveNotation formats a move for the history log, e.g. "e2-e4".
func MoveNotation(from, to Position) string {
	return from.String() + "-" + to.String()
}

// Board is the 8x8 grid. nil means empty. Pieces are shared immutable
// values, so copying a Board by value is a deep enough copy.
type Board [BoardSize][BoardSize]*Piece

// At returns the occupant of a square, or nil when empty or out of bounds.
func (b *Board) At(p Position) *Piece {
	if !p.InBounds() {
		return nil
	}
	return b[p.Row][p.Col]
}

func (b *Board) set(p Position, pc *Piece) {
	if p.InBounds() {
		b[p.Row][p.Col] = pc
	}
}

func (b *Board) clear(p Position) { b.set(p, nil) }

// FindKing locates a side's king.
func (b *Board) FindKing(s Side) (Position, bool) {
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if pc := b[r][c]; pc != nil && pc.Side == s && pc.Kind == KindKing {
				return Position{Row: r, Col: c}, true
			}
		}
	}
	return Position{}, false
}

// SpentPoints sums the catalog cost of every piece a side has on the board.
// The king contributes zero.
func (b *Board) SpentPoints(s Side) int {
	total := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if pc := b[r][c]; pc != nil && pc.Side == s {
				total += Cost(pc.Kind)
			}
		}
	}
	return total
}

// HomeRow is the back rank of a side: 7 for White, 0 for Black.
func HomeRow(s Side) int {
	if s == SideWhite {
		return BoardSize - 1
	}
	return 0
}

// PawnStartRow is where a side's pawns get their double step: 6 / 1.
func PawnStartRow(s Side) int {
	if s == SideWhite {
		return BoardSize - 2
	}
	return 1
}

// KingHome is the square a side's king is force-placed on during setup.
func KingHome(s Side) Position {
	return Position{Row: HomeRow(s), Col: 4}
}

// InZone reports whether a square lies in a side's placement zone: rows 5-7
// for White, rows 0-2 for Black.
func InZone(s Side, p Position) bool {
	if !p.InBounds() {
		return false
	}
	if s == SideWhite {
		return p.Row >= BoardSize-3
	}
	return p.Row <= 2
}

// forward is the pawn marching direction: -1 for White, +1 for Black.
func forward(s Side) int {
	if s == SideWhite {
		return -1
	}
	return 1
}

// mirrorRow flips a row across the board midline. Layouts are stored in
// White's frame and mirrored when applied for Black.
func mirrorRow(row int) int { return BoardSize - 1 - row }
