package engine

// MoveSet splits a piece's candidate destinations. Visible moves are fully
// validated against the board. Fogged moves are speculative: the square lies
// outside the mover's visibility, so occupancy was not checked and the
// actual landing square is resolved only when the move is played.
type MoveSet struct {
	Visible []Position `json:"visible"`
	Fogged  []Position `json:"fogged"`
}

func (ms *MoveSet) HasVisible(p Position) bool { return containsPos(ms.Visible, p) }
func (ms *MoveSet) HasFogged(p Position) bool  { return containsPos(ms.Fogged, p) }

func containsPos(list []Position, p Position) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}

var knightOffsets = [8][2]int{
	{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2},
	{1, -2}, {1, 2}, {2, -1}, {2, 1},
}

var kingOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

var bishopDirs = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
var rookDirs = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

func rayDirs(k Kind) [][2]int {
	switch k {
	case KindBishop:
		return bishopDirs[:]
	case KindRook:
		return rookDirs[:]
	case KindQueen:
		dirs := make([][2]int, 0, 8)
		dirs = append(dirs, rookDirs[:]...)
		return append(dirs, bishopDirs[:]...)
	default:
		return nil
	}
}

// LegalMoves produces the destination set for the piece standing on from.
// Without fog only the Visible set is populated, using full board
// knowledge. With fog each candidate is first checked against vis (the
// mover's visibility grid): visible squares get the exact rule, unseen
// squares are offered optimistically as fogged moves. Rays stop at the
// first square known to hold a piece but run through unseen squares to the
// board edge, assuming them empty.
func LegalMoves(b *Board, from Position, fog bool, vis Grid) MoveSet {
	pc := b.At(from)
	if pc == nil {
		return MoveSet{}
	}
	if !fog {
		vis = allVisible()
	}
	var ms MoveSet
	switch pc.Kind {
	case KindPawn:
		pawnMoves(b, from, pc.Side, fog, &vis, &ms)
	case KindKnight:
		stepMoves(b, from, pc.Side, knightOffsets, fog, &vis, &ms)
	case KindKing:
		stepMoves(b, from, pc.Side, kingOffsets, fog, &vis, &ms)
	case KindBishop, KindRook, KindQueen:
		for _, d := range rayDirs(pc.Kind) {
			rayMoves(b, from, pc.Side, d, fog, &vis, &ms)
		}
	}
	return ms
}

func pawnMoves(b *Board, from Position, s Side, fog bool, vis *Grid, ms *MoveSet) {
	dir := forward(s)

	// Single forward step: legal only onto an empty square, never a capture.
	one := Position{Row: from.Row + dir, Col: from.Col}
	onePassable := false
	if one.InBounds() {
		switch {
		case fog && !vis.Visible(one):
			ms.Fogged = append(ms.Fogged, one)
			onePassable = true // assumed empty
		case b.At(one) == nil:
			ms.Visible = append(ms.Visible, one)
			onePassable = true
		}
	}

	// Double step from the start row, through an empty intermediate.
	if from.Row == PawnStartRow(s) && onePassable {
		two := Position{Row: from.Row + 2*dir, Col: from.Col}
		if two.InBounds() {
			switch {
			case fog && !vis.Visible(two):
				ms.Fogged = append(ms.Fogged, two)
			case b.At(two) == nil:
				ms.Visible = append(ms.Visible, two)
			}
		}
	}

	// Diagonal captures. Under fog an unseen diagonal is always offered
	// speculatively: the mover cannot know whether a victim is there.
	for _, dc := range [2]int{-1, 1} {
		d := Position{Row: from.Row + dir, Col: from.Col + dc}
		if !d.InBounds() {
			continue
		}
		if fog && !vis.Visible(d) {
			ms.Fogged = append(ms.Fogged, d)
			continue
		}
		if t := b.At(d); t != nil && t.Side != s {
			ms.Visible = append(ms.Visible, d)
		}
	}
}

func stepMoves(b *Board, from Position, s Side, offsets [8][2]int, fog bool, vis *Grid, ms *MoveSet) {
	for _, o := range offsets {
		d := Position{Row: from.Row + o[0], Col: from.Col + o[1]}
		if !d.InBounds() {
			continue
		}
		if fog && !vis.Visible(d) {
			ms.Fogged = append(ms.Fogged, d)
			continue
		}
		if t := b.At(d); t == nil || t.Side != s {
			ms.Visible = append(ms.Visible, d)
		}
	}
}

func rayMoves(b *Board, from Position, s Side, dir [2]int, fog bool, vis *Grid, ms *MoveSet) {
	p := from
	for {
		p = Position{Row: p.Row + dir[0], Col: p.Col + dir[1]}
		if !p.InBounds() {
			return
		}
		if fog && !vis.Visible(p) {
			// Undiscovered remainder of the ray: assume empty and keep going.
			ms.Fogged = append(ms.Fogged, p)
			continue
		}
		t := b.At(p)
		if t == nil {
			ms.Visible = append(ms.Visible, p)
			continue
		}
		if t.Side != s {
			ms.Visible = append(ms.Visible, p)
		}
		return // ray stops at the first visible occupant either way
	}
}
