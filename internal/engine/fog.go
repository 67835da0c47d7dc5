package engine

// Grid is a per-square visibility mask.
type Grid [BoardSize][BoardSize]bool

func (g *Grid) Visible(p Position) bool {
	if !p.InBounds() {
		return false
	}
	return g[p.Row][p.Col]
}

func allVisible() Grid {
	var g Grid
	for r := range g {
		for c := range g[r] {
			g[r][c] = true
		}
	}
	return g
}

// VisibleSquares computes the squares a side can observe. With fog disabled
// everything is visible. With fog enabled a square is visible iff it lies
// within Chebyshev distance 1 of one of the side's own pieces, the piece's
// own square included. The grid is a pure function of the board and is
// recomputed after every mutation, never cached.
func VisibleSquares(b *Board, s Side, fogEnabled bool) Grid {
	if !fogEnabled {
		return allVisible()
	}
	var g Grid
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			pc := b[r][c]
			if pc == nil || pc.Side != s {
				continue
			}
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					n := Position{Row: r + dr, Col: c + dc}
					if n.InBounds() {
						g[n.Row][n.Col] = true
					}
				}
			}
		}
	}
	return g
}
