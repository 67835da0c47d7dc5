package engine

import "testing"

func TestVisibleSquaresSinglePiece(t *testing.T) {
	b := emptyBoardWith(map[Position]Piece{
		{Row: 4, Col: 4}: {Kind: KindKnight, Side: SideWhite},
	})
	vis := VisibleSquares(b, SideWhite, true)

	count := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			inHalo := r >= 3 && r <= 5 && c >= 3 && c <= 5
			if vis[r][c] != inHalo {
				t.Fatalf("vis[%d][%d] = %v", r, c, vis[r][c])
			}
			if vis[r][c] {
				count++
			}
		}
	}
	if count != 9 {
		t.Fatalf("visible squares = %d, want 9", count)
	}
}

func TestVisibleSquaresClipsAtEdge(t *testing.T) {
	b := emptyBoardWith(map[Position]Piece{
		{Row: 0, Col: 0}: {Kind: KindRook, Side: SideBlack},
	})
	vis := VisibleSquares(b, SideBlack, true)

	count := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if vis[r][c] {
				count++
			}
		}
	}
	// Corner halo is the 2x2 block.
	if count != 4 {
		t.Fatalf("visible squares = %d, want 4", count)
	}
}

func TestVisibleSquaresIgnoresOpponentPieces(t *testing.T) {
	b := emptyBoardWith(map[Position]Piece{
		{Row: 4, Col: 4}: {Kind: KindQueen, Side: SideBlack},
		{Row: 7, Col: 7}: {Kind: KindPawn, Side: SideWhite},
	})
	vis := VisibleSquares(b, SideWhite, true)
	if vis[4][4] {
		t.Fatalf("opponent piece contributed to visibility")
	}
	if !vis[6][6] || !vis[7][7] {
		t.Fatalf("own halo missing")
	}
}

func TestVisibleSquaresFogDisabled(t *testing.T) {
	var b Board
	vis := VisibleSquares(&b, SideWhite, false)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if !vis[r][c] {
				t.Fatalf("vis[%d][%d] false without fog", r, c)
			}
		}
	}
}
