// Package render draws a game snapshot as a PNG: checkered board, piece
// glyphs rasterized from SVG, coordinates, and fog shading over every
// square the requesting seat cannot observe.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/larkvale/budgetchess-server/internal/engine"
)

const (
	squareSize = 56
	margin     = 22
)

var (
	lightSquare = color.RGBA{R: 0xee, G: 0xe2, B: 0xc8, A: 0xff}
	darkSquare  = color.RGBA{R: 0xa5, G: 0x7f, B: 0x5b, A: 0xff}
	boardFrame  = color.RGBA{R: 0x3a, G: 0x2e, B: 0x24, A: 0xff}
	fogShade    = color.RGBA{A: 0x96}
	labelColor  = color.RGBA{R: 0xe8, G: 0xe0, B: 0xd0, A: 0xff}
)

// Renderer rasterizes snapshots. Glyph rasters are cached per size.
type Renderer struct {
	mu    sync.Mutex
	cache map[string]*image.RGBA
}

func NewRenderer() *Renderer {
	return &Renderer{cache: make(map[string]*image.RGBA)}
}

// RenderPNG draws the board as the given seat sees it. An empty seat (or a
// finished game) renders the full board.
func (r *Renderer) RenderPNG(g *engine.Game, seat engine.Side) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("nil game")
	}
	view := g
	var vis engine.Grid
	shaded := g.FogOfWar && seat.Valid() && g.Phase != engine.PhaseGameOver
	if shaded {
		view = g.ViewFor(seat)
		vis = g.Visibility(seat)
	}

	side := engine.BoardSize * squareSize
	canvas := image.NewRGBA(image.Rect(0, 0, side+2*margin, side+2*margin))
	imagedraw.Draw(canvas, canvas.Bounds(), image.NewUniform(boardFrame), image.Point{}, imagedraw.Src)
	origin := image.Pt(margin, margin)

	for row := 0; row < engine.BoardSize; row++ {
		for col := 0; col < engine.BoardSize; col++ {
			rect := squareRect(row, col, origin)
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			imagedraw.Draw(canvas, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}

	for row := 0; row < engine.BoardSize; row++ {
		for col := 0; col < engine.BoardSize; col++ {
			pc := view.Board[row][col]
			if pc == nil {
				continue
			}
			icon, err := r.glyph(pc.Kind, pc.Side, squareSize)
			if err != nil {
				return nil, err
			}
			rect := squareRect(row, col, origin)
			imagedraw.Draw(canvas, rect, icon, image.Point{}, imagedraw.Over)
		}
	}

	if shaded {
		for row := 0; row < engine.BoardSize; row++ {
			for col := 0; col < engine.BoardSize; col++ {
				if vis[row][col] {
					continue
				}
				rect := squareRect(row, col, origin)
				imagedraw.Draw(canvas, rect, image.NewUniform(fogShade), image.Point{}, imagedraw.Over)
			}
		}
	}

	drawCoordinates(canvas, origin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// glyph rasterizes (and caches) one piece silhouette at the given size.
func (r *Renderer) glyph(k engine.Kind, s engine.Side, size int) (*image.RGBA, error) {
	key := fmt.Sprintf("%s/%s/%d", k, s, size)
	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	data, err := glyphSVG(k, s)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse glyph svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	r.mu.Lock()
	r.cache[key] = img
	r.mu.Unlock()
	return img, nil
}

func squareRect(row, col int, origin image.Point) image.Rectangle {
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawCoordinates(img *image.RGBA, origin image.Point) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
	}
	for col := 0; col < engine.BoardSize; col++ {
		label := string(rune('a' + col))
		x := origin.X + col*squareSize + squareSize/2 - d.MeasureString(label).Round()/2
		y := origin.Y + engine.BoardSize*squareSize + margin/2 + basicfont.Face7x13.Ascent/2
		d.Dot = fixed.P(x, y)
		d.DrawString(label)
	}
	for row := 0; row < engine.BoardSize; row++ {
		label := fmt.Sprintf("%d", engine.BoardSize-row)
		y := origin.Y + row*squareSize + squareSize/2 + basicfont.Face7x13.Ascent/2
		d.Dot = fixed.P(margin/2-d.MeasureString(label).Round()/2, y)
		d.DrawString(label)
	}
}
