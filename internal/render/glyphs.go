package render

import (
	"fmt"

	"github.com/larkvale/budgetchess-server/internal/engine"
)

// Piece glyphs are generated as small SVG documents and rasterized on
// demand. The shapes are deliberately simple silhouettes; the fill and
// stroke carry the side.
const glyphDoc = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45">` +
	`<g fill="%s" stroke="%s" stroke-width="1.8" stroke-linejoin="round">%s</g></svg>`

var glyphBodies = map[engine.Kind]string{
	engine.KindPawn: `<circle cx="22.5" cy="14" r="6"/>` +
		`<path d="M15 38 L18 22 L27 22 L30 38 Z"/>` +
		`<rect x="12" y="36" width="21" height="4" rx="1"/>`,
	engine.KindRook: `<path d="M12 38 L12 16 L16 16 L16 12 L20 12 L20 16 L25 16 L25 12 L29 12 L29 16 L33 16 L33 38 Z"/>` +
		`<rect x="10" y="36" width="25" height="4" rx="1"/>`,
	engine.KindKnight: `<path d="M14 38 L14 30 Q14 18 24 14 L22 8 L28 12 Q34 16 33 26 L31 38 Z"/>` +
		`<circle cx="26" cy="15" r="1.4"/>` +
		`<rect x="11" y="36" width="23" height="4" rx="1"/>`,
	engine.KindBishop: `<path d="M22.5 8 Q30 16 28 24 Q26 30 22.5 30 Q19 30 17 24 Q15 16 22.5 8 Z"/>` +
		`<path d="M16 38 L18 30 L27 30 L29 38 Z"/>` +
		`<rect x="13" y="36" width="19" height="4" rx="1"/>`,
	engine.KindQueen: `<path d="M12 36 L10 14 L16 24 L19 10 L22.5 22 L26 10 L29 24 L35 14 L33 36 Z"/>` +
		`<rect x="10" y="35" width="25" height="5" rx="1"/>`,
	engine.KindKing: `<rect x="20.5" y="6" width="4" height="10"/>` +
		`<rect x="17.5" y="9" width="10" height="4"/>` +
		`<path d="M13 38 L14 18 Q22.5 24 31 18 L32 38 Z"/>` +
		`<rect x="11" y="36" width="23" height="4" rx="1"/>`,
}

func glyphSVG(k engine.Kind, s engine.Side) ([]byte, error) {
	body, ok := glyphBodies[k]
	if !ok {
		return nil, fmt.Errorf("no glyph for kind %q", k)
	}
	fill, stroke := "#f6f3e8", "#1b1b1b"
	if s == engine.SideBlack {
		fill, stroke = "#2a2a2a", "#e9e4d4"
	}
	return []byte(fmt.Sprintf(glyphDoc, fill, stroke, body)), nil
}
