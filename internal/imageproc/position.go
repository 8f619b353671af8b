package imageproc

import (
	"image"

	"github.com/UnendingLoop/Watermarker/internal/model"
)

// Inset is the distance between a corner-anchored mark and the image edges.
const Inset = 10

// Anchor returns the top-left corner of the mark relative to the base.
// Unknown positions behave as top-left.
func Anchor(pos model.Position, base, mark image.Point) image.Point {
	switch pos {
	case model.TopRight:
		return image.Pt(base.X-mark.X-Inset, Inset)
	case model.BottomLeft:
		return image.Pt(Inset, base.Y-mark.Y-Inset)
	case model.BottomRight:
		return image.Pt(base.X-mark.X-Inset, base.Y-mark.Y-Inset)
	case model.Center:
		return image.Pt(floorDiv(base.X-mark.X, 2), floorDiv(base.Y-mark.Y, 2))
	default:
		return image.Pt(Inset, Inset)
	}
}

// floorDiv rounds toward negative infinity, the mark may be larger than the base
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
