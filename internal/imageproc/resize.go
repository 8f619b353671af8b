package imageproc

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ResizeToWidth scales img to the given width keeping its aspect ratio.
// A non-positive width returns img untouched.
func ResizeToWidth(img image.Image, width int) image.Image {
	if width <= 0 {
		return img
	}

	b := img.Bounds()
	aspect := float64(b.Dx()) / float64(b.Dy())
	height := max(1, int(math.Round(float64(width)/aspect)))

	return imaging.Resize(img, width, height, imaging.Lanczos)
}
