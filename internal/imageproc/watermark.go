// Package imageproc provides operations for images: decoding, resizing, watermark preparation,
// anchoring and alpha compositing.
package imageproc

import (
	"image"
	"math"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/disintegration/imaging"
)

// ScaleAlpha returns an NRGBA copy of img with every alpha value multiplied by
// opacity, rounded and clamped to 0..255.
func ScaleAlpha(img image.Image, opacity float64) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		a := math.Round(float64(dst.Pix[i]) * opacity)
		dst.Pix[i] = uint8(max(0, min(255, a)))
	}
	return dst
}

// WatermarkWidth - ширина ватермарка от опорной ширины (target_width, а если он 0 - ширина основы)
func WatermarkWidth(ratio float64, targetWidth, baseWidth int) int {
	ref := targetWidth
	if ref <= 0 {
		ref = baseWidth
	}
	return max(1, int(ratio*float64(ref)))
}

// PrepareWatermark applies opacity first and then scales the mark to width,
// height follows the mark's own aspect ratio.
func PrepareWatermark(wm image.Image, opacity float64, width int) *image.NRGBA {
	mark := ScaleAlpha(wm, opacity)
	return imaging.Resize(mark, width, 0, imaging.Lanczos) // 0 - сохраняет ратио ватермарка
}

// Watermarker composites wm over a copy of base. base is expected to be
// resized already. Returns the result and the rectangle the mark occupies.
func Watermarker(base, wm image.Image, p model.CompositeParams) (*image.NRGBA, image.Rectangle) {
	bb := base.Bounds()

	mark := PrepareWatermark(wm, p.Opacity, WatermarkWidth(p.Ratio, p.TargetWidth, bb.Dx()))

	offset := Anchor(p.Position, bb.Size(), mark.Bounds().Size())

	// альфа уже умножена на opacity, поэтому накладываем с 1.0
	result := imaging.Overlay(base, mark, bb.Min.Add(offset), 1.0)

	return result, image.Rectangle{Min: offset, Max: offset.Add(mark.Bounds().Size())}
}
