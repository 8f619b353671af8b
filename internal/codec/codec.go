// Package codec encodes composited images into the configured output format,
// embedding the requested DPI in every format.
package codec

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/UnendingLoop/Watermarker/internal/jpegenc"
	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/tiffenc"
)

// Encode dispatches on the options variant. A variant that does not belong to
// p.Format, or an unknown format, yields model.ErrUnsupportedFormat.
func Encode(w io.Writer, img image.Image, p model.EncodeParams) error {
	if !model.FormatsMap[p.Format] {
		return fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, p.Format)
	}

	switch o := p.Options.(type) {
	case model.JPEGOptions:
		if p.Format != model.FormatJPG && p.Format != model.FormatJPEG {
			break
		}
		return jpegenc.Encode(w, img, &jpegenc.Options{
			Quality:     o.Quality,
			Subsampling: o.Subsampling,
			Progressive: o.Progressive,
			QuantTables: o.QuantTables,
			DPI:         p.DPI,
		})
	case model.PNGOptions:
		if p.Format != model.FormatPNG {
			break
		}
		return encodePNG(w, img, o, p.DPI)
	case model.TIFFOptions:
		if p.Format != model.FormatTIFF {
			break
		}
		return tiffenc.Encode(w, img, &tiffenc.Options{Compression: o.Compression, DPI: p.DPI})
	case model.WebPOptions:
		if p.Format != model.FormatWEBP {
			break
		}
		return encodeWebP(w, img, o, p.DPI)
	}

	return fmt.Errorf("%w: %q with %T", model.ErrUnsupportedFormat, p.Format, p.Options)
}

// dropAlpha returns an opaque copy keeping the color channels untouched.
func dropAlpha(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	src, ok := img.(*image.NRGBA)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := dst.PixOffset(x, y)
			if ok {
				j := src.PixOffset(b.Min.X+x, b.Min.Y+y)
				copy(dst.Pix[i:i+3], src.Pix[j:j+3])
			} else {
				c := dst.ColorModel().Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = c.R, c.G, c.B
			}
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}
