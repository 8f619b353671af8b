// Package tiffenc writes single-strip RGB(A) TIFF files with resolution tags and
// none, LZW or Deflate compression.
package tiffenc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
)

type Compression int

const (
	None Compression = iota
	LZW
	Deflate
)

// ParseCompression accepts the names used in settings files.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "raw", "none", "":
		return None, nil
	case "tiff_lzw", "lzw":
		return LZW, nil
	case "tiff_deflate", "tiff_adobe_deflate", "deflate":
		return Deflate, nil
	}
	return None, fmt.Errorf("tiffenc: unknown compression %q", name)
}

func (c Compression) tag() (uint16, error) {
	switch c {
	case None:
		return 1, nil
	case LZW:
		return 5, nil
	case Deflate:
		return 8, nil
	}
	return 0, fmt.Errorf("tiffenc: unknown compression %d", c)
}

type Options struct {
	Compression Compression
	// DPI is written as X/YResolution with inch units when positive.
	DPI int
}

// Encode writes m to w. Non-opaque images keep their alpha as an unassociated
// extra sample.
func Encode(w io.Writer, m image.Image, o *Options) error {
	if o == nil {
		o = &Options{}
	}

	b := m.Bounds()
	if b.Empty() {
		return errors.New("tiffenc: empty image")
	}

	ctag, err := o.Compression.tag()
	if err != nil {
		return err
	}

	alpha := !isOpaque(m)
	spp := 3
	if alpha {
		spp = 4
	}

	strip, err := compress(samples(m, alpha), o.Compression)
	if err != nil {
		return err
	}

	ifdOffset := 8 + len(strip) + len(strip)%2

	var d IFD
	d.Long(tagImageWidth, uint32(b.Dx()))
	d.Long(tagImageLength, uint32(b.Dy()))
	bps := make([]uint16, spp)
	for i := range bps {
		bps[i] = 8
	}
	d.Short(tagBitsPerSample, bps...)
	d.Short(tagCompression, ctag)
	d.Short(tagPhotometric, 2) // RGB
	d.Long(tagStripOffsets, 8)
	d.Short(tagSamplesPerPixel, uint16(spp))
	d.Long(tagRowsPerStrip, uint32(b.Dy()))
	d.Long(tagStripByteCounts, uint32(len(strip)))
	d.Short(tagPlanarConfiguration, 1)
	if o.DPI > 0 {
		d.Resolution(o.DPI)
	}
	if alpha {
		d.Short(tagExtraSamples, 2)
	}

	var out bytes.Buffer
	out.Write(header(uint32(ifdOffset)))
	out.Write(strip)
	if len(strip)%2 == 1 {
		out.WriteByte(0)
	}
	out.Write(d.Bytes(uint32(ifdOffset)))

	_, err = w.Write(out.Bytes())
	return err
}

func isOpaque(m image.Image) bool {
	if o, ok := m.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func samples(m image.Image, alpha bool) []byte {
	b := m.Bounds()
	spp := 3
	if alpha {
		spp = 4
	}

	out := make([]byte, 0, b.Dx()*b.Dy()*spp)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if n, ok := m.(*image.NRGBA); ok {
			row := n.Pix[n.PixOffset(b.Min.X, y):n.PixOffset(b.Max.X, y)]
			if alpha {
				out = append(out, row...)
				continue
			}
			for i := 0; i < len(row); i += 4 {
				out = append(out, row[i], row[i+1], row[i+2])
			}
			continue
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			out = append(out, c.R, c.G, c.B)
			if alpha {
				out = append(out, c.A)
			}
		}
	}
	return out
}

func compress(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case LZW:
		return compressLZW(raw), nil
	case Deflate:
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return raw, nil
}
