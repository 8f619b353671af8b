package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/disintegration/imaging"
	"github.com/klauspost/crc32"
)

// сигнатура (8) + IHDR (4 длина + 4 тип + 13 данных + 4 crc)
const pngIHDREnd = 8 + 25

func pngLevel(level int, optimize bool) png.CompressionLevel {
	switch {
	case optimize || level >= 7:
		return png.BestCompression
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	default:
		return png.DefaultCompression
	}
}

func encodePNG(w io.Writer, img image.Image, o model.PNGOptions, dpi int) error {
	if !o.KeepAlpha {
		img = dropAlpha(img)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(pngLevel(o.CompressionLevel, o.Optimize))); err != nil {
		return err
	}

	data := buf.Bytes()
	if dpi > 0 {
		var err error
		if data, err = withPHYs(data, dpi); err != nil {
			return err
		}
	}

	_, err := w.Write(data)
	return err
}

// withPHYs inserts a pHYs chunk right after IHDR.
func withPHYs(data []byte, dpi int) ([]byte, error) {
	if len(data) < pngIHDREnd || string(data[12:16]) != "IHDR" {
		return nil, errors.New("codec: malformed png stream")
	}

	ppm := uint32(math.Round(float64(dpi) / 0.0254))
	body := make([]byte, 0, 13)
	body = append(body, 'p', 'H', 'Y', 's')
	body = binary.BigEndian.AppendUint32(body, ppm)
	body = binary.BigEndian.AppendUint32(body, ppm)
	body = append(body, 1) // метры

	chunk := binary.BigEndian.AppendUint32(nil, 9)
	chunk = append(chunk, body...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(body))

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:pngIHDREnd]...)
	out = append(out, chunk...)
	return append(out, data[pngIHDREnd:]...), nil
}
