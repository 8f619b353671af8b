package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/tiffenc"
	webpenc "github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

const vp8xFlagEXIF = 0x08

type riffChunk struct {
	fourcc  string
	payload []byte
}

func encodeWebP(w io.Writer, img image.Image, o model.WebPOptions, dpi int) error {
	var opts *webpenc.Options
	var err error
	if o.Lossless {
		// для lossless качество задает усилие сжатия 0..9
		opts, err = webpenc.NewLosslessEncoderOptions(webpenc.PresetDefault, min(9, max(0, o.Quality/10)))
	} else {
		opts, err = webpenc.NewLossyEncoderOptions(webpenc.PresetDefault, float32(o.Quality))
	}
	if err != nil {
		return fmt.Errorf("webp options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opts); err != nil {
		return err
	}

	data := buf.Bytes()
	if dpi > 0 {
		b := img.Bounds()
		if data, err = withEXIF(data, tiffenc.ResolutionEXIF(dpi), b.Dx(), b.Dy()); err != nil {
			return err
		}
	}

	_, err = w.Write(data)
	return err
}

// withEXIF moves a simple-format WebP into the extended (VP8X) container if
// needed and appends an EXIF chunk.
func withEXIF(data, exif []byte, width, height int) ([]byte, error) {
	chunks, err := parseRIFF(data)
	if err != nil {
		return nil, err
	}

	switch chunks[0].fourcc {
	case "VP8X":
		vp8x := append([]byte(nil), chunks[0].payload...)
		vp8x[0] |= vp8xFlagEXIF
		chunks[0].payload = vp8x
	case "VP8 ", "VP8L":
		// VP8L хранит альфу сам, флаг альфы в VP8X не ставим
		vp8x := make([]byte, 10)
		vp8x[0] = vp8xFlagEXIF
		putUint24(vp8x[4:], uint32(width-1))
		putUint24(vp8x[7:], uint32(height-1))
		chunks = append([]riffChunk{{fourcc: "VP8X", payload: vp8x}}, chunks...)
	default:
		return nil, fmt.Errorf("codec: unexpected webp chunk %q", chunks[0].fourcc)
	}
	chunks = append(chunks, riffChunk{fourcc: "EXIF", payload: exif})

	var body bytes.Buffer
	body.WriteString("WEBP")
	for _, c := range chunks {
		body.WriteString(c.fourcc)
		_ = binary.Write(&body, binary.LittleEndian, uint32(len(c.payload)))
		body.Write(c.payload)
		if len(c.payload)%2 == 1 {
			body.WriteByte(0)
		}
	}

	out := make([]byte, 0, 8+body.Len())
	out = append(out, 'R', 'I', 'F', 'F')
	out = binary.LittleEndian.AppendUint32(out, uint32(body.Len()))
	return append(out, body.Bytes()...), nil
}

func parseRIFF(data []byte) ([]riffChunk, error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, errors.New("codec: malformed webp stream")
	}

	var chunks []riffChunk
	for p := 12; p+8 <= len(data); {
		size := int(binary.LittleEndian.Uint32(data[p+4:]))
		end := p + 8 + size
		if end > len(data) {
			return nil, errors.New("codec: truncated webp chunk")
		}
		chunks = append(chunks, riffChunk{fourcc: string(data[p : p+4]), payload: data[p+8 : end]})
		p = end + size%2
	}

	if len(chunks) == 0 {
		return nil, errors.New("codec: webp stream has no chunks")
	}
	return chunks, nil
}

func putUint24(b []byte, v uint32) {
	b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
}
