package codec

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/UnendingLoop/Watermarker/internal/jpegenc"
	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/tiffenc"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

func translucentImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 9), G: 120, B: uint8(y * 11), A: uint8(100 + x)})
		}
	}
	return img
}

func encodeParams(t *testing.T, img image.Image, p model.EncodeParams) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, p))
	return buf.Bytes()
}

// PNG - SUCCESS

func TestEncode_PNGKeepsAlpha(t *testing.T) {
	src := translucentImage(20, 10)
	data := encodeParams(t, src, model.EncodeParams{
		Format:  model.FormatPNG,
		DPI:     300,
		Options: model.PNGOptions{CompressionLevel: 6, Optimize: true, KeepAlpha: true},
	})

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, color.NRGBAModel, cfg.ColorModel)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, src.NRGBAAt(5, 5), img.(*image.NRGBA).NRGBAAt(5, 5))
}

func TestEncode_PNGDropsAlpha(t *testing.T) {
	src := translucentImage(20, 10)
	data := encodeParams(t, src, model.EncodeParams{
		Format:  model.FormatPNG,
		Options: model.PNGOptions{CompressionLevel: 0, KeepAlpha: false},
	})

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, color.RGBAModel, cfg.ColorModel)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, a := img.At(3, 4).RGBA()
	want := src.NRGBAAt(3, 4)
	require.Equal(t, uint32(want.R), r>>8)
	require.Equal(t, uint32(want.G), g>>8)
	require.Equal(t, uint32(want.B), b>>8)
	require.Equal(t, uint32(0xffff), a)
}

func TestEncode_PNGPhysChunk(t *testing.T) {
	data := encodeParams(t, translucentImage(4, 4), model.EncodeParams{
		Format:  model.FormatPNG,
		DPI:     300,
		Options: model.PNGOptions{CompressionLevel: 9, KeepAlpha: true},
	})

	require.Equal(t, "pHYs", string(data[pngIHDREnd+4:pngIHDREnd+8]))
	ppm := binary.BigEndian.Uint32(data[pngIHDREnd+8:])
	require.Equal(t, uint32(11811), ppm)
	require.Equal(t, byte(1), data[pngIHDREnd+16])

	// png.Decode проверяет CRC каждого чанка
	_, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestPNGLevel(t *testing.T) {
	tests := []struct {
		level    int
		optimize bool
		want     png.CompressionLevel
	}{
		{0, false, png.NoCompression},
		{1, false, png.BestSpeed},
		{3, false, png.BestSpeed},
		{6, false, png.DefaultCompression},
		{9, false, png.BestCompression},
		{1, true, png.BestCompression},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, pngLevel(tt.level, tt.optimize))
	}
}

// JPEG - SUCCESS

func TestEncode_JPEGAlwaysThreeChannels(t *testing.T) {
	for _, f := range []model.Format{model.FormatJPG, model.FormatJPEG} {
		data := encodeParams(t, translucentImage(30, 20), model.EncodeParams{
			Format:  f,
			DPI:     72,
			Options: model.JPEGOptions{Quality: 90, Subsampling: jpegenc.Subsample420, Progressive: true},
		})

		img, err := jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		_, ok := img.(*image.YCbCr)
		require.True(t, ok)
		_, _, _, a := img.At(10, 10).RGBA()
		require.Equal(t, uint32(0xffff), a)
	}
}

// TIFF - SUCCESS

func TestEncode_TIFF(t *testing.T) {
	src := translucentImage(12, 9)
	data := encodeParams(t, src, model.EncodeParams{
		Format:  model.FormatTIFF,
		DPI:     600,
		Options: model.TIFFOptions{Compression: tiffenc.Deflate},
	})

	img, err := tiff.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, src.NRGBAAt(7, 2), img.(*image.NRGBA).NRGBAAt(7, 2))
}

// WEBP - SUCCESS

func TestEncode_WebP(t *testing.T) {
	tests := []struct {
		name     string
		lossless bool
	}{
		{"lossy", false},
		{"lossless", true},
	}

	src := translucentImage(32, 24)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeParams(t, src, model.EncodeParams{
				Format:  model.FormatWEBP,
				DPI:     300,
				Options: model.WebPOptions{Quality: 90, Lossless: tt.lossless},
			})

			chunks, err := parseRIFF(data)
			require.NoError(t, err)
			require.Equal(t, "VP8X", chunks[0].fourcc)
			require.NotZero(t, chunks[0].payload[0]&vp8xFlagEXIF)
			last := chunks[len(chunks)-1]
			require.Equal(t, "EXIF", last.fourcc)
			require.Equal(t, tiffenc.ResolutionEXIF(300), last.payload)
			require.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:8]))

			img, err := webp.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			require.Equal(t, src.Bounds(), img.Bounds())

			if tt.lossless {
				_, _, _, a := img.At(5, 5).RGBA()
				require.Equal(t, uint32(src.NRGBAAt(5, 5).A), a>>8)
			}
		})
	}
}

func TestWithEXIF_SimpleContainer(t *testing.T) {
	// минимальный контейнер с одним VP8L-чанком нечетной длины
	payload := []byte{0x2f, 1, 2}
	data := []byte("RIFF\x00\x00\x00\x00WEBPVP8L\x03\x00\x00\x00")
	data = append(data, payload...)
	data = append(data, 0)

	out, err := withEXIF(data, []byte("exif"), 640, 480)
	require.NoError(t, err)

	chunks, err := parseRIFF(out)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Equal(t, "VP8X", chunks[0].fourcc)
	require.Equal(t, []byte{vp8xFlagEXIF, 0, 0, 0, 0x7f, 0x02, 0, 0xdf, 0x01, 0}, chunks[0].payload)
	require.Equal(t, payload, chunks[1].payload)
	require.Equal(t, "EXIF", chunks[2].fourcc)

	_, err = withEXIF([]byte("not a riff"), nil, 1, 1)
	require.Error(t, err)
}

// ENCODE - FAIL

func TestEncode_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		p    model.EncodeParams
	}{
		{"unknown format", model.EncodeParams{Format: "GIF", Options: model.PNGOptions{}}},
		{"nil options", model.EncodeParams{Format: model.FormatPNG}},
		{"mismatched options", model.EncodeParams{Format: model.FormatPNG, Options: model.JPEGOptions{Quality: 90}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Encode(&buf, translucentImage(2, 2), tt.p)
			require.ErrorIs(t, err, model.ErrUnsupportedFormat)
			require.Zero(t, buf.Len())
		})
	}
}
