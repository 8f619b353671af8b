package tiffenc

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
	"golang.org/x/image/tiff/lzw"
)

func testImage(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8(x ^ y), A: alpha})
		}
	}
	return img
}

// findTag walks the first IFD of a little-endian TIFF.
func findTag(t *testing.T, data []byte, tag uint16) (typ uint16, count uint32, value []byte) {
	t.Helper()

	require.Equal(t, []byte{'I', 'I', 42, 0}, data[:4])
	off := binary.LittleEndian.Uint32(data[4:8])
	n := int(binary.LittleEndian.Uint16(data[off:]))
	for i := 0; i < n; i++ {
		e := data[int(off)+2+12*i:]
		if binary.LittleEndian.Uint16(e) != tag {
			continue
		}
		typ = binary.LittleEndian.Uint16(e[2:])
		count = binary.LittleEndian.Uint32(e[4:])
		value = e[8:12]
		if typ == typeRational {
			vo := binary.LittleEndian.Uint32(value)
			value = data[vo : vo+8]
		}
		return typ, count, value
	}
	t.Fatalf("tag %d not found", tag)
	return 0, 0, nil
}

func TestEncode_Compressions(t *testing.T) {
	tests := []struct {
		name string
		c    Compression
		tag  uint16
	}{
		{"raw", None, 1},
		{"lzw", LZW, 5},
		{"deflate", Deflate, 8},
	}

	src := testImage(53, 31, 255)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, &Options{Compression: tt.c, DPI: 300}))

			_, _, v := findTag(t, buf.Bytes(), tagCompression)
			require.Equal(t, tt.tag, binary.LittleEndian.Uint16(v))

			img, err := tiff.Decode(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			require.Equal(t, src.Bounds(), img.Bounds())

			for y := 0; y < 31; y++ {
				for x := 0; x < 53; x++ {
					r, g, b, a := img.At(x, y).RGBA()
					want := src.NRGBAAt(x, y)
					require.Equal(t, uint32(want.R), r>>8)
					require.Equal(t, uint32(want.G), g>>8)
					require.Equal(t, uint32(want.B), b>>8)
					require.Equal(t, uint32(0xffff), a)
				}
			}
		})
	}
}

func TestEncode_Resolution(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testImage(4, 4, 255), &Options{DPI: 150}))

	typ, count, v := findTag(t, buf.Bytes(), tagXResolution)
	require.Equal(t, typeRational, typ)
	require.Equal(t, uint32(1), count)
	require.Equal(t, uint32(150), binary.LittleEndian.Uint32(v[:4]))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(v[4:]))

	_, _, v = findTag(t, buf.Bytes(), tagResolutionUnit)
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(v))
}

func TestEncode_KeepsAlpha(t *testing.T) {
	src := testImage(9, 7, 128)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, &Options{Compression: LZW}))

	_, count, _ := findTag(t, buf.Bytes(), tagBitsPerSample)
	require.Equal(t, uint32(4), count)

	img, err := tiff.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	nrgba, ok := img.(*image.NRGBA)
	require.True(t, ok)
	require.Equal(t, src.NRGBAAt(3, 4), nrgba.NRGBAAt(3, 4))
}

func TestEncode_Errors(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil))
	require.Error(t, Encode(&buf, testImage(2, 2, 255), &Options{Compression: Compression(9)}))
}

func TestCompressLZW_RoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	random := make([]byte, 200000)
	rnd.Read(random)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"single byte", []byte{42}},
		{"repetitive", bytes.Repeat([]byte("abcabcabd"), 5000)},
		{"random forces table resets", random},
		{"runs", bytes.Repeat([]byte{0}, 70000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := lzw.NewReader(bytes.NewReader(compressLZW(tt.data)), lzw.MSB, 8)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, len(tt.data), len(got))
			require.True(t, bytes.Equal(tt.data, got))
		})
	}
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{
		"raw":                None,
		"":                   None,
		"TIFF_LZW":           LZW,
		"tiff_deflate":       Deflate,
		"tiff_adobe_deflate": Deflate,
	} {
		got, err := ParseCompression(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseCompression("jpeg")
	require.Error(t, err)
}

func TestResolutionEXIF(t *testing.T) {
	data := ResolutionEXIF(72)

	_, _, v := findTag(t, data, tagYResolution)
	require.Equal(t, uint32(72), binary.LittleEndian.Uint32(v[:4]))
}
