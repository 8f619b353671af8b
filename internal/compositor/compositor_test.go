package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/UnendingLoop/Watermarker/internal/jpegenc"
	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// fixtures кладет основу и ватермарк во временную папку
func fixtures(t *testing.T) (src, wm string) {
	t.Helper()
	dir := t.TempDir()

	src = filepath.Join(dir, "photo.png")
	require.NoError(t, imaging.Save(solid(400, 200, color.NRGBA{B: 255, A: 255}), src))

	wm = filepath.Join(dir, "watermark.png")
	require.NoError(t, imaging.Save(solid(100, 50, color.NRGBA{R: 255, A: 255}), wm))

	return src, wm
}

func testOptions(wm string) *model.Options {
	return &model.Options{
		WatermarkPath: wm,
		Composite: model.CompositeParams{
			Opacity:     0.5,
			Ratio:       0.1,
			Position:    model.BottomRight,
			TargetWidth: 200,
		},
		Encode: model.EncodeParams{
			Format:  model.FormatJPG,
			DPI:     300,
			Options: model.JPEGOptions{Quality: 90, Subsampling: jpegenc.Subsample444},
		},
		Naming: model.Naming{Prefix: "wm", KeepOriginalName: true},
	}
}

func TestCompositor_Process_Success(t *testing.T) {
	src, wm := fixtures(t)

	var gotKey, gotCT string
	var gotSize int64
	var stored []byte

	c := New(&mockStorage{
		putFn: func(_ context.Context, key string, size int64, ct string, r io.Reader) (string, error) {
			gotKey, gotSize, gotCT = key, size, ct
			data, err := io.ReadAll(r)
			stored = data
			return "out/" + key, err
		},
	})

	location, err := c.Process(context.Background(), testOptions(wm), src, 1)
	require.NoError(t, err)
	require.Equal(t, "out/wm_photo.jpg", location)
	require.Equal(t, "wm_photo.jpg", gotKey)
	require.Equal(t, "image/jpeg", gotCT)
	require.Equal(t, int64(len(stored)), gotSize)

	img, err := jpeg.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	require.Equal(t, 200, img.Bounds().Dx())
	require.Equal(t, 100, img.Bounds().Dy())
}

func TestCompositor_Process_SequentialName(t *testing.T) {
	src, wm := fixtures(t)
	opts := testOptions(wm)
	opts.Naming.KeepOriginalName = false
	opts.Encode = model.EncodeParams{Format: model.FormatPNG, Options: model.PNGOptions{CompressionLevel: 1}}

	var gotKey string
	c := New(&mockStorage{
		putFn: func(_ context.Context, key string, _ int64, _ string, _ io.Reader) (string, error) {
			gotKey = key
			return key, nil
		},
	})

	_, err := c.Process(context.Background(), opts, src, 7)
	require.NoError(t, err)
	require.Equal(t, "wm_007.png", gotKey)
}

func TestCompositor_Process_Fail(t *testing.T) {
	src, wm := fixtures(t)

	broken := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(broken, []byte("not an image"), 0o644))

	storeErr := errors.New("disk full")

	tests := []struct {
		name    string
		src     string
		wm      string
		format  model.Format
		putErr  error
		wantErr error
	}{
		{"broken base", broken, wm, model.FormatJPG, nil, model.ErrDecode},
		{"missing watermark", src, filepath.Join(t.TempDir(), "nope.png"), model.FormatJPG, nil, model.ErrDecode},
		{"unsupported output", src, wm, model.Format("BMP"), nil, model.ErrUnsupportedFormat},
		{"storage error", src, wm, model.FormatJPG, storeErr, storeErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(tt.wm)
			opts.Encode.Format = tt.format

			called := false
			c := New(&mockStorage{
				putFn: func(_ context.Context, key string, _ int64, _ string, _ io.Reader) (string, error) {
					called = true
					return "", tt.putErr
				},
			})

			_, err := c.Process(context.Background(), opts, tt.src, 1)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, model.ErrProcessing)

			var pErr *model.ProcessingError
			require.ErrorAs(t, err, &pErr)
			require.Equal(t, tt.src, pErr.Source)

			require.Equal(t, tt.putErr != nil, called)
		})
	}
}
