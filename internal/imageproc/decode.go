package imageproc

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Decode reads one raster image. Every failure is reported as model.ErrDecode.
func Decode(r io.Reader) (image.Image, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecode, errors.New("nil-reader provided"))
	}

	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecode, err)
	}
	return img, nil
}

func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecode, err)
	}
	defer closeFileFlow(f)

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return img, nil
}

func closeFileFlow(res io.Closer) {
	if err := res.Close(); err != nil {
		log.Println("Failed to close fileflow:", err)
	}
}
