// Package asset manages the watermark picture kept at a fixed path
package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/UnendingLoop/Watermarker/internal/model"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const DefaultPath = "bin/logo/watermark.png"

type Store struct {
	path string
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Exists() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return fmt.Errorf("%w: %q", model.ErrWatermarkMissing, s.path)
	}
	return err
}

// Replace copies src over the stored watermark byte for byte once it is known
// to decode as an image.
func (s *Store) Replace(src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read new watermark %q: %w", src, err)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %q: %w", model.ErrDecode, src, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create watermark folder: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write watermark: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace watermark: %w", err)
	}
	return nil
}
