// Package localstorage writes watermarked results into the output folder
package localstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

type LocalResultStorage struct {
	dir string
}

// New creates the output folder when it does not exist yet
func New(dir string) (*LocalResultStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder %q: %w", dir, err)
	}
	return &LocalResultStorage{dir: dir}, nil
}

// Put writes r to dir/key, an existing file is overwritten. size and
// contentType are not needed on disk.
func (s *LocalResultStorage) Put(ctx context.Context, key string, _ int64, _ string, r io.Reader) (string, error) {
	if r == nil {
		return "", errors.New("nil reader passed to storage.Put")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, filepath.Base(key))
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		closeFile(f)
		_ = os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	return dst, nil
}

func closeFile(f *os.File) {
	if err := f.Close(); err != nil {
		log.Println("Failed to close output file:", err)
	}
}
