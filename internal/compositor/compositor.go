// Package compositor provides the watermarking pipeline for a single source image
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/UnendingLoop/Watermarker/internal/codec"
	"github.com/UnendingLoop/Watermarker/internal/imageproc"
	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/runlog"
)

// ResultStorage - контракт для работы с хранилищем результатов
type ResultStorage interface {
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) (string, error)
}

type Compositor struct {
	storage ResultStorage
}

func New(strg ResultStorage) *Compositor {
	return &Compositor{storage: strg}
}

// Process watermarks src and stores the encoded result. index is the 1-based
// position of src in the batch. Any failure comes back as *model.ProcessingError.
func (c *Compositor) Process(ctx context.Context, opts *model.Options, src string, index int) (string, error) {
	location, err := c.process(ctx, opts, src, index)
	if err != nil {
		return "", &model.ProcessingError{Source: src, Err: err}
	}
	return location, nil
}

func (c *Compositor) process(ctx context.Context, opts *model.Options, src string, index int) (string, error) {
	logger := runlog.LoggerFromContext(ctx)

	// основа
	base, err := imageproc.DecodeFile(src)
	if err != nil {
		return "", fmt.Errorf("base image: %w", err)
	}
	base = imageproc.ResizeToWidth(base, opts.Composite.TargetWidth)

	// ватермарк читаем заново для каждого файла
	wm, err := imageproc.DecodeFile(opts.WatermarkPath)
	if err != nil {
		return "", fmt.Errorf("watermark image: %w", err)
	}

	result, box := imageproc.Watermarker(base, wm, opts.Composite)

	name := opts.Naming.FileName(src, index, opts.Encode.Format)

	var buf bytes.Buffer
	if err := codec.Encode(&buf, result, opts.Encode); err != nil {
		return "", fmt.Errorf("encode %q: %w", name, err)
	}

	location, err := c.storage.Put(ctx, name, int64(buf.Len()), model.GetCType[opts.Encode.Format], &buf)
	if err != nil {
		return "", fmt.Errorf("store %q: %w", name, err)
	}

	logger.Debug().
		Str("source", src).
		Str("output", location).
		Str("mark", box.String()).
		Int("size", result.Bounds().Dx()).
		Msg("Image watermarked")

	return location, nil
}
