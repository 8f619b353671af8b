package worker

import (
	"context"

	"github.com/UnendingLoop/Watermarker/internal/model"
)

type mockProcessor struct {
	processFn func(ctx context.Context, opts *model.Options, src string, index int) (string, error)
}

func (m *mockProcessor) Process(ctx context.Context, opts *model.Options, src string, index int) (string, error) {
	return m.processFn(ctx, opts, src, index)
}
