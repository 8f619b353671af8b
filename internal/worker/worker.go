// Package worker contains the batch driver: it walks the input folder and feeds every picture to the compositor
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/runlog"
)

type Processor interface {
	Process(ctx context.Context, opts *model.Options, src string, index int) (string, error)
}

type Worker struct {
	proc     Processor
	inputDir string
	opts     *model.Options
}

func NewWorkerInstance(proc Processor, inputDir string, opts *model.Options) *Worker {
	return &Worker{proc: proc, inputDir: inputDir, opts: opts}
}

// Run processes the input folder one file at a time. A failed file is logged and
// counted, the batch goes on. Cancellation is checked between files, the report
// built so far is returned together with the context error.
func (w *Worker) Run(ctx context.Context) (model.Report, error) {
	logger := runlog.LoggerFromContext(ctx)
	report := model.Report{RunID: runlog.RunID(ctx), InputDir: w.inputDir}

	files, err := w.listInputs()
	if err != nil {
		return report, err
	}
	report.Total = len(files)
	logger.Info().Int("total", report.Total).Str("input", w.inputDir).Msg("Batch started")

	for i, src := range files {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("done", i).Int("total", report.Total).Msg("Batch interrupted")
			return report, err
		}

		location, err := w.proc.Process(ctx, w.opts, src, i+1)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, model.FileFailure{Source: src, Error: err.Error()})
			logger.Warn().Err(err).Str("source", src).Str("kind", errorKind(err)).Msg("Skipping file")
		} else {
			report.Succeeded++
			report.Outputs = append(report.Outputs, location)
		}

		logger.Info().Msgf("processed %d/%d", i+1, report.Total)
	}

	return report, nil
}

// listInputs returns full paths of supported pictures sorted by name
func (w *Worker) listInputs() ([]string, error) {
	entries, err := os.ReadDir(w.inputDir) // ReadDir уже сортирует по имени
	if err != nil {
		return nil, fmt.Errorf("failed to list input folder %q: %w", w.inputDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !model.InputExtMap[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(w.inputDir, e.Name()))
	}
	return files, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrDecode):
		return "decode"
	case errors.Is(err, model.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, model.ErrProcessing):
		return "processing"
	default:
		return "unknown"
	}
}
