// Package runlog provides run-id logging for a batch run
package runlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

type (
	loggerWithRunID struct{}
	runIDKey        struct{}
)

// WithRun - присваивает прогону UUID и кладет логгер с ним в контекст
func WithRun(ctx context.Context) (context.Context, string) {
	runID := uuid.NewString()

	logger := zlog.Logger.With().
		Str("run_id", runID).
		Logger()

	ctx = context.WithValue(ctx, loggerWithRunID{}, logger)
	ctx = context.WithValue(ctx, runIDKey{}, runID)
	return ctx, runID
}

// RunID returns the id put by WithRun or an empty string.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// LoggerFromContext extracts logger from context - used in compositor and worker
func LoggerFromContext(ctx context.Context) zlog.Zerolog {
	if l, ok := ctx.Value(loggerWithRunID{}).(zlog.Zerolog); ok {
		return l
	}
	return zlog.Logger
}
