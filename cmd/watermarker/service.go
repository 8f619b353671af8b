package main

import (
	"context"

	"github.com/UnendingLoop/Watermarker/internal/model"
)

type BatchRunner interface {
	Run(ctx context.Context) (model.Report, error)
}

type ReportPublisher interface {
	Publish(ctx context.Context, report model.Report) error
}
