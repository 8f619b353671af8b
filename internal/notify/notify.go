// Package notify publishes the batch report to a queue once the run is over
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/UnendingLoop/Watermarker/internal/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/wb-go/wbf/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher - контракт для работы с очередью
type Publisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// NoopPublisher - ЗАГЛУШКА, когда KAFKA_BROKER не задан
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error {
	return nil
}

// Стратегия ретрая отправки в очередь
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

type ReportNotifier struct {
	pub      Publisher
	strategy retry.Strategy
}

func NewReportNotifier(pub Publisher) *ReportNotifier {
	return &ReportNotifier{pub: pub, strategy: retryStrategy}
}

// Publish sends the report as JSON keyed by its run id
func (n *ReportNotifier) Publish(ctx context.Context, report model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := n.pub.SendWithRetry(ctx, n.strategy, []byte(report.RunID), data); err != nil {
		return fmt.Errorf("failed to publish report of run %q: %w", report.RunID, err)
	}
	return nil
}
