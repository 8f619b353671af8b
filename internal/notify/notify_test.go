package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
)

func TestReportNotifier_Publish(t *testing.T) {
	report := model.Report{
		RunID:     "run-1",
		InputDir:  "/in",
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Outputs:   []string{"/out/a.jpg"},
		Failures:  []model.FileFailure{{Source: "/in/b.png", Error: "broken"}},
	}

	var gotKey []byte
	var got model.Report
	pub := &mockPublisher{
		sendFn: func(_ context.Context, strategy retry.Strategy, key []byte, v []byte) error {
			require.Equal(t, retryStrategy, strategy)
			gotKey = key
			return json.Unmarshal(v, &got)
		},
	}

	require.NoError(t, NewReportNotifier(pub).Publish(context.Background(), report))
	require.Equal(t, []byte("run-1"), gotKey)
	require.Equal(t, report, got)
}

func TestReportNotifier_Publish_Fail(t *testing.T) {
	pub := &mockPublisher{
		sendFn: func(context.Context, retry.Strategy, []byte, []byte) error {
			return errors.New("broker down")
		},
	}

	err := NewReportNotifier(pub).Publish(context.Background(), model.Report{RunID: "x"})
	require.ErrorContains(t, err, "broker down")
}

func TestNoopPublisher(t *testing.T) {
	require.NoError(t, NewReportNotifier(NoopPublisher{}).Publish(context.Background(), model.Report{}))
}
