package notify

import (
	"context"

	"github.com/wb-go/wbf/retry"
)

type mockPublisher struct {
	sendFn func(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, strategy, key, v)
}
