package compositor

import (
	"context"
	"io"
)

// MOCK STORAGE

type mockStorage struct {
	putFn func(ctx context.Context, key string, size int64, ct string, r io.Reader) (string, error)
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) (string, error) {
	return m.putFn(ctx, key, size, ct, r)
}
