// Package storage picks the result sink for a batch run: output folder on disk or a minio bucket
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/UnendingLoop/Watermarker/internal/storage/localstorage"
	"github.com/UnendingLoop/Watermarker/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

type ResultStorage interface {
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) (string, error)
}

type Config struct {
	Backend   string
	OutputDir string
	Minio     miniostorage.Config
	Attempts  int
	Delay     time.Duration
}

// ConfigFromEnv - параметры подключения из env, объекты прогона кладутся в папку с его run id
func ConfigFromEnv(cfg *config.Config, outputDir, runID string) Config {
	return Config{
		Backend:   cfg.GetString("OUTPUT_BACKEND"),
		OutputDir: outputDir,
		Minio: miniostorage.Config{
			Endpoint: cfg.GetString("MINIO_CONTAINER_NAME") + ":9000",
			User:     cfg.GetString("MINIO_USER"),
			Pass:     cfg.GetString("MINIO_PASS"),
			Bucket:   cfg.GetString("BUCKET_NAME"),
			Prefix:   runID,
		},
		Attempts: 5,
		Delay:    5 * time.Second,
	}
}

// NewResultStorage - локальная папка по умолчанию
func NewResultStorage(ctx context.Context, c Config) (ResultStorage, error) {
	switch backend := strings.ToLower(strings.TrimSpace(c.Backend)); backend {
	case "", BackendLocal:
		return localstorage.New(c.OutputDir)
	case BackendMinio:
		return NewMinioStorage(ctx, c.Minio, c.Attempts, c.Delay)
	default:
		return nil, fmt.Errorf("unknown OUTPUT_BACKEND %q", c.Backend)
	}
}

func NewMinioStorage(ctx context.Context, mcfg miniostorage.Config, attempts int, delay time.Duration) (*miniostorage.MinioResultStorage, error) {
	var lastErr error

	for i := 1; i <= attempts; i++ {
		log.Println("Connecting to result storage...")
		client, err := miniostorage.NewMinioClient(ctx, mcfg)
		if err == nil {
			log.Println("Successfully connected result storage!")
			return client, nil
		}
		lastErr = err
		log.Printf("Failed to init connection to result storage (attempt %d/%d): %v\nNext retry in %v...", i, attempts, err, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("result storage is unreachable after %d attempts: %w", attempts, lastErr)
}
