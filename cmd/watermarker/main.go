// Package main provides launch of the batch watermarking run
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/Watermarker/internal/asset"
	"github.com/UnendingLoop/Watermarker/internal/compositor"
	"github.com/UnendingLoop/Watermarker/internal/kafka"
	"github.com/UnendingLoop/Watermarker/internal/notify"
	"github.com/UnendingLoop/Watermarker/internal/runlog"
	"github.com/UnendingLoop/Watermarker/internal/settings"
	"github.com/UnendingLoop/Watermarker/internal/storage"
	"github.com/UnendingLoop/Watermarker/internal/worker"
	"github.com/wb-go/wbf/config"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

const (
	defaultSettingsPath = "bin/settings.json"
	defaultReportTopic  = "watermark-reports"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if _, err := os.Stat("./.env"); err == nil {
		if err := appConfig.LoadEnvFiles("./.env"); err != nil {
			log.Fatalf("Failed to load envs: %s\nExiting app...", err)
		}
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(envOr(appConfig, "LOG_LEVEL", "info")); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// прерывание останавливает батч между файлами
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, appConfig)
	stop()
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Watermarking run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, appConfig *config.Config) error {
	settingsPath := envOr(appConfig, "SETTINGS_PATH", defaultSettingsPath)

	s, err := settings.Load(settingsPath)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("path", settingsPath).Msg("Settings file is unusable, falling back to defaults")
		s = settings.Default()
	}

	// ватермарк лежит по фиксированному пути, WATERMARK_SOURCE его заменяет
	wm := asset.New(appConfig.GetString("WATERMARK_PATH"))
	if src := appConfig.GetString("WATERMARK_SOURCE"); src != "" {
		if err := wm.Replace(src); err != nil {
			return err
		}
		zlog.Logger.Info().Str("source", src).Msg("Watermark replaced")
	}
	if err := wm.Exists(); err != nil {
		return err
	}

	if err := s.Validate(); err != nil {
		return err
	}
	opts, err := s.Options(wm.Path())
	if err != nil {
		return err
	}

	ctx, runID := runlog.WithRun(ctx)
	logger := runlog.LoggerFromContext(ctx)

	strg, err := storage.NewResultStorage(ctx, storage.ConfigFromEnv(appConfig, s.OutputFolder, runID))
	if err != nil {
		return fmt.Errorf("failed to init result storage: %w", err)
	}

	pub, closePub := newPublisher(ctx, appConfig)
	defer closePub()

	var batch BatchRunner = worker.NewWorkerInstance(compositor.New(strg), s.InputFolder, opts)
	report, err := batch.Run(ctx)
	logger.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msgf("processed %d/%d", report.Succeeded, report.Total)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("Run interrupted, settings are not saved")
		}
		return err
	}

	if err := s.Save(settingsPath); err != nil {
		logger.Warn().Err(err).Msg("Failed to save settings")
	}

	var notifier ReportPublisher = notify.NewReportNotifier(pub)
	if err := notifier.Publish(ctx, report); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish batch report")
	}

	return nil
}

// newPublisher - кафка не обязательна: без брокера или при его недоступности отчет никуда не уходит
func newPublisher(ctx context.Context, appConfig *config.Config) (notify.Publisher, func()) {
	broker := appConfig.GetString("KAFKA_BROKER")
	if broker == "" {
		return notify.NoopPublisher{}, func() {}
	}

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, broker, 5, 5*time.Second); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Kafka is unavailable, report will not be published")
		return notify.NoopPublisher{}, func() {}
	}

	topic := envOr(appConfig, "KAFKA_TOPIC", defaultReportTopic)
	initCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := kafka.InitKafkaTopics(initCtx, broker, 5*time.Second, topic); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Failed to init report topic")
	}

	pub := wbfkafka.NewProducer([]string{broker}, topic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Println("Failed to close Kafka-producer:", err)
		}
		log.Println("Kafka-producer connection closed.")
	}
}

func envOr(appConfig *config.Config, key, def string) string {
	if v := appConfig.GetString(key); v != "" {
		return v
	}
	return def
}
