// Package kafka provides methods for initiating the report topic and a kafka readiness-probing
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// InitKafkaTopics - creates topics in kafka, gives up when ctx is done
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{
		Topics: make([]kafkago.TopicConfig, 0, len(topics)),
	}

	for _, t := range topics {
		topic := kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
		req.Topics = append(req.Topics, topic)
	}

	for {
		resp, err := client.CreateTopics(ctx, &req)
		if err != nil {
			log.Printf("Failed to run topics creation request: %v\nWait %v before next try...", err, delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return fmt.Errorf("topics creation canceled: %w", err)
			}
			continue
		}

		if failed := topicErrors(resp.Errors); len(failed) > 0 {
			return fmt.Errorf("failed to create topics: %w", errors.Join(failed...))
		}
		log.Println("All topics created successfully!")
		return nil
	}
}

// topicErrors - уже существующий топик ошибкой не считается
func topicErrors(errs map[string]error) []error {
	var failed []error
	for k, v := range errs {
		switch {
		case v == nil, errors.Is(v, kafkago.TopicAlreadyExists):
		default:
			failed = append(failed, fmt.Errorf("topic %q: %w", k, v))
		}
	}
	return failed
}

// WaitKafkaReady - timeout given to kafka-service for getting fully functional
func WaitKafkaReady(ctx context.Context, brokerAddr string, attempts int, delay time.Duration) error {
	var lastErr error
	dialer := &kafkago.Dialer{Timeout: delay}

	for i := 1; i <= attempts; i++ {
		conn, err := dialer.DialContext(ctx, "tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				log.Println("Failed to close connection after testing Kafka readyness:", errConn)
			}
			log.Println("Kafka is ready!")
			return nil
		}
		lastErr = err
		log.Printf("Kafka not ready (attempt %d/%d), retrying in %v...", i, attempts, delay)

		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("kafka %q is not ready after %d attempts: %w", brokerAddr, attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
