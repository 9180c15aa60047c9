package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ozzus/relayping/internal/domain"
)

type ResultRepository interface {
	SendResult(ctx context.Context, result domain.CheckResult) error
	SendLog(ctx context.Context, logEntry domain.LogEntry) error
}

// EventPublisher is implemented by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
	Topic() string
}

type KafkaResultRepository struct {
	resultsProducer EventPublisher
	logsProducer    EventPublisher
	log             *slog.Logger
}

func NewKafkaResultRepository(resultsProducer, logsProducer EventPublisher, log *slog.Logger) *KafkaResultRepository {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaResultRepository{
		resultsProducer: resultsProducer,
		logsProducer:    logsProducer,
		log:             log,
	}
}

func (r *KafkaResultRepository) SendResult(ctx context.Context, result domain.CheckResult) error {
	if err := r.resultsProducer.PublishEvent(ctx, result.TaskID, result); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}

	r.log.Info("sent result",
		"task_id", result.TaskID,
		"topic", r.resultsProducer.Topic(),
		"status", result.Status,
		"display", result.Display,
	)
	return nil
}

// SendLog publishes logEntry under a fresh key so entries of one task spread
// across partitions.
func (r *KafkaResultRepository) SendLog(ctx context.Context, logEntry domain.LogEntry) error {
	key := fmt.Sprintf("%s-%s", logEntry.TaskID, uuid.NewString())
	if err := r.logsProducer.PublishEvent(ctx, key, logEntry); err != nil {
		return fmt.Errorf("failed to publish log: %w", err)
	}
	r.log.Debug("sent log", "task_id", logEntry.TaskID, "topic", r.logsProducer.Topic())
	return nil
}
