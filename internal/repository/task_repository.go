package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"ozzus/relayping/internal/domain"
	repokafka "ozzus/relayping/internal/repository/kafka"
)

const (
	maxTasksPerFetch = 100
	fetchWindow      = 5 * time.Second
)

type TaskRepository interface {
	FetchTasks(ctx context.Context) ([]domain.Task, error)
	AckTask(ctx context.Context, taskID string) error
	NackTask(taskID string)
}

// EventReader is implemented by *kafka.Consumer.
type EventReader interface {
	ReadEvent(ctx context.Context, v interface{}) (kafkago.Message, error)
	CommitMessage(ctx context.Context, msg kafkago.Message) error
}

type KafkaTaskRepository struct {
	consumer EventReader
	log      *slog.Logger
	window   time.Duration

	mu       sync.Mutex
	messages map[string]kafkago.Message
}

func NewKafkaTaskRepository(consumer EventReader, log *slog.Logger) *KafkaTaskRepository {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaTaskRepository{
		consumer: consumer,
		log:      log,
		window:   fetchWindow,
		messages: make(map[string]kafkago.Message),
	}
}

// FetchTasks reads up to maxTasksPerFetch tasks or until the fetch window
// closes. Messages that do not decode or carry no task id are committed and
// dropped.
func (r *KafkaTaskRepository) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task

	timeoutCtx, cancel := context.WithTimeout(ctx, r.window)
	defer cancel()

	for len(tasks) < maxTasksPerFetch {
		if timeoutCtx.Err() != nil {
			break
		}

		var task domain.Task
		msg, err := r.consumer.ReadEvent(timeoutCtx, &task)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}

			if errors.Is(err, repokafka.ErrDecode) {
				r.log.Warn("dropping undecodable task", "offset", msg.Offset, "error", err)
				r.commit(ctx, msg)
				continue
			}

			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		if task.ID == "" {
			r.log.Warn("dropping task without id", "offset", msg.Offset)
			r.commit(ctx, msg)
			continue
		}

		r.mu.Lock()
		r.messages[task.ID] = msg
		r.mu.Unlock()

		tasks = append(tasks, task)
	}

	return tasks, nil
}

func (r *KafkaTaskRepository) commit(ctx context.Context, msg kafkago.Message) {
	if err := r.consumer.CommitMessage(ctx, msg); err != nil {
		r.log.Error("failed to commit message", "offset", msg.Offset, "error", err)
	}
}

func (r *KafkaTaskRepository) AckTask(ctx context.Context, taskID string) error {
	r.mu.Lock()
	msg, ok := r.messages[taskID]
	r.mu.Unlock()

	if !ok {
		return nil
	}

	const maxRetries = 3

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ctx.Err()
			}
			if remaining < timeout {
				timeout = remaining
			}
		}

		commitCtx, cancel := context.WithTimeout(context.Background(), timeout)

		if err := r.consumer.CommitMessage(commitCtx, msg); err != nil {
			cancel()
			lastErr = err

			if ctx.Err() != nil {
				break
			}

			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}

		cancel()

		r.mu.Lock()
		delete(r.messages, taskID)
		r.mu.Unlock()

		return nil
	}

	return fmt.Errorf("failed to commit message: %w", lastErr)
}

// NackTask forgets the message without committing it, so the group
// redelivers it after a rebalance.
func (r *KafkaTaskRepository) NackTask(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, taskID)
}
