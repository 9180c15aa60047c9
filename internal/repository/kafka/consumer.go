package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrDecode marks a fetched message whose value is not valid JSON for the
// requested type.
var ErrDecode = errors.New("decode kafka message")

type Consumer struct {
	reader *kafka.Reader
	topic  string
	log    *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			StartOffset: kafka.FirstOffset,
			Topic:       topic,
			GroupID:     groupID,
			MaxWait:     10 * time.Second,
		}),
		topic: topic,
		log:   log.With(slog.String("topic", topic)),
	}
}

// CheckConnection dials the first broker and reads the topic partitions.
func (c *Consumer) CheckConnection(ctx context.Context) error {
	brokers := c.reader.Config().Brokers
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(c.topic)
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	c.log.Info("kafka connection ok", "partitions", len(partitions))
	return nil
}

func (c *Consumer) ReadEvent(ctx context.Context, v interface{}) (kafka.Message, error) {
	c.log.Debug("attempting to fetch message from kafka", "group", c.reader.Config().GroupID)

	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			c.log.Error("failed to fetch message", "error", err)
		}
		return msg, err
	}

	c.log.Debug("received message",
		"key", string(msg.Key),
		"partition", msg.Partition,
		"offset", msg.Offset,
		"value_length", len(msg.Value))

	if err := json.Unmarshal(msg.Value, v); err != nil {
		return msg, fmt.Errorf("%w at offset %d: %v", ErrDecode, msg.Offset, err)
	}

	return msg, nil
}

func (c *Consumer) CommitMessage(ctx context.Context, msg kafka.Message) error {
	return c.reader.CommitMessages(ctx, msg)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) Topic() string {
	return c.topic
}
