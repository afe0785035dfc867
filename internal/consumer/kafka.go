package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/gosight/gazetrace/internal/config"
)

const defaultTopic = "gazetrace.trials.raw"

// MessageProcessor handles decoded trial messages
type MessageProcessor interface {
	Process(ctx context.Context, msg map[string]interface{}) error
	Flush()
}

// fetcher is the part of kafka.Reader the consumer loop needs
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer consumes trial messages from Kafka
type KafkaConsumer struct {
	reader    fetcher
	topic     string
	group     string
	processor MessageProcessor
}

// NewKafkaConsumer creates a new Kafka consumer. Messages of one trial must
// share a partition key so that they arrive in order.
func NewKafkaConsumer(cfg config.KafkaConfig, processor MessageProcessor) (*KafkaConsumer, error) {
	topic := cfg.Topics["trials"]
	if topic == "" {
		topic = defaultTopic
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1e3,  // 1KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaConsumer{
		reader:    reader,
		topic:     topic,
		group:     cfg.ConsumerGroup,
		processor: processor,
	}, nil
}

// Start begins consuming messages until ctx is cancelled
func (c *KafkaConsumer) Start(ctx context.Context) {
	log.Info().
		Str("topic", c.topic).
		Str("group", c.group).
		Msg("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Kafka consumer stopped")
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		c.handle(ctx, msg)
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		log.Error().
			Err(err).
			Str("key", string(msg.Key)).
			Int64("offset", msg.Offset).
			Msg("Failed to parse message")
	} else if err := c.processor.Process(ctx, payload); err != nil {
		log.Error().
			Err(err).
			Str("key", string(msg.Key)).
			Int64("offset", msg.Offset).
			Msg("Failed to process message")
	}

	// Commit even on failure to avoid getting stuck
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error().Err(err).Msg("Failed to commit message")
	}
}

// Close closes the consumer
func (c *KafkaConsumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	// Flush remaining rows before closing
	c.processor.Flush()
	return c.reader.Close()
}
