package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/gosight/gazetrace/internal/config"
	"github.com/gosight/gazetrace/internal/instant"
	"github.com/gosight/gazetrace/internal/storage"
	"github.com/gosight/gazetrace/internal/timeline"
)

// Notice announces a finished trial analysis to downstream consumers.
type Notice struct {
	RunID            string   `json:"run_id"`
	TrialID          string   `json:"trial_id"`
	Reason           string   `json:"reason"`
	Fixations        uint32   `json:"fixations"`
	Events           uint32   `json:"events"`
	Started          string   `json:"started,omitempty"`
	Duration         string   `json:"duration,omitempty"`
	AverageDuration  float64  `json:"average_duration"`
	AverageAmplitude float64  `json:"average_amplitude"`
	Warnings         []string `json:"warnings,omitempty"`
	PublishedAt      int64    `json:"published_at"`
}

func newNotice(row storage.TrialRow, reason string) Notice {
	n := Notice{
		RunID:            row.RunID,
		TrialID:          row.TrialID,
		Reason:           reason,
		Fixations:        row.FixationsCount,
		Events:           row.EventsCount,
		AverageDuration:  row.AverageDuration,
		AverageAmplitude: row.AverageAmplitude,
		Warnings:         row.Warnings,
		PublishedAt:      time.Now().UnixMilli(),
		Started:          timeline.FormatDate(instant.FromTime(row.StartedAt)),
	}
	if row.DurationMs > 0 {
		n.Duration = timeline.FormatOffset(row.DurationMs)
	}
	return n
}

// KafkaNotifier publishes notices to the "analyses" topic
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier returns nil when no analyses topic is configured.
func NewKafkaNotifier(cfg config.KafkaConfig) *KafkaNotifier {
	topic, ok := cfg.Topics["analyses"]
	if !ok || len(cfg.Brokers) == 0 {
		return nil
	}

	log.Info().Str("topic", topic).Msg("Kafka analysis notifier initialized")
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			BatchSize:              1,
			BatchTimeout:           time.Millisecond * 10,
			Async:                  true,
			AllowAutoTopicCreation: true,
		},
	}
}

func (n *KafkaNotifier) Publish(ctx context.Context, notice Notice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(notice.TrialID),
		Value: data,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
