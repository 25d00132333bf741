package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/skipperr254/passai-backend/config"

	kafka "github.com/segmentio/kafka-go"
)

// TextExtracted is published after a material reaches the ready state so
// downstream consumers (indexing, quiz generation) can pick up the new text.
type TextExtracted struct {
	MaterialID string `json:"material_id"`
	UserID     string `json:"user_id"`
	TextLength int    `json:"text_length"`
	FileType   string `json:"file_type"`
}

type Publisher interface {
	PublishTextExtracted(ctx context.Context, event TextExtracted) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns nil when no brokers are configured; callers treat
// a nil publisher as disabled.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	brokers := splitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil
	}
	return &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		}),
	}
}

func (p *KafkaPublisher) PublishTextExtracted(ctx context.Context, event TextExtracted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.MaterialID),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func splitBrokers(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
