package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/config"
	"github.com/chirino/social-service/internal/registry/events"
	"github.com/segmentio/kafka-go"
)

func init() {
	events.Register(events.Plugin{
		Name:   "kafka",
		Loader: load,
	})
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func load(ctx context.Context) (events.Publisher, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("kafka events: missing config")
	}
	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka events: SOCIAL_SERVICE_KAFKA_BROKERS is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("Kafka event publisher enabled", "brokers", brokers, "topic", cfg.KafkaTopic)
	return New(w), nil
}

// Publisher writes events as JSON to a single topic, keyed by Event.Key so events
// for the same entity land on the same partition.
type Publisher struct {
	writer MessageWriter
}

// New creates a Publisher over w.
func New(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

func (p *Publisher) Publish(ctx context.Context, evs ...events.Event) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("kafka events: encode %s: %w", ev.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(ev.Key),
			Value:   value,
			Time:    ev.OccurredAt,
			Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka events: write: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ events.Publisher = (*Publisher)(nil)
