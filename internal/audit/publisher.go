package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Event is one verification attempt as seen by the audit trail. It carries
// the correlation fields and the outcome, never the raw SAT response.
type Event struct {
	UUID        string    `json:"uuid"`
	EmisorRFC   string    `json:"emisor_rfc"`
	ReceptorRFC string    `json:"receptor_rfc"`
	UserID      int64     `json:"user_id"`
	Outcome     string    `json:"outcome"`
	Estado      string    `json:"estado,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher emits verification audit events to Kafka. A nil *Publisher is
// valid and drops every event, so audit stays optional: handlers publish
// unconditionally and configuration decides whether anything listens.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the given brokers and makes sure the topic exists.
// Returns (nil, nil) when brokers is empty.
func NewPublisher(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, -1, nil, topic); err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish sends one event asynchronously. Audit must never block or fail a
// verification, so produce errors are only logged.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}
	value, err := json.Marshal(ev)
	if err != nil {
		p.logger.ErrorContext(ctx, "could not encode audit event", "error", err)
		return
	}
	record := &kgo.Record{Key: []byte(ev.UUID), Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.ErrorContext(ctx, "audit event produce failed",
				"uuid", ev.UUID,
				"error", err,
			)
		}
	})
}

// Close flushes pending events and releases the client.
func (p *Publisher) Close(ctx context.Context) {
	if p == nil {
		return
	}
	if err := p.client.Flush(ctx); err != nil {
		p.logger.ErrorContext(ctx, "audit flush failed", "error", err)
	}
	p.client.Close()
}
