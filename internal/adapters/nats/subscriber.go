package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using durable JetStream consumers.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber connects to NATS. Consumer names are derived from durable,
// so every process sharing it shares the work.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeJobPosted delivers jobs.posted.> events.
func (s *Subscriber) SubscribeJobPosted(ctx context.Context, handler func(ctx context.Context, event *domain.JobEvent) error) error {
	return s.subscribe(ctx, SubjectPosted+".>", s.durable+"-posted", handler)
}

func (s *Subscriber) subscribe(ctx context.Context, subject, durable string, handler func(ctx context.Context, event *domain.JobEvent) error) error {
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		event, err := DecodeEvent(msg.Data)
		if err != nil {
			// Redelivery will not fix a bad payload.
			slog.Warn("dropping malformed job event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, event); err != nil {
			slog.Warn("job event handler failed", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(5),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// DecodeEvent parses a job event payload.
func DecodeEvent(data []byte) (*domain.JobEvent, error) {
	var event domain.JobEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Job.ID == "" {
		return nil, fmt.Errorf("job event without job id")
	}
	return &event, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
