package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/workradius/internal/core/domain"
)

const (
	// StreamName is the JetStream stream carrying every job event.
	StreamName = "JOBS"

	SubjectPosted    = "jobs.posted"
	SubjectGeotagged = "jobs.geotagged"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	now  func() time.Time
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js, now: time.Now}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"jobs.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// PublishJobPosted announces a newly created posting on jobs.posted.<id>.
func (p *Publisher) PublishJobPosted(ctx context.Context, job *domain.JobPosting) error {
	return p.publish(ctx, SubjectPosted, domain.JobEventPosted, job)
}

// PublishJobGeotagged announces a posting that gained a coordinate on jobs.geotagged.<id>.
func (p *Publisher) PublishJobGeotagged(ctx context.Context, job *domain.JobPosting) error {
	return p.publish(ctx, SubjectGeotagged, domain.JobEventGeotagged, job)
}

func (p *Publisher) publish(ctx context.Context, prefix, typ string, job *domain.JobPosting) error {
	data, err := encodeEvent(typ, job, p.now())
	if err != nil {
		return err
	}
	_, err = p.js.Publish(prefix+"."+job.ID, data, nats.Context(ctx), nats.MsgId(msgID(typ, job)))
	return err
}

// msgID is the JetStream dedupe id. Geotagged ids carry the coordinate so a
// corrected location is announced again inside the duplicate window.
func msgID(typ string, job *domain.JobPosting) string {
	if typ == domain.JobEventGeotagged && job.HasCoordinate() {
		return fmt.Sprintf("%s-%s-%.6f,%.6f", typ, job.ID, job.Coordinate.Lat, job.Coordinate.Lon)
	}
	return typ + "-" + job.ID
}

func encodeEvent(typ string, job *domain.JobPosting, at time.Time) ([]byte, error) {
	return json.Marshal(domain.JobEvent{Type: typ, Job: *job, Time: at.UTC()})
}

// Conn exposes the underlying connection for plain subscriptions.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// connect dials NATS, retrying in the background until the server is up.
func connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
