package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inventory-sync/core/reconcile"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// CloudEvent is a CloudEvents 1.0 envelope.
type CloudEvent struct {
	SpecVersion     string     `json:"specversion"`
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Type            string     `json:"type"`
	DataContentType string     `json:"datacontenttype,omitempty"`
	Subject         string     `json:"subject,omitempty"`
	Time            *time.Time `json:"time,omitempty"`
	Data            any        `json:"data,omitempty"`
}

// publisher is the subset of jetstream.JetStream used by Nats.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Nats publishes events as CloudEvents to a JetStream stream.
type Nats struct {
	nc    *nats.Conn
	js    publisher
	cfg   NatsConfig
	newID func() string
}

// ConnectNats connects to NATS and makes sure the stream exists.
func ConnectNats(ctx context.Context, cfg NatsConfig) (*Nats, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name(cfg.Source))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.Stream(ctx, cfg.Stream); err != nil {
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{cfg.SubjectPrefix + ".>"},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create or get stream %s: %w", cfg.Stream, err)
		}
	}

	n := newNats(js, cfg)
	n.nc = nc
	return n, nil
}

func newNats(js publisher, cfg NatsConfig) *Nats {
	return &Nats{js: js, cfg: cfg, newID: func() string { return uuid.New().String() }}
}

// Subject returns the subject an event kind is published on.
func (n *Nats) Subject(kind reconcile.EventKind) string {
	return n.cfg.SubjectPrefix + "." + strings.ToLower(string(kind))
}

// Notify implements reconcile.Notifier.
func (n *Nats) Notify(ctx context.Context, ev reconcile.Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	event := CloudEvent{
		SpecVersion:     "1.0",
		ID:              n.newID(),
		Source:          n.cfg.Source,
		Type:            "inventory.entity." + strings.ToLower(string(ev.Kind)),
		DataContentType: "application/json",
		Subject:         n.Subject(ev.Kind),
		Time:            &at,
		Data:            ev,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Kind, err)
	}

	if _, err := n.js.Publish(ctx, event.Subject, payload); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Kind, err)
	}
	return nil
}

// Close drains the connection when it was opened by ConnectNats.
func (n *Nats) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
