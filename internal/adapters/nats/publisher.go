package nats

import (
	"encoding/json"
	"fmt"

	"ubicell-ingest/internal/core/devices"

	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher fans alert events out over a JetStream stream so downstream
// dashboards and notifiers can react without polling the database.
type Publisher struct {
	nc      *natsgo.Conn
	js      natsgo.JetStreamContext
	subject string
	lg      zerolog.Logger
}

func NewPublisher(url, subject, stream string, lg zerolog.Logger) (*Publisher, error) {
	nc, err := natsgo.Connect(url, natsgo.Name("ubicell-ingest"))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	p := &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		lg:      lg.With().Str("adapter", "nats").Logger(),
	}
	if err := p.ensureStream(subject, stream); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

// ensureStream idempotently creates the alert-event stream.
func (p *Publisher) ensureStream(subject, name string) error {
	_, err := p.js.AddStream(&natsgo.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
		Storage:  natsgo.FileStorage,
		Replicas: 1,
	})
	if err != nil && err != natsgo.ErrStreamNameAlreadyInUse {
		return err
	}
	return nil
}

// PublishAlert sends one alert event as JSON.
func (p *Publisher) PublishAlert(a devices.Alert) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if _, err := p.js.Publish(p.subject, b); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	p.lg.Debug().Str("device_id", a.DeviceID).Str("alert_type", a.AlertType).Msg("alert published")
	return nil
}

func (p *Publisher) Close() { _ = p.nc.Drain() }
