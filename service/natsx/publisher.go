package natsx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sybui2004/SeaU-sub001/service/relay"
	"github.com/sybui2004/SeaU-sub001/tools/errs"
)

// Config for the presence feed connection.
type Config struct {
	URL           string
	Subject       string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Publisher pushes presence change events onto a NATS subject so other
// services (analytics, admin dashboards) can watch who comes and goes
// without polling the gateway. Core NATS, fire-and-forget: a lost event is
// acceptable, the next snapshot corrects any observer.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errs.New("nats url missing")
	}
	if cfg.Subject == "" {
		cfg.Subject = "presence.events"
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errs.Wrap(err, "nats connect")
	}
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish implements relay.PresencePublisher.
func (p *Publisher) Publish(_ context.Context, ev relay.PresenceEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errs.ErrPublishFailure.WrapMsg("marshal", "err", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return errs.ErrPublishFailure.WrapMsg("publish", "subject", p.subject, "err", err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
