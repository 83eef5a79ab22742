// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects.
const (
	ProjectCreated     = "opshub.projects.created"
	ProjectAccepted    = "opshub.projects.accepted"
	ProjectRejected    = "opshub.projects.rejected"
	ProjectDeleted     = "opshub.projects.deleted"
	AccountCreated     = "opshub.accounts.created"
	AnnouncementPosted = "opshub.announcements.posted"
)

// Event is the JSON envelope published on every subject.
type Event struct {
	Subject   string    `json:"subject"`
	SubjectID string    `json:"subject_id"`
	ActorUID  string    `json:"actor_uid,omitempty"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher sends domain events. Publish failures are the caller's to log;
// they never undo the write that produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Nop discards events. Used when nats_url is empty.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}

// NATS publishes events as JSON on a core NATS connection.
type NATS struct {
	nc  *nats.Conn
	log *zap.Logger
}

// Connect dials url and returns a NATS publisher.
func Connect(url string, logger *zap.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("opshub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{nc: nc, log: logger}, nil
}

// Publish encodes ev and publishes it on ev.Subject.
func (p *NATS) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.Subject, err)
	}
	if err := p.nc.Publish(ev.Subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Subject, err)
	}
	return nil
}

// Connected reports whether the connection is currently up.
func (p *NATS) Connected() bool { return p.nc.IsConnected() }

// Close drains the connection, flushing buffered events.
func (p *NATS) Close() {
	if err := p.nc.Drain(); err != nil {
		p.log.Warn("nats drain failed", zap.Error(err))
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() {}

// Subjects returns the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Subject
	}
	return out
}

// Events returns a copy of the published events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
