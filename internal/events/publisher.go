// Package events mirrors camera changes committed to the store onto NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/technosupport/cctv-console/internal/cameras"
	"github.com/technosupport/cctv-console/internal/data"
	"github.com/technosupport/cctv-console/internal/metrics"
)

const (
	DefaultSubject    = "cctv.cameras.events"
	DefaultMaxRetries = 3
	queueSize         = 256
)

type EventType string

const (
	CameraCreated EventType = "camera.created"
	CameraUpdated EventType = "camera.updated"
	CameraDeleted EventType = "camera.deleted"
)

type CameraEvent struct {
	EventID    string       `json:"event_id"`
	Type       EventType    `json:"type"`
	CameraID   int64        `json:"camera_id"`
	Camera     *data.Camera `json:"camera,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

var _ Conn = (*nats.Conn)(nil)

func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

// Publisher turns store mutations into CameraEvents. Mutations are queued
// so store actions never wait on NATS; Run drains the queue in order.
type Publisher struct {
	conn       Conn
	subject    string
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
	now        func() time.Time

	queue chan CameraEvent
	done  chan struct{}
}

func NewPublisher(conn Conn, subject string, maxRetries int, log zerolog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Publisher{
		conn:       conn,
		subject:    subject,
		maxRetries: maxRetries,
		backoff:    100 * time.Millisecond,
		log:        log.With().Str("component", "events").Logger(),
		now:        time.Now,
		queue:      make(chan CameraEvent, queueSize),
		done:       make(chan struct{}),
	}
}

// Attach subscribes the publisher to store and returns the unsubscribe func.
func (p *Publisher) Attach(store *cameras.Store) func() {
	return store.Subscribe(p.HandleMutation)
}

// HandleMutation enqueues an event for collection changes and ignores the
// rest. A full queue drops the event.
func (p *Publisher) HandleMutation(m cameras.Mutation, _ cameras.State) {
	evt, ok := p.eventFor(m)
	if !ok {
		return
	}
	select {
	case p.queue <- evt:
	default:
		metrics.EventsPublishedTotal.WithLabelValues(string(evt.Type), "dropped").Inc()
		p.log.Warn().Str("type", string(evt.Type)).Int64("camera_id", evt.CameraID).Msg("event queue full, dropping event")
	}
}

func (p *Publisher) eventFor(m cameras.Mutation) (CameraEvent, bool) {
	evt := CameraEvent{EventID: uuid.NewString(), OccurredAt: p.now().UTC()}

	switch m.Type {
	case cameras.MutationAddCamera:
		cam, ok := m.Payload.(data.Camera)
		if !ok {
			return CameraEvent{}, false
		}
		evt.Type, evt.CameraID, evt.Camera = CameraCreated, cam.ID, &cam
	case cameras.MutationUpdateCamera:
		cam, ok := m.Payload.(data.Camera)
		if !ok {
			return CameraEvent{}, false
		}
		evt.Type, evt.CameraID, evt.Camera = CameraUpdated, cam.ID, &cam
	case cameras.MutationDeleteCamera:
		id, ok := m.Payload.(int64)
		if !ok {
			return CameraEvent{}, false
		}
		evt.Type, evt.CameraID = CameraDeleted, id
	default:
		return CameraEvent{}, false
	}
	return evt, true
}

// Run publishes queued events until ctx is done, then flushes what is
// already queued. It must be called once; Done is closed when it returns.
func (p *Publisher) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case evt := <-p.queue:
			p.publishLogged(evt)
		case <-ctx.Done():
			for {
				select {
				case evt := <-p.queue:
					p.publishLogged(evt)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

func (p *Publisher) publishLogged(evt CameraEvent) {
	if err := p.Publish(evt); err != nil {
		p.log.Error().Err(err).Str("type", string(evt.Type)).Int64("camera_id", evt.CameraID).Msg("failed to publish camera event")
	}
}

func (p *Publisher) Publish(evt CameraEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	for i := 0; i <= p.maxRetries; i++ {
		err = p.conn.Publish(p.subject, payload)
		if err == nil {
			metrics.EventsPublishedTotal.WithLabelValues(string(evt.Type), "success").Inc()
			return nil
		}

		// Backoff
		time.Sleep(time.Duration(i) * p.backoff)
	}

	metrics.EventsPublishedTotal.WithLabelValues(string(evt.Type), "error").Inc()
	return fmt.Errorf("publish failed after %d retries: %w", p.maxRetries, err)
}
