// Package notify is the in-process pub/sub bus for form lifecycle
// events. Handlers publish after the state change lands; consumers run
// asynchronously off a single dispatch goroutine.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names one form lifecycle event.
type EventType string

const (
	EventSessionOpened    EventType = "session.opened"
	EventSessionClosed    EventType = "session.closed"
	EventFieldChanged     EventType = "field.changed"
	EventGuardWarning     EventType = "guard.warning"
	EventValidationFailed EventType = "validation.failed"
	EventAttachmentQueued EventType = "attachment.queued"
	EventSubmitted        EventType = "submission.sent"
	EventSubmitFailed     EventType = "submission.failed"
)

// Event is one form lifecycle notification.
type Event struct {
	Type      EventType `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	AssetID   int       `json:"asset_id"`
	Field     string    `json:"field,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Handler processes one event. Implementations must be safe for
// concurrent calls.
type Handler interface {
	HandleEvent(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Bus is a simple in-process notification bus. Events go through a
// buffered channel and a single dispatch goroutine, which serialises
// consumer work.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan Event
	done        chan struct{}
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a Bus with the given channel buffer size.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		events: make(chan Event, bufSize),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. Non-blocking — if the buffer is
// full the event is dropped and a warning is logged.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	select {
	case b.events <- evt:
	default:
		log.Printf("notify: buffer full, dropping event %s (session %s)", evt.Type, evt.SessionID)
	}
}

// Start begins the dispatch goroutine. It processes events until the
// context is cancelled, draining the buffer before exiting.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt := <-b.events:
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				for {
					select {
					case evt := <-b.events:
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Wait blocks until the dispatch goroutine has drained and exited.
func (b *Bus) Wait() {
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt Event) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			log.Printf("notify: %s handler error for %s: %v", s.name, evt.Type, err)
		}
	}
}

// LogConsumer logs all form events for observability.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt Event) error {
	if evt.Field != "" {
		log.Printf("event: %s asset=%d session=%s field=%s %s",
			evt.Type, evt.AssetID, evt.SessionID, evt.Field, evt.Message)
		return nil
	}
	log.Printf("event: %s asset=%d session=%s %s", evt.Type, evt.AssetID, evt.SessionID, evt.Message)
	return nil
}
