package publisher

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	audit "steward/pkg/platform/audit"
)

// Publisher writes audit events to a store, synchronously by default or through a
// bounded buffer drained by a single worker.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	buffer chan audit.Event
	done   chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events for a background writer. When the queue is
// full the event is dropped and logged.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Emit records event. Timestamp and Category are filled in when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.buffer == nil || p.closed {
		return p.store.Append(ctx, event)
	}
	select {
	case p.buffer <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"subject_id", event.SubjectID,
		)
	}
	return nil
}

// ListRecent returns up to limit events, most recent first.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close flushes buffered events and stops the worker.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed || p.buffer == nil {
		p.closed = true
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.buffer)
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to append audit event",
				"error", err,
				"action", event.Action,
			)
		}
	}
}
