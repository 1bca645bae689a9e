package chatauth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventTokenIssued   ActivityEventType = "chat.token.issued"
	ActivityEventTokenVerified ActivityEventType = "chat.token.verified"
	ActivityEventTokenRejected ActivityEventType = "chat.token.rejected"

	ActivityEventSignInStarted   ActivityEventType = "gate.sign_in.started"
	ActivityEventSignInSucceeded ActivityEventType = "gate.sign_in.succeeded"
	ActivityEventSignInFailed    ActivityEventType = "gate.sign_in.failed"
	ActivityEventSignInTimeout   ActivityEventType = "gate.sign_in.timeout"
)

// ActivityEvent captures audit-friendly information about an action.
// It never carries the token itself.
type ActivityEvent struct {
	EventType  ActivityEventType
	Identity   string
	Reason     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

// NormalizeActivitySink returns a no-op sink for nil.
func NormalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// RecordActivity emits best-effort: sink failures are logged and swallowed so
// auditing never blocks issuance, verification or sign-in.
func RecordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if sink == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := sink.Record(ctx, event); err != nil {
		normalizeLogger(logger).Error("activity sink failed", "event", event.EventType, "error", err)
	}
}

// DefaultActivityBuffer is the queue size of an AsyncActivitySink.
const DefaultActivityBuffer = 256

// AsyncOption configures an AsyncActivitySink.
type AsyncOption func(*AsyncActivitySink)

// WithActivityBuffer sets how many events may wait for the worker.
func WithActivityBuffer(size int) AsyncOption {
	return func(s *AsyncActivitySink) {
		if size > 0 {
			s.buffer = size
		}
	}
}

// WithActivityFilter keeps only the events for which keep returns true.
func WithActivityFilter(keep func(ActivityEvent) bool) AsyncOption {
	return func(s *AsyncActivitySink) {
		if keep != nil {
			s.keep = keep
		}
	}
}

func WithActivityLogger(logger Logger) AsyncOption {
	return func(s *AsyncActivitySink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type queuedEvent struct {
	ctx   context.Context
	event ActivityEvent
}

// AsyncActivitySink hands events to a single background worker that forwards
// them to the wrapped sink. Record never blocks: when the queue is full the
// event is dropped and counted.
type AsyncActivitySink struct {
	sink   ActivitySink
	keep   func(ActivityEvent) bool
	logger Logger
	buffer int

	mu      sync.RWMutex
	closed  bool
	events  chan queuedEvent
	done    chan struct{}
	dropped atomic.Int64
}

var _ ActivitySink = (*AsyncActivitySink)(nil)

func NewAsyncActivitySink(sink ActivitySink, opts ...AsyncOption) *AsyncActivitySink {
	s := &AsyncActivitySink{
		sink:   NormalizeActivitySink(sink),
		keep:   func(ActivityEvent) bool { return true },
		logger: defLogger{},
		buffer: DefaultActivityBuffer,
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.events = make(chan queuedEvent, s.buffer)
	go s.run()

	return s
}

// Record queues event and returns immediately.
func (s *AsyncActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	if !s.keep(event) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return nil
	}

	select {
	case s.events <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		if s.dropped.Add(1)%100 == 1 {
			s.logger.Warn("activity queue full, dropping events", "event", event.EventType)
		}
	}

	return nil
}

// Dropped returns how many events were discarded.
func (s *AsyncActivitySink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting events and waits until queued ones are written.
func (s *AsyncActivitySink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	<-s.done
}

func (s *AsyncActivitySink) run() {
	defer close(s.done)
	for q := range s.events {
		if err := s.sink.Record(q.ctx, q.event); err != nil {
			s.logger.Error("activity sink failed", "event", q.event.EventType, "error", err)
		}
	}
}

// SkipMalformedRejections drops rejections of tokens that could not even be
// decoded, so unauthenticated garbage never reaches persistent storage.
func SkipMalformedRejections(event ActivityEvent) bool {
	return !(event.EventType == ActivityEventTokenRejected && event.Reason == string(ReasonMalformedToken))
}
