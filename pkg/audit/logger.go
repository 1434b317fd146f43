package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ContextExtractor pulls a string value out of the request context.
type ContextExtractor func(ctx context.Context) (string, bool)

type logger struct {
	storage            Storage
	tenantIDExtractor  ContextExtractor
	actorIDExtractor   ContextExtractor
	requestIDExtractor ContextExtractor
}

// Option configures the logger.
type Option func(*logger)

// WithTenantIDExtractor fills Event.TenantID from context when the caller
// does not set it explicitly.
func WithTenantIDExtractor(ex ContextExtractor) Option {
	return func(l *logger) { l.tenantIDExtractor = ex }
}

// WithActorIDExtractor fills Event.ActorID from context.
func WithActorIDExtractor(ex ContextExtractor) Option {
	return func(l *logger) { l.actorIDExtractor = ex }
}

// WithRequestIDExtractor fills Event.RequestID from context.
func WithRequestIDExtractor(ex ContextExtractor) Option {
	return func(l *logger) { l.requestIDExtractor = ex }
}

// NewLogger creates a synchronous audit logger backed by storage.
func NewLogger(storage Storage, opts ...Option) Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &logger{storage: storage}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	event := l.eventFromContext(ctx)
	event.Action = action
	event.Result = ResultSuccess
	return l.store(ctx, event, opts)
}

func (l *logger) LogError(ctx context.Context, action string, cause error, opts ...EventOption) error {
	event := l.eventFromContext(ctx)
	event.Action = action
	event.Result = ResultError
	if cause != nil {
		event.Error = cause.Error()
	}
	return l.store(ctx, event, opts)
}

func (l *logger) store(ctx context.Context, event Event, opts []EventOption) error {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now()

	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}
	if err := l.storage.Store(ctx, event); err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	return nil
}

func (l *logger) eventFromContext(ctx context.Context) Event {
	var event Event

	if l.tenantIDExtractor != nil {
		if v, ok := l.tenantIDExtractor(ctx); ok {
			event.TenantID = v
		}
	}
	if l.actorIDExtractor != nil {
		if v, ok := l.actorIDExtractor(ctx); ok {
			event.ActorID = v
		}
	}
	if l.requestIDExtractor != nil {
		if v, ok := l.requestIDExtractor(ctx); ok {
			event.RequestID = v
		}
	}
	return event
}
