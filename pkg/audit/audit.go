package audit

import (
	"context"
	"time"

	"github.com/reelkeep/reelkeep-backend/pkg/logger"
)

// Event is a single structured audit record. Fields must never contain
// credential material; callers redact before emitting.
type Event struct {
	Action string
	UserID string
	Fields map[string]any
}

// Sink is a write-only capability handed to services. Implementations
// absorb their own failures; Emit never returns an error and never blocks
// on sink trouble.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// LogSink writes audit events through the structured logger.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.log == nil {
		return
	}
	fields := map[string]any{
		"audit":   true,
		"action":  event.Action,
		"emitted": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if event.UserID != "" {
		fields["user_id"] = event.UserID
	}
	for k, v := range event.Fields {
		fields[k] = v
	}
	s.log.Info(s.log.WithFields(ctx, fields), "audit."+event.Action)
}

// Nop discards all events. Handy for tests that do not assert on auditing.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Recorder captures events in memory for assertions.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(_ context.Context, event Event) {
	r.Events = append(r.Events, event)
}

// Has reports whether an event with the given action was recorded.
func (r *Recorder) Has(action string) bool {
	for _, e := range r.Events {
		if e.Action == action {
			return true
		}
	}
	return false
}
