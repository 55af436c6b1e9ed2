/*
Package notify provides NotificationSink implementations.

PURPOSE:
  The engine only ever talks to the NotificationSink contract; this package
  supplies the concrete deliveries. LogSink is the default for the headless
  server: it logs immediate notifications and holds scheduled ones on
  cancellable timers. Buffer captures everything in memory for tests.

SCHEDULING SEMANTICS:
  ScheduleNotification delivers at-or-after triggerAt, exactly once.
  Re-scheduling an id replaces the pending delivery. CancelNotification is
  idempotent: unknown or already-delivered ids are a no-op.

SEE ALSO:
  - engine/store.go: The NotificationSink contract
  - reminders: The scheduler feeding this sink
*/
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// LOG SINK - headless delivery via structured log
// =============================================================================

// LogSink writes notifications to the log. Scheduled notifications are held
// on timers until their trigger time.
type LogSink struct {
	log zerolog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{
		log:     log,
		pending: make(map[string]*time.Timer),
	}
}

func (s *LogSink) ShowNotification(title, body string) {
	s.log.Info().Str("title", title).Str("body", body).Msg("notification")
}

func (s *LogSink) ScheduleNotification(id, title, body string, triggerAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if timer, ok := s.pending[id]; ok {
		timer.Stop()
	}

	delay := time.Until(triggerAt)
	if delay < 0 {
		delay = 0
	}
	s.pending[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		s.ShowNotification(title, body)
	})

	s.log.Debug().Str("id", id).Time("trigger_at", triggerAt).Msg("notification scheduled")
}

func (s *LogSink) CancelNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.pending[id]; ok {
		timer.Stop()
		delete(s.pending, id)
	}
}

// Close stops all pending deliveries.
func (s *LogSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, timer := range s.pending {
		timer.Stop()
		delete(s.pending, id)
	}
}

// =============================================================================
// BUFFER - in-memory capture for tests
// =============================================================================

// Shown is one immediately delivered notification.
type Shown struct {
	Title string
	Body  string
}

// Scheduled is one pending scheduled notification.
type Scheduled struct {
	ID        string
	Title     string
	Body      string
	TriggerAt time.Time
}

// Buffer records every sink call instead of delivering. Scheduled
// notifications stay in the buffer until cancelled; they never fire.
type Buffer struct {
	mu        sync.Mutex
	shown     []Shown
	scheduled map[string]Scheduled
	cancelled []string
}

func NewBuffer() *Buffer {
	return &Buffer{scheduled: make(map[string]Scheduled)}
}

func (b *Buffer) ShowNotification(title, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shown = append(b.shown, Shown{Title: title, Body: body})
}

func (b *Buffer) ScheduleNotification(id, title, body string, triggerAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scheduled[id] = Scheduled{ID: id, Title: title, Body: body, TriggerAt: triggerAt}
}

func (b *Buffer) CancelNotification(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.scheduled, id)
	b.cancelled = append(b.cancelled, id)
}

// ShownCount returns how many notifications were shown immediately.
func (b *Buffer) ShownCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.shown)
}

// ShownList returns a copy of the shown notifications.
func (b *Buffer) ShownList() []Shown {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Shown, len(b.shown))
	copy(out, b.shown)
	return out
}

// ScheduledFor returns the pending scheduled notification for an id.
func (b *Buffer) ScheduledFor(id string) (Scheduled, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.scheduled[id]
	return s, ok
}

// Cancelled returns a copy of all cancelled ids, in order.
func (b *Buffer) Cancelled() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.cancelled))
	copy(out, b.cancelled)
	return out
}
