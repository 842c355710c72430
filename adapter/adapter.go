// Package adapter defines the outbound notification boundary.
//
// The pipeline publishes matched game events and queued speech lines
// through an Adapter. Publishing happens off the decode/route path; an
// adapter may block and retry without stalling line processing.
package adapter

import (
	"context"
	"sync"
)

// Kind discriminates notifications.
type Kind string

// Notification kinds.
const (
	KindEvent  Kind = "event"
	KindSpeech Kind = "speech"
)

// Notification is the payload published for an event or a speech line.
type Notification struct {
	Version   string `json:"version"`
	Kind      Kind   `json:"kind"`
	SessionID string `json:"session_id"`
	Character string `json:"character,omitempty"`
	Timestamp string `json:"timestamp"` // RFC 3339

	// Event fields.
	EventType string  `json:"event_type,omitempty"`
	Action    string  `json:"action,omitempty"`
	Duration  float64 `json:"duration,omitempty"`

	// Text is the matched line for events and the spoken text for speech.
	Text string `json:"text"`

	// Speech fields.
	Source   string `json:"source,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// Adapter publishes notifications to a downstream system.
type Adapter interface {
	// Publish sends one notification.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, n *Notification) error

	// Close releases adapter resources.
	Close() error
}

// Recorder is an in-memory Adapter that keeps every published
// notification. Used by tests and by replay when no adapter is configured.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
	err   error
}

// NewRecorder creates a Recorder. A non-nil err is returned from every
// Publish call, after the notification has been recorded.
func NewRecorder(err error) *Recorder {
	return &Recorder{err: err}
}

// Publish implements Adapter.
func (r *Recorder) Publish(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *n)
	return r.err
}

// Notifications returns a copy of everything published so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Close implements Adapter.
func (r *Recorder) Close() error {
	return nil
}

// Verify Recorder implements the adapter interface.
var _ Adapter = (*Recorder)(nil)
