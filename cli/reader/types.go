// Package reader builds the read-side payloads rendered by the skein CLI.
//
// Every command renders one of these shapes, whether as json, yaml, a
// table or a TUI view. Payloads are built from a finished session's window
// registry and metrics, or from transcript records read back out of the
// archive.
package reader

import (
	"github.com/pithecene-io/skein/state"
	"github.com/pithecene-io/skein/types"
)

// WindowSummary is one row of the window listing.
type WindowSummary struct {
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	Streams  string `json:"streams" yaml:"streams"`
	Lines    int    `json:"lines" yaml:"lines"`
	Revision uint64 `json:"revision" yaml:"revision"`
}

// ProgressView is the content of a progress window.
type ProgressView struct {
	Value int    `json:"value" yaml:"value"`
	Max   int    `json:"max" yaml:"max"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
}

// WindowResponse is the full content of one window.
type WindowResponse struct {
	Name         string        `json:"name" yaml:"name"`
	Kind         string        `json:"kind" yaml:"kind"`
	Title        string        `json:"title,omitempty" yaml:"title,omitempty"`
	Lines        []types.Line  `json:"lines" yaml:"lines"`
	Components   []string      `json:"components,omitempty" yaml:"components,omitempty"`
	Progress     *ProgressView `json:"progress,omitempty" yaml:"progress,omitempty"`
	CountdownEnd int64         `json:"countdown_end,omitempty" yaml:"countdown_end,omitempty"`
	Active       bool          `json:"active,omitempty" yaml:"active,omitempty"`
}

// SessionReport summarises a replayed session.
type SessionReport struct {
	SessionID string           `json:"session_id" yaml:"session_id"`
	Windows   []WindowSummary  `json:"windows" yaml:"windows"`
	State     *state.State     `json:"state" yaml:"state"`
	Metrics   *MetricsSnapshot `json:"metrics" yaml:"metrics"`
}

// MetricsSnapshot is the rendered form of a session's counters.
type MetricsSnapshot struct {
	// Decoding
	LinesProcessed  int64 `json:"lines_processed" yaml:"lines_processed"`
	ElementsDecoded int64 `json:"elements_decoded" yaml:"elements_decoded"`
	RuleCompileErrs int64 `json:"rule_compile_errors" yaml:"rule_compile_errors"`

	// Routing
	Flushes               int64 `json:"flushes" yaml:"flushes"`
	Squelched             int64 `json:"squelched" yaml:"squelched"`
	Redirected            int64 `json:"redirected" yaml:"redirected"`
	WithheldOrphan        int64 `json:"withheld_orphan" yaml:"withheld_orphan"`
	PromptsShown          int64 `json:"prompts_shown" yaml:"prompts_shown"`
	PromptsSuppressed     int64 `json:"prompts_suppressed" yaml:"prompts_suppressed"`
	InventoryUpdates      int64 `json:"inventory_updates" yaml:"inventory_updates"`
	InventoryUnchanged    int64 `json:"inventory_unchanged" yaml:"inventory_unchanged"`
	PerceptionUpdates     int64 `json:"perception_updates" yaml:"perception_updates"`
	TimestampsNeutralized int64 `json:"timestamps_neutralized" yaml:"timestamps_neutralized"`
	SpeechQueued          int64 `json:"speech_queued" yaml:"speech_queued"`

	// Outputs
	ConfigReloads        int64            `json:"config_reloads" yaml:"config_reloads"`
	ConfigReloadFailures int64            `json:"config_reload_failures" yaml:"config_reload_failures"`
	NotificationsSent    int64            `json:"notifications_sent" yaml:"notifications_sent"`
	NotificationsFailed  int64            `json:"notifications_failed" yaml:"notifications_failed"`
	NotificationsDropped int64            `json:"notifications_dropped" yaml:"notifications_dropped"`
	DroppedByKind        map[string]int64 `json:"dropped_by_kind,omitempty" yaml:"dropped_by_kind,omitempty"`
	CaptureDecodeErrors  int64            `json:"capture_decode_errors" yaml:"capture_decode_errors"`
	ArchiveWriteSuccess  int64            `json:"archive_write_success" yaml:"archive_write_success"`
	ArchiveWriteFailure  int64            `json:"archive_write_failure" yaml:"archive_write_failure"`

	// Dimensions
	SessionID      string `json:"session_id" yaml:"session_id"`
	Adapter        string `json:"adapter,omitempty" yaml:"adapter,omitempty"`
	ArchiveBackend string `json:"archive_backend,omitempty" yaml:"archive_backend,omitempty"`
}

// TranscriptLine is one archived line read back from the dataset.
type TranscriptLine struct {
	Session   string `json:"session" yaml:"session"`
	Seq       int64  `json:"seq" yaml:"seq"`
	Ts        string `json:"ts" yaml:"ts"`
	Window    string `json:"window" yaml:"window"`
	Stream    string `json:"stream" yaml:"stream"`
	Character string `json:"character,omitempty" yaml:"character,omitempty"`
	Text      string `json:"text" yaml:"text"`
}

// CheckResponse reports the result of validating a config file.
type CheckResponse struct {
	Config     string   `json:"config" yaml:"config"`
	Valid      bool     `json:"valid" yaml:"valid"`
	Highlights int      `json:"highlights" yaml:"highlights"`
	Events     int      `json:"events" yaml:"events"`
	Windows    int      `json:"windows" yaml:"windows"`
	Problems   []string `json:"problems" yaml:"problems"`
}
