// Package metrics collects per-session counters.
//
// The Collector accumulates counters while a session decodes and routes
// lines. It is a leaf package with no internal dependencies. Every method is
// nil-receiver safe so the core can run without metrics.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Decoding
	LinesProcessed  int64
	ElementsDecoded int64
	RuleCompileErrs int64

	// Routing
	Flushes               int64
	Squelched             int64
	Redirected            int64
	WithheldOrphan        int64
	PromptsShown          int64
	PromptsSuppressed     int64
	InventoryUpdates      int64
	InventoryUnchanged    int64
	PerceptionUpdates     int64
	TimestampsNeutralized int64
	SpeechQueued          int64

	// Configuration
	ConfigReloads        int64
	ConfigReloadFailures int64

	// Outbound notifications
	NotificationsSent    int64
	NotificationsFailed  int64
	NotificationsDropped int64
	DroppedByKind        map[string]int64

	// Capture / archive
	CaptureDecodeErrors int64
	ArchiveWriteSuccess int64
	ArchiveWriteFailure int64

	// Dimensions (informational, set at construction)
	SessionID      string
	Adapter        string
	ArchiveBackend string
}

// Collector accumulates metrics during a single session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	linesProcessed  int64
	elementsDecoded int64
	ruleCompileErrs int64

	flushes               int64
	squelched             int64
	redirected            int64
	withheldOrphan        int64
	promptsShown          int64
	promptsSuppressed     int64
	inventoryUpdates      int64
	inventoryUnchanged    int64
	perceptionUpdates     int64
	timestampsNeutralized int64
	speechQueued          int64

	configReloads        int64
	configReloadFailures int64

	notificationsSent    int64
	notificationsFailed  int64
	notificationsDropped int64
	droppedByKind        map[string]int64

	captureDecodeErrors int64
	archiveWriteSuccess int64
	archiveWriteFailure int64

	sessionID      string
	adapter        string
	archiveBackend string
}

// NewCollector creates a Collector with dimension labels.
// adapter and archiveBackend may be empty when those outputs are disabled.
func NewCollector(sessionID, adapter, archiveBackend string) *Collector {
	return &Collector{
		droppedByKind:  make(map[string]int64),
		sessionID:      sessionID,
		adapter:        adapter,
		archiveBackend: archiveBackend,
	}
}

func (c *Collector) add(p *int64, n int64) {
	c.mu.Lock()
	*p += n
	c.mu.Unlock()
}

// --- Decoding ---

// IncLine records one decoded line and the number of elements it produced.
func (c *Collector) IncLine(elements int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.linesProcessed++
	c.elementsDecoded += int64(elements)
	c.mu.Unlock()
}

// AddRuleCompileErrors records rules skipped because their pattern failed
// to compile.
func (c *Collector) AddRuleCompileErrors(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.add(&c.ruleCompileErrs, int64(n))
}

// --- Routing ---

// IncFlush records one buffered line flushed by the router.
func (c *Collector) IncFlush() {
	if c == nil {
		return
	}
	c.add(&c.flushes, 1)
}

// IncSquelched records a line dropped by a squelch rule.
func (c *Collector) IncSquelched() {
	if c == nil {
		return
	}
	c.add(&c.squelched, 1)
}

// IncRedirected records a line rerouted by a redirect rule.
func (c *Collector) IncRedirected() {
	if c == nil {
		return
	}
	c.add(&c.redirected, 1)
}

// IncWithheld records text withheld because its stream had no subscriber.
func (c *Collector) IncWithheld() {
	if c == nil {
		return
	}
	c.add(&c.withheldOrphan, 1)
}

// IncPrompt records a prompt, either shown or suppressed.
func (c *Collector) IncPrompt(shown bool) {
	if c == nil {
		return
	}
	if shown {
		c.add(&c.promptsShown, 1)
		return
	}
	c.add(&c.promptsSuppressed, 1)
}

// IncInventory records an inventory materialization attempt. changed is
// false when the buffer matched the previous materialization.
func (c *Collector) IncInventory(changed bool) {
	if c == nil {
		return
	}
	if changed {
		c.add(&c.inventoryUpdates, 1)
		return
	}
	c.add(&c.inventoryUnchanged, 1)
}

// IncPerception records a perception materialization.
func (c *Collector) IncPerception() {
	if c == nil {
		return
	}
	c.add(&c.perceptionUpdates, 1)
}

// IncTimestampNeutralized records a timestamp replaced because it predates
// the epoch floor.
func (c *Collector) IncTimestampNeutralized() {
	if c == nil {
		return
	}
	c.add(&c.timestampsNeutralized, 1)
}

// IncSpeechQueued records a line queued for speech output.
func (c *Collector) IncSpeechQueued() {
	if c == nil {
		return
	}
	c.add(&c.speechQueued, 1)
}

// --- Configuration ---

// IncConfigReload records a configuration reload attempt.
func (c *Collector) IncConfigReload(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.add(&c.configReloads, 1)
		return
	}
	c.add(&c.configReloadFailures, 1)
}

// --- Outbound notifications ---

// IncNotificationSent records a notification delivered by the adapter.
func (c *Collector) IncNotificationSent() {
	if c == nil {
		return
	}
	c.add(&c.notificationsSent, 1)
}

// IncNotificationFailed records a notification the adapter could not deliver
// after retries.
func (c *Collector) IncNotificationFailed() {
	if c == nil {
		return
	}
	c.add(&c.notificationsFailed, 1)
}

// IncNotificationDropped records a notification dropped because the
// dispatch queue was full. kind is the notification kind ("event", "speech").
func (c *Collector) IncNotificationDropped(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notificationsDropped++
	c.droppedByKind[kind]++
	c.mu.Unlock()
}

// --- Capture / archive ---

// IncCaptureDecodeErrors records a capture frame that failed to decode.
func (c *Collector) IncCaptureDecodeErrors() {
	if c == nil {
		return
	}
	c.add(&c.captureDecodeErrors, 1)
}

// IncArchiveWrite records an archive batch write (per-call, not per-record).
func (c *Collector) IncArchiveWrite(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.add(&c.archiveWriteSuccess, 1)
		return
	}
	c.add(&c.archiveWriteFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := make(map[string]int64, len(c.droppedByKind))
	for k, v := range c.droppedByKind {
		dropped[k] = v
	}

	return Snapshot{
		LinesProcessed:  c.linesProcessed,
		ElementsDecoded: c.elementsDecoded,
		RuleCompileErrs: c.ruleCompileErrs,

		Flushes:               c.flushes,
		Squelched:             c.squelched,
		Redirected:            c.redirected,
		WithheldOrphan:        c.withheldOrphan,
		PromptsShown:          c.promptsShown,
		PromptsSuppressed:     c.promptsSuppressed,
		InventoryUpdates:      c.inventoryUpdates,
		InventoryUnchanged:    c.inventoryUnchanged,
		PerceptionUpdates:     c.perceptionUpdates,
		TimestampsNeutralized: c.timestampsNeutralized,
		SpeechQueued:          c.speechQueued,

		ConfigReloads:        c.configReloads,
		ConfigReloadFailures: c.configReloadFailures,

		NotificationsSent:    c.notificationsSent,
		NotificationsFailed:  c.notificationsFailed,
		NotificationsDropped: c.notificationsDropped,
		DroppedByKind:        dropped,

		CaptureDecodeErrors: c.captureDecodeErrors,
		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,

		SessionID:      c.sessionID,
		Adapter:        c.adapter,
		ArchiveBackend: c.archiveBackend,
	}
}
