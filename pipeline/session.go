// Package pipeline coordinates one decoding session.
//
// A Session owns the Decoder and the Router. Decoding and routing a line is
// a single critical section; configuration swaps take the same lock so they
// land between lines. Everything that may block (adapter publishes, archive
// writes) happens outside the lock: notifications go through a bounded
// queue drained by a dispatcher goroutine, and full queues drop.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/skein/adapter"
	"github.com/pithecene-io/skein/archive"
	"github.com/pithecene-io/skein/cli/config"
	"github.com/pithecene-io/skein/filter"
	"github.com/pithecene-io/skein/log"
	"github.com/pithecene-io/skein/markup"
	"github.com/pithecene-io/skein/metrics"
	"github.com/pithecene-io/skein/router"
	"github.com/pithecene-io/skein/types"
	"github.com/pithecene-io/skein/window"
)

// DefaultQueueSize bounds the notification queue when the config leaves it
// unset.
const DefaultQueueSize = 256

// MaxLineSize is the longest raw line Run accepts.
const MaxLineSize = 1 << 20

// Deps are the collaborators of a session. Every field is optional.
type Deps struct {
	// SessionID defaults to a fresh UUID.
	SessionID string
	Logger    *log.Logger
	Metrics   *metrics.Collector
	// Adapter receives events and speech. Nil disables publishing.
	Adapter adapter.Adapter
	// Archive receives every delivered line. Nil disables archiving.
	Archive *archive.Archive
	// Now defaults to time.Now.
	Now func() time.Time
}

// Session is one decode/route session.
type Session struct {
	id      string
	logger  *log.Logger
	metrics *metrics.Collector
	adapter adapter.Adapter
	archive *archive.Archive
	clock   func() time.Time

	mu      sync.Mutex
	decoder *markup.Decoder
	router  *router.Router
	cfg     *config.Config
	// at overrides the clock while a recorded line is processed.
	at time.Time

	qmu    sync.RWMutex
	queue  chan adapter.Notification
	closed bool
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession builds a session from cfg. Rules that fail to compile are
// logged and skipped. A nil cfg is treated as an empty config.
func NewSession(cfg *config.Config, deps Deps) (*Session, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	layout, err := cfg.WindowConfigs()
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:      deps.SessionID,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		adapter: deps.Adapter,
		archive: deps.Archive,
		clock:   deps.Now,
		cfg:     cfg,
		done:    make(chan struct{}),
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	dec, eventErrs := markup.NewDecoder(markup.Options{
		Presets: cfg.StylePresets(),
		Events:  cfg.Events,
		Logger:  s.logger,
	})
	set, filterErrs := filter.Compile(cfg.Highlights)
	s.reportCompileErrors(eventErrs)
	s.reportCompileErrors(filterErrs)

	s.decoder = dec
	s.router = router.New(router.Options{
		Windows:        window.NewRegistry(layout...),
		Filters:        set,
		PromptColors:   cfg.PromptColorMap(),
		DiscardStreams: cfg.DiscardStreams(),
		Speech:         speechOptions(cfg.Speech),
		Logger:         s.logger,
		Metrics:        s.metrics,
		Now:            s.now,
	})

	size := cfg.Adapter.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	s.queue = make(chan adapter.Notification, size)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.dispatch()

	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// now is the router's clock. It must only be called with s.mu held.
func (s *Session) now() time.Time {
	if !s.at.IsZero() {
		return s.at
	}
	return s.clock()
}

// ProcessLine decodes and routes one raw line and returns what the router
// produced for it.
func (s *Session) ProcessLine(line string) router.Outbox {
	return s.ProcessLineAt(line, time.Time{})
}

// ProcessLineAt is ProcessLine with the session clock pinned to at for the
// duration of the line. A zero at uses the live clock.
func (s *Session) ProcessLineAt(line string, at time.Time) router.Outbox {
	s.mu.Lock()
	s.at = at
	els := s.decoder.Parse(line)
	s.metrics.IncLine(len(els))
	s.router.ProcessLine(els)
	out := s.router.Drain()
	character := s.router.State().Character
	s.at = time.Time{}
	s.mu.Unlock()

	s.publish(out, character, at)
	s.store(out)
	return out
}

// Run reads lines from r until EOF or cancellation.
func (s *Session) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.ProcessLine(strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// ApplyConfig swaps presets, rules, prompt colours, discard list, speech
// options and window layout. The swap happens between lines. Windows that
// keep their name and kind keep their content.
func (s *Session) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		s.metrics.IncConfigReload(false)
		return fmt.Errorf("invalid config: %w", err)
	}
	layout, err := cfg.WindowConfigs()
	if err != nil {
		s.metrics.IncConfigReload(false)
		return err
	}
	set, filterErrs := filter.Compile(cfg.Highlights)
	s.reportCompileErrors(filterErrs)

	s.mu.Lock()
	s.decoder.SetPresets(cfg.StylePresets())
	eventErrs := s.decoder.SetEventPatterns(cfg.Events)
	s.router.SetFilters(set)
	s.router.SetPromptColors(cfg.PromptColorMap())
	s.router.SetDiscardStreams(cfg.DiscardStreams())
	s.router.SetSpeech(speechOptions(cfg.Speech))
	s.router.Windows().Reconfigure(layout)
	s.cfg = cfg
	s.mu.Unlock()

	s.reportCompileErrors(eventErrs)
	s.metrics.IncConfigReload(true)
	s.info("configuration applied", map[string]any{
		"highlights": len(cfg.Highlights),
		"events":     len(cfg.Events),
		"windows":    len(layout),
	})
	return nil
}

// Reload is a config.ReloadFunc. A failed load keeps the current config.
func (s *Session) Reload(cfg *config.Config, err error) {
	if err != nil {
		s.metrics.IncConfigReload(false)
		s.warn("config reload failed, keeping current config", map[string]any{
			"error": err.Error(),
		})
		return
	}
	if err := s.ApplyConfig(cfg); err != nil {
		s.warn("config reload rejected", map[string]any{"error": err.Error()})
	}
}

// Config returns the configuration currently in effect.
func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// View runs fn with the router while holding the session lock. fn must not
// retain the router or block.
func (s *Session) View(fn func(r *router.Router)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.router)
}

// Reset clears decoder state after a reconnect.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decoder.Reset()
}

// Close drains pending notifications, then closes the adapter and flushes
// the archive. If ctx ends first, queued notifications are abandoned.
func (s *Session) Close(ctx context.Context) error {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.qmu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.cancel()
		<-s.done
	}
	s.cancel()

	var errs []error
	if s.adapter != nil {
		if err := s.adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close adapter: %w", err))
		}
	}
	if s.archive != nil {
		pending := s.archive.Pending()
		err := s.archive.Close(ctx)
		if pending > 0 {
			s.metrics.IncArchiveWrite(err == nil)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close archive: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) publish(out router.Outbox, character string, at time.Time) {
	for _, u := range out.URLs {
		s.info("server requested url", map[string]any{"url": u})
	}
	if s.adapter == nil || (len(out.Events) == 0 && len(out.Speech) == 0) {
		return
	}
	if at.IsZero() {
		at = s.clock()
	}
	ts := at.UTC().Format(time.RFC3339)
	for _, ev := range out.Events {
		s.enqueue(adapter.Notification{
			Version:   types.Version,
			Kind:      adapter.KindEvent,
			SessionID: s.id,
			Character: character,
			Timestamp: ts,
			EventType: ev.Type,
			Action:    string(ev.Action),
			Duration:  ev.Duration,
			Text:      ev.Text,
		})
	}
	for _, sp := range out.Speech {
		s.enqueue(adapter.Notification{
			Version:   types.Version,
			Kind:      adapter.KindSpeech,
			SessionID: s.id,
			Character: character,
			Timestamp: ts,
			Text:      sp.Text,
			Source:    sp.Source,
			Priority:  int(sp.Priority),
		})
	}
}

func (s *Session) enqueue(n adapter.Notification) {
	s.qmu.RLock()
	defer s.qmu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- n:
	default:
		s.metrics.IncNotificationDropped(string(n.Kind))
		s.warn("notification queue full, dropping", map[string]any{
			"kind": string(n.Kind),
			"text": n.Text,
		})
	}
}

func (s *Session) dispatch() {
	defer close(s.done)
	for n := range s.queue {
		if s.ctx.Err() != nil {
			s.metrics.IncNotificationDropped(string(n.Kind))
			continue
		}
		if err := s.adapter.Publish(s.ctx, &n); err != nil {
			s.metrics.IncNotificationFailed()
			s.warn("notification publish failed", map[string]any{
				"kind":  string(n.Kind),
				"error": err.Error(),
			})
			continue
		}
		s.metrics.IncNotificationSent()
	}
}

func (s *Session) store(out router.Outbox) {
	if s.archive == nil {
		return
	}
	for _, d := range out.Deliveries {
		before := s.archive.Pending()
		err := s.archive.Append(s.ctx, archive.Entry{
			Window: d.Window,
			Stream: d.Stream,
			Text:   d.Line.Plain(),
			Time:   d.Time,
		})
		switch {
		case err != nil:
			s.metrics.IncArchiveWrite(false)
			s.warn("archive write failed", map[string]any{
				"window": d.Window,
				"error":  err.Error(),
			})
		case s.archive.Pending() <= before:
			s.metrics.IncArchiveWrite(true)
		}
	}
}

func (s *Session) reportCompileErrors(errs []*types.CompileError) {
	if len(errs) == 0 {
		return
	}
	s.metrics.AddRuleCompileErrors(len(errs))
	for _, e := range errs {
		s.warn("rule skipped: pattern failed to compile", map[string]any{
			"rule":    e.Rule,
			"pattern": e.Pattern,
			"error":   e.Err.Error(),
		})
	}
}

func speechOptions(c config.SpeechConfig) router.SpeechOptions {
	o := router.SpeechOptions{Enabled: c.Enabled}
	switch c.SideChannelPriority {
	case "normal":
		o.SideChannelPriority = router.PriorityNormal
	case "high":
		o.SideChannelPriority = router.PriorityHigh
	}
	return o
}

func (s *Session) info(msg string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(msg, fields)
}

func (s *Session) warn(msg string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, fields)
}
