package config

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/pithecene-io/skein/types"
	"github.com/pithecene-io/skein/window"
)

// Config represents a skein.yaml configuration file.
// All values are optional. CLI flags always override config values.
type Config struct {
	Presets      map[string]PresetConfig  `yaml:"presets"`
	Highlights   []types.HighlightPattern `yaml:"highlights"`
	Events       []types.EventPattern     `yaml:"events"`
	Windows      []WindowConfig           `yaml:"windows"`
	Streams      StreamsConfig            `yaml:"streams"`
	PromptColors map[string]string        `yaml:"prompt_colors"`
	Speech       SpeechConfig             `yaml:"speech"`
	Adapter      AdapterConfig            `yaml:"adapter"`
	Archive      ArchiveConfig            `yaml:"archive"`
	Reload       ReloadConfig             `yaml:"reload"`
}

// PresetConfig colours one preset or style id.
type PresetConfig struct {
	Fg   string `yaml:"fg"`
	Bg   string `yaml:"bg"`
	Bold bool   `yaml:"bold"`
}

// WindowConfig declares one window.
type WindowConfig struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Title    string   `yaml:"title"`
	Streams  []string `yaml:"streams"`
	Speech   bool     `yaml:"speech"`
	MaxLines int      `yaml:"max_lines"`
}

// StreamsConfig holds stream routing overrides.
type StreamsConfig struct {
	// Discard replaces the discard-if-orphaned list when set. An explicit
	// empty list disables discarding.
	Discard []string `yaml:"discard"`
}

// SpeechConfig holds speech output settings.
type SpeechConfig struct {
	Enabled bool `yaml:"enabled"`
	// SideChannelPriority is "normal" or "high" (default).
	SideChannelPriority string `yaml:"side_channel_priority"`
}

// AdapterConfig holds outbound notification settings.
type AdapterConfig struct {
	Type         string            `yaml:"type"`
	URL          string            `yaml:"url"`
	Channel      string            `yaml:"channel,omitempty"`
	Stream       string            `yaml:"stream,omitempty"`
	StreamMaxLen int64             `yaml:"stream_max_len,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Kinds        []string          `yaml:"kinds,omitempty"`
	Timeout      Duration          `yaml:"timeout,omitempty"`
	Retries      *int              `yaml:"retries,omitempty"`
	// QueueSize bounds the dispatch queue; full queues drop.
	QueueSize int `yaml:"queue_size,omitempty"`
}

// ArchiveConfig holds transcript archive settings.
type ArchiveConfig struct {
	Backend     string `yaml:"backend"`
	Dataset     string `yaml:"dataset"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	FlushCount  int    `yaml:"flush_count"`
}

// ReloadConfig controls hot reload of the config file.
type ReloadConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// Adapter and archive backend names.
const (
	AdapterWebhook = "webhook"
	AdapterRedis   = "redis"

	BackendFS = "fs"
	BackendS3 = "s3"
)

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// StylePresets converts the preset table for the decoder.
func (c *Config) StylePresets() map[string]types.StyleFrame {
	out := make(map[string]types.StyleFrame, len(c.Presets))
	for id, p := range c.Presets {
		out[id] = types.StyleFrame{Fg: p.Fg, Bg: p.Bg, Bold: p.Bold}
	}
	return out
}

// PromptColorMap converts prompt colour keys to runes. Keys that are not a
// single character are ignored; Validate reports them.
func (c *Config) PromptColorMap() map[rune]string {
	out := make(map[rune]string, len(c.PromptColors))
	for k, v := range c.PromptColors {
		if r, size := utf8.DecodeRuneInString(k); size > 0 && size == len(k) {
			out[r] = v
		}
	}
	return out
}

// DiscardStreams returns the discard list override, or nil for the
// router's defaults.
func (c *Config) DiscardStreams() []string {
	return c.Streams.Discard
}

// DefaultWindows is the layout used when the config declares no windows.
func DefaultWindows() []window.Config {
	return []window.Config{
		{Name: "main", Kind: window.KindText},
		{Name: "inventory", Kind: window.KindInventory, Streams: []string{"inv"}},
		{Name: "room", Kind: window.KindRoom, Streams: []string{"room"}},
		{Name: "perception", Kind: window.KindPerception, Streams: []string{"percWindow"}},
		{Name: "combat", Kind: window.KindList, Streams: []string{"combat"}},
		{Name: "players", Kind: window.KindList, Streams: []string{"playerlist"}},
		{Name: "roundtime", Kind: window.KindCountdown},
		{Name: "casttime", Kind: window.KindCountdown},
		{Name: "health", Kind: window.KindProgress},
		{Name: "mana", Kind: window.KindProgress},
		{Name: "stamina", Kind: window.KindProgress},
		{Name: "spirit", Kind: window.KindProgress},
		{Name: "left", Kind: window.KindHand},
		{Name: "right", Kind: window.KindHand},
		{Name: "spell", Kind: window.KindHand},
		{Name: "compass", Kind: window.KindCompass},
	}
}

// WindowConfigs converts declared windows, falling back to DefaultWindows.
func (c *Config) WindowConfigs() ([]window.Config, error) {
	if len(c.Windows) == 0 {
		return DefaultWindows(), nil
	}
	out := make([]window.Config, 0, len(c.Windows))
	for _, w := range c.Windows {
		kind, err := window.ParseKind(w.Kind)
		if err != nil {
			return nil, fmt.Errorf("window %q: %w", w.Name, err)
		}
		out = append(out, window.Config{
			Name:     w.Name,
			Kind:     kind,
			Title:    w.Title,
			Streams:  w.Streams,
			Speech:   w.Speech,
			MaxLines: w.MaxLines,
		})
	}
	return out, nil
}

// Validate reports every structural problem in the config. Patterns that
// fail to compile are not validation errors; they are skipped at compile
// time with a warning.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Windows))
	for i, w := range c.Windows {
		if w.Name == "" {
			errs = append(errs, fmt.Errorf("windows[%d]: name is required", i))
			continue
		}
		if seen[w.Name] {
			errs = append(errs, fmt.Errorf("windows[%d]: duplicate window %q", i, w.Name))
		}
		seen[w.Name] = true
		if _, err := window.ParseKind(w.Kind); err != nil {
			errs = append(errs, fmt.Errorf("windows[%d]: %w", i, err))
		}
		if w.MaxLines < 0 {
			errs = append(errs, fmt.Errorf("windows[%d]: max_lines must be >= 0", i))
		}
	}

	for i, h := range c.Highlights {
		switch h.RedirectMode {
		case "", types.RedirectOnly, types.RedirectCopy:
		default:
			errs = append(errs, fmt.Errorf("highlights[%d] %q: unknown redirect_mode %q", i, h.Name, h.RedirectMode))
		}
		switch h.Scope {
		case "", types.ScopeMatch, types.ScopeLine:
		default:
			errs = append(errs, fmt.Errorf("highlights[%d] %q: unknown scope %q", i, h.Name, h.Scope))
		}
	}

	for i, e := range c.Events {
		if e.EventType == "" {
			errs = append(errs, fmt.Errorf("events[%d] %q: event_type is required", i, e.Name))
		}
		if _, err := types.ParseEventAction(string(e.Action)); err != nil {
			errs = append(errs, fmt.Errorf("events[%d] %q: %w", i, e.Name, err))
		}
		if e.Duration < 0 {
			errs = append(errs, fmt.Errorf("events[%d] %q: duration must be >= 0", i, e.Name))
		}
	}

	for k := range c.PromptColors {
		if utf8.RuneCountInString(k) != 1 {
			errs = append(errs, fmt.Errorf("prompt_colors: key %q must be a single character", k))
		}
	}

	switch c.Speech.SideChannelPriority {
	case "", "normal", "high":
	default:
		errs = append(errs, fmt.Errorf("speech: unknown side_channel_priority %q", c.Speech.SideChannelPriority))
	}

	switch c.Adapter.Type {
	case "":
	case AdapterWebhook, AdapterRedis:
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter: %s requires a url", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter: unknown type %q (must be webhook or redis)", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, errors.New("adapter: retries must be >= 0"))
	}

	switch c.Archive.Backend {
	case "":
	case BackendFS, BackendS3:
		if c.Archive.Path == "" {
			errs = append(errs, fmt.Errorf("archive: %s backend requires a path", c.Archive.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("archive: unknown backend %q (must be fs or s3)", c.Archive.Backend))
	}

	return errors.Join(errs...)
}
