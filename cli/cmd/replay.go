package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/skein/capture"
	"github.com/pithecene-io/skein/cli/config"
	"github.com/pithecene-io/skein/cli/reader"
	"github.com/pithecene-io/skein/cli/render"
	"github.com/pithecene-io/skein/iox"
	"github.com/pithecene-io/skein/log"
	"github.com/pithecene-io/skein/metrics"
	"github.com/pithecene-io/skein/pipeline"
	"github.com/pithecene-io/skein/router"
	"github.com/pithecene-io/skein/window"
)

// closeTimeout bounds draining notifications and flushing the archive.
const closeTimeout = 10 * time.Second

// ReplayCommand returns the replay command.
// Replay decodes and routes a transcript or capture file through a full
// session (rules, adapter, archive) and renders the resulting windows.
func ReplayCommand() *cli.Command {
	flags := append(TUIReadOnlyFlags(),
		ConfigFlag,
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Raw transcript or capture file (- for stdin)",
			Value:   "-",
		},
		&cli.BoolFlag{
			Name:  "capture",
			Usage: "Input is a capture file written by `skein record`",
		},
		&cli.StringFlag{
			Name:    "window",
			Aliases: []string{"w"},
			Usage:   "Show only this window",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "Show session counters instead of windows",
		},
		&cli.BoolFlag{
			Name:  "state",
			Usage: "Show the session report (windows, state, counters)",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "Reload the config file while replaying",
		},
		&cli.StringFlag{
			Name:  "session-id",
			Usage: "Session id (default: capture header, else a new UUID)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Write structured logs to stderr",
		},
	)
	flags = append(flags, outputFlags()...)

	return &cli.Command{
		Name:   "replay",
		Usage:  "Decode and route a transcript, then show the windows",
		Flags:  flags,
		Action: replayAction,
	}
}

func replayAction(c *cli.Context) error {
	if c.Bool("stats") && c.Bool("state") {
		return fmt.Errorf("--stats and --state are mutually exclusive")
	}
	if c.Bool("watch") && c.String("config") == "" {
		return fmt.Errorf("--watch requires --config")
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	applyOutputFlags(c, cfg)

	in, closeIn, err := openInput(c.String("input"))
	if err != nil {
		return err
	}
	defer closeIn()

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	// A capture header carries the session identity, so read up to the
	// first line before opening the archive.
	src := &replaySource{}
	if c.Bool("capture") {
		src.frames = capture.NewDecoder(in)
		if err := src.prime(); err != nil {
			return err
		}
	} else {
		src.raw = in
	}

	sessionID := c.String("session-id")
	character := ""
	if h := src.header(); h != nil {
		if sessionID == "" {
			sessionID = h.SessionID
		}
		character = h.Character
	}

	var logger *log.Logger
	if c.Bool("verbose") {
		logger = log.NewLogger(log.SessionMeta{SessionID: sessionID, Character: character})
		defer func() { _ = logger.Sync() }()
	}

	ad, err := pipeline.NewAdapter(cfg.Adapter)
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}
	arch, err := pipeline.OpenArchive(ctx, cfg.Archive, sessionID, character)
	if err != nil {
		if ad != nil {
			_ = ad.Close()
		}
		return fmt.Errorf("failed to open archive: %w", err)
	}

	collector := metrics.NewCollector(sessionID, cfg.Adapter.Type, cfg.Archive.Backend)
	sess, err := pipeline.NewSession(cfg, pipeline.Deps{
		SessionID: sessionID,
		Logger:    logger,
		Metrics:   collector,
		Adapter:   ad,
		Archive:   arch,
	})
	if err != nil {
		if ad != nil {
			_ = ad.Close()
		}
		if arch != nil {
			_ = arch.Close(ctx)
		}
		return err
	}

	if c.Bool("watch") || cfg.Reload.Enabled {
		if path := c.String("config"); path != "" {
			w := config.NewWatcher(path, cfg.Reload.Interval.Duration, sess.Reload)
			go w.Run(ctx)
		}
	}

	runErr := src.run(ctx, sess, collector)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
	defer closeCancel()
	if err := sess.Close(closeCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("replay failed: %w", runErr)
	}
	if logger != nil {
		snap := collector.Snapshot()
		logger.Sugar().Infof("replay finished: %d lines, %d notifications sent, %d dropped",
			snap.LinesProcessed, snap.NotificationsSent, snap.NotificationsDropped)
	}

	return renderReplay(c, r, sess, collector)
}

// renderReplay picks the view requested by the flags.
func renderReplay(c *cli.Context, r *render.Renderer, sess *pipeline.Session, collector *metrics.Collector) error {
	snap := reader.Metrics(collector.Snapshot())
	if c.Bool("stats") {
		if c.Bool("tui") {
			return r.RenderTUI("stats_session", snap)
		}
		return r.Render(snap)
	}

	var (
		summaries []reader.WindowSummary
		windows   []*reader.WindowResponse
		report    *reader.SessionReport
		viewErr   error
	)
	name := c.String("window")
	sess.View(func(rt *router.Router) {
		reg := rt.Windows()
		if name != "" {
			w, err := reader.InspectWindow(reg, name)
			if err != nil {
				viewErr = err
				return
			}
			windows = []*reader.WindowResponse{w}
			return
		}
		summaries = reader.ListWindows(reg)
		windows = nonEmptyWindows(reg)
		report = &reader.SessionReport{
			SessionID: sess.ID(),
			Windows:   summaries,
			State:     rt.State().Snapshot(),
			Metrics:   snap,
		}
	})
	if viewErr != nil {
		return viewErr
	}

	switch {
	case name != "":
		if c.Bool("tui") {
			return r.RenderTUI("inspect_window", windows[0])
		}
		return r.Render(windows[0])
	case c.Bool("state"):
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported with --state", 1)
		}
		return r.Render(report)
	case c.Bool("tui"):
		return r.RenderTUI("inspect_windows", windows)
	case r.Format() == render.FormatText:
		return r.Render(windows)
	default:
		return r.Render(summaries)
	}
}

// nonEmptyWindows returns the content of every window that received
// anything, in declaration order.
func nonEmptyWindows(reg *window.Registry) []*reader.WindowResponse {
	var out []*reader.WindowResponse
	for _, name := range reg.Names() {
		w, err := reader.InspectWindow(reg, name)
		if err != nil {
			continue
		}
		if len(w.Lines) == 0 && len(w.Components) == 0 && w.Progress == nil {
			continue
		}
		out = append(out, w)
	}
	return out
}

// replaySource feeds either raw lines or capture frames to a session.
type replaySource struct {
	raw    io.Reader
	frames *capture.Decoder
	first  *capture.LineFrame
	// firstErr is a non-fatal decode error met while priming.
	firstErr error
	eof      bool
}

// prime reads up to the first line frame so the header is known.
func (s *replaySource) prime() error {
	line, err := s.frames.ReadLine()
	switch {
	case err == nil:
		s.first = line
	case errors.Is(err, io.EOF):
		s.eof = true
	case capture.IsFatalFrameError(err):
		return fmt.Errorf("invalid capture file: %w", err)
	default:
		s.firstErr = err
	}
	return nil
}

func (s *replaySource) header() *capture.HeaderFrame {
	if s.frames == nil {
		return nil
	}
	return s.frames.Header()
}

func (s *replaySource) run(ctx context.Context, sess *pipeline.Session, m *metrics.Collector) error {
	if s.raw != nil {
		return sess.Run(ctx, s.raw)
	}
	if s.eof {
		return nil
	}
	if s.firstErr != nil {
		m.IncCaptureDecodeErrors()
	}
	if s.first != nil {
		sess.ProcessLineAt(s.first.Text, s.first.Time())
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.frames.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if capture.IsFatalFrameError(err) {
				return fmt.Errorf("invalid capture file: %w", err)
			}
			m.IncCaptureDecodeErrors()
			continue
		}
		sess.ProcessLineAt(line.Text, line.Time())
	}
}

// loadConfig loads path, or returns an empty config when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOutputFlags lets CLI flags override the adapter and archive
// sections of the config.
func applyOutputFlags(c *cli.Context, cfg *config.Config) {
	cfg.Adapter.Type = resolveString(c, "adapter", cfg.Adapter.Type)
	cfg.Adapter.URL = resolveString(c, "adapter-url", cfg.Adapter.URL)
	cfg.Adapter.Channel = resolveString(c, "adapter-channel", cfg.Adapter.Channel)
	cfg.Adapter.Timeout.Duration = resolveDuration(c, "adapter-timeout", cfg.Adapter.Timeout.Duration)
	cfg.Adapter.QueueSize = resolveInt(c, "queue-size", cfg.Adapter.QueueSize)
	cfg.Archive.Backend = resolveString(c, "archive-backend", cfg.Archive.Backend)
	cfg.Archive.Path = resolveString(c, "archive-path", cfg.Archive.Path)
	cfg.Archive.Region = resolveString(c, "archive-region", cfg.Archive.Region)
	cfg.Archive.S3PathStyle = resolveBool(c, "archive-s3-path-style", cfg.Archive.S3PathStyle)
}

// openInput opens path for reading; "-" or empty is stdin.
func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { iox.DiscardClose(f) }, nil
}
