package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/skein/archive"
	"github.com/pithecene-io/skein/cli/config"
	"github.com/pithecene-io/skein/cli/reader"
	"github.com/pithecene-io/skein/cli/render"
)

// HistoryCommand returns the history command.
// History reads archived transcript lines back out of the dataset.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show archived transcript lines for a session",
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			&cli.StringFlag{Name: "dataset", Usage: "Archive dataset ID", Value: archive.DefaultDataset},
			&cli.StringFlag{Name: "archive-backend", Usage: "Archive backend: fs or s3"},
			&cli.StringFlag{Name: "archive-path", Usage: "Archive path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "archive-region", Usage: "AWS region for S3 backend"},
			&cli.StringFlag{Name: "archive-endpoint", Usage: "Custom S3 endpoint"},
			&cli.BoolFlag{Name: "archive-s3-path-style", Usage: "Use path-style S3 addressing"},
			&cli.StringFlag{Name: "session", Usage: "Only lines from this session"},
			&cli.StringFlag{Name: "window", Aliases: []string{"w"}, Usage: "Only lines delivered to this window"},
			&cli.IntFlag{Name: "limit", Usage: "Show only the last N lines (0 = no limit)"},
		),
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for history command", 1)
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	backend := resolveString(c, "archive-backend", cfg.Archive.Backend)
	path := resolveString(c, "archive-path", cfg.Archive.Path)
	if backend == "" || path == "" {
		return fmt.Errorf("both --archive-backend and --archive-path are required (flags or config)")
	}
	dataset := resolveString(c, "dataset", cfg.Archive.Dataset)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ds, err := buildReadDataset(ctx, dataset, backend, path, archive.S3Config{
		Region:       resolveString(c, "archive-region", cfg.Archive.Region),
		Endpoint:     resolveString(c, "archive-endpoint", cfg.Archive.Endpoint),
		UsePathStyle: resolveBool(c, "archive-s3-path-style", cfg.Archive.S3PathStyle),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize archive reader: %w", err)
	}

	lines, err := readHistory(ctx, ds, c.String("session"), c.String("window"), c.Int("limit"))
	if err != nil {
		return err
	}
	return r.Render(lines)
}

// readHistory reads and parses transcript lines, keeping the last limit
// lines when limit > 0. No matching records is an empty result.
func readHistory(ctx context.Context, ds lodelibrary.Dataset, session, window string, limit int) ([]reader.TranscriptLine, error) {
	records, err := archive.ReadSession(ctx, ds, session, window)
	if errors.Is(err, archive.ErrNoRecords) {
		return []reader.TranscriptLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	lines := make([]reader.TranscriptLine, 0, len(records))
	for _, rec := range records {
		line, err := reader.ParseTranscriptRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transcript record: %w", err)
		}
		lines = append(lines, *line)
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

// buildReadDataset creates a Lode Dataset for reading. s3 carries the
// optional region and endpoint; bucket and prefix come from path.
func buildReadDataset(ctx context.Context, dataset, backend, path string, s3 archive.S3Config) (lodelibrary.Dataset, error) {
	switch backend {
	case config.BackendFS:
		return archive.NewFSReadDataset(dataset, path)
	case config.BackendS3:
		s3.Bucket, s3.Prefix = archive.ParseS3Path(path)
		return archive.NewS3ReadDataset(ctx, dataset, s3)
	default:
		return nil, fmt.Errorf("unsupported archive-backend: %s (must be fs or s3)", backend)
	}
}
