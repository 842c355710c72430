package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/skein/capture"
	"github.com/pithecene-io/skein/pipeline"
)

// RecordCommand returns the record command.
// Record wraps raw server lines into a capture file that replay can read
// back with the original receive times.
func RecordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record raw server lines into a capture file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Capture file to write",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Raw transcript to read (- for stdin)",
				Value:   "-",
			},
			&cli.StringFlag{
				Name:  "session-id",
				Usage: "Session id stored in the header (default: new UUID)",
			},
			&cli.StringFlag{
				Name:  "character",
				Usage: "Character name stored in the header",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the summary line",
			},
		},
		Action: recordAction,
	}
}

func recordAction(c *cli.Context) error {
	in, closeIn, err := openInput(c.String("input"))
	if err != nil {
		return err
	}
	defer closeIn()

	out, err := os.Create(c.String("output"))
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}

	sessionID := c.String("session-id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	n, recErr := recordLines(in, out, capture.HeaderFrame{
		SessionID: sessionID,
		StartedAt: time.Now().UnixMilli(),
		Character: c.String("character"),
	}, time.Now)
	if err := out.Close(); err != nil && recErr == nil {
		recErr = fmt.Errorf("failed to close capture file: %w", err)
	}
	if recErr != nil {
		return recErr
	}

	if !c.Bool("quiet") {
		fmt.Fprintf(c.App.ErrWriter, "session_id=%s, lines=%d, output=%s\n", sessionID, n, c.String("output"))
	}
	return nil
}

// recordLines writes a header and one frame per input line. Returns the
// number of lines written.
func recordLines(r io.Reader, w io.Writer, h capture.HeaderFrame, now func() time.Time) (int, error) {
	enc := capture.NewEncoder(w)
	if err := enc.WriteHeader(h); err != nil {
		return 0, err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), pipeline.MaxLineSize)
	n := 0
	for sc.Scan() {
		if err := enc.WriteLine(now(), strings.TrimSuffix(sc.Text(), "\r")); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read input: %w", err)
	}
	return n, nil
}
