package cmd

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/skein/archive"
	"github.com/pithecene-io/skein/capture"
	"github.com/pithecene-io/skein/cli/config"
	"github.com/pithecene-io/skein/cli/reader"
	"github.com/pithecene-io/skein/types"
)

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	flags := ReadOnlyFlags()

	hasTUI := false
	for _, f := range flags {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}

	if !hasTUI {
		t.Error("ReadOnlyFlags should include --tui flag for explicit error handling")
	}
}

func TestTUIReadOnlyFlags_IncludesTUI(t *testing.T) {
	flags := TUIReadOnlyFlags()

	hasTUI := false
	for _, f := range flags {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}

	if !hasTUI {
		t.Error("TUIReadOnlyFlags should include --tui flag")
	}
}

// newTestCLIContext builds a context where only flagValues count as set.
func newTestCLIContext(t *testing.T, flagValues map[string]string, defaults map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	allFlags := make(map[string]string)
	for k, v := range defaults {
		allFlags[k] = v
	}
	for k, v := range flagValues {
		allFlags[k] = v
	}

	var cliFlags []cli.Flag
	for name, val := range allFlags {
		cliFlags = append(cliFlags, &cli.StringFlag{Name: name, Value: val})
	}
	app.Flags = cliFlags

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, val := range allFlags {
		fs.String(name, val, "")
	}

	// Only set the flagValues (not defaults) so c.IsSet works
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestResolveString_CLIWins(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"archive-path": "/cli"}, nil)
	if got := resolveString(c, "archive-path", "/config"); got != "/cli" {
		t.Errorf("expected CLI to win, got %q", got)
	}
}

func TestResolveString_ConfigFallback(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"archive-path": ""})
	if got := resolveString(c, "archive-path", "/config"); got != "/config" {
		t.Errorf("expected config fallback, got %q", got)
	}
}

func TestResolveString_FlagDefault(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"dataset": "skein"})
	if got := resolveString(c, "dataset", ""); got != "skein" {
		t.Errorf("expected flag default, got %q", got)
	}
}

func TestResolveInt(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "queue-size"}}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("queue-size", 0, "")
	c := cli.NewContext(app, fs, nil)
	if got := resolveInt(c, "queue-size", 64); got != 64 {
		t.Errorf("expected config fallback 64, got %d", got)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("queue-size", 0, "")
	_ = fs.Set("queue-size", "8")
	c = cli.NewContext(app, fs, nil)
	if got := resolveInt(c, "queue-size", 64); got != 8 {
		t.Errorf("expected CLI to win with 8, got %d", got)
	}
}

func TestResolveBool_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.BoolFlag{Name: "archive-s3-path-style"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("archive-s3-path-style", false, "")
	_ = fs.Set("archive-s3-path-style", "false")
	c := cli.NewContext(app, fs, nil)

	if resolveBool(c, "archive-s3-path-style", true) {
		t.Error("expected explicit CLI false to win over config true")
	}
}

func TestResolveDuration(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "adapter-timeout"}}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("adapter-timeout", 0, "")
	_ = fs.Set("adapter-timeout", "30s")
	c := cli.NewContext(app, fs, nil)
	if got := resolveDuration(c, "adapter-timeout", 10*time.Second); got != 30*time.Second {
		t.Errorf("expected CLI 30s to win, got %v", got)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("adapter-timeout", 0, "")
	c = cli.NewContext(app, fs, nil)
	if got := resolveDuration(c, "adapter-timeout", 10*time.Second); got != 10*time.Second {
		t.Errorf("expected config fallback 10s, got %v", got)
	}
}

// newTestApp creates a cli.App with every command wired up, output captured
// in out, and ExitErrHandler suppressed so errors are returned instead of
// calling os.Exit.
func newTestApp(out *bytes.Buffer) *cli.App {
	app := cli.NewApp()
	app.Commands = []*cli.Command{
		ReplayCommand(),
		RecordCommand(),
		CheckCommand(),
		HistoryCommand(),
		VersionCommand("", "abc123"),
	}
	app.Writer = out
	app.ErrWriter = &bytes.Buffer{}
	app.ExitErrHandler = func(*cli.Context, error) {} // suppress os.Exit
	return app
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const windowsYAML = `windows:
  - name: main
  - name: thoughts
`

const transcript = "<app char=\"Ragge\" game=\"DR\"/>\n" +
	"<pushStream id=\"thoughts\"/>You hear Ellis think.<popStream/>\n" +
	"Hello there.\n"

func TestVersionAction(t *testing.T) {
	var out bytes.Buffer
	if err := newTestApp(&out).Run([]string{"skein", "version", "--format", "json"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	var got VersionResponse
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.Version != types.Version || got.Commit != "abc123" {
		t.Errorf("version = %+v", got)
	}
}

func TestVersionAction_RejectsTUI(t *testing.T) {
	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "version", "--tui"})
	if err == nil || !strings.Contains(err.Error(), "--tui is not supported") {
		t.Errorf("expected --tui rejection, got %v", err)
	}
}

func TestReplayAction_Window(t *testing.T) {
	input := writeFile(t, "session.log", transcript)
	cfg := writeFile(t, "skein.yaml", windowsYAML)

	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "replay",
		"--input", input, "--config", cfg, "--window", "thoughts", "--format", "json",
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	var got reader.WindowResponse
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.Name != "thoughts" || len(got.Lines) != 1 || got.Lines[0].Plain() != "You hear Ellis think." {
		t.Errorf("thoughts = %+v", got)
	}
}

func TestReplayAction_TextFormat(t *testing.T) {
	input := writeFile(t, "session.log", transcript)
	cfg := writeFile(t, "skein.yaml", windowsYAML)

	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "replay",
		"--input", input, "--config", cfg, "--format", "text", "--no-color",
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	got := out.String()
	for _, want := range []string{"== main ==", "Hello there.", "== thoughts ==", "You hear Ellis think."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestReplayAction_Stats(t *testing.T) {
	input := writeFile(t, "session.log", transcript)

	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "replay",
		"--input", input, "--stats", "--session-id", "sess-1", "--format", "json",
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	var got reader.MetricsSnapshot
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.SessionID != "sess-1" || got.LinesProcessed != 3 {
		t.Errorf("stats = %+v", got)
	}
}

func TestReplayAction_UnknownWindow(t *testing.T) {
	input := writeFile(t, "session.log", transcript)

	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "replay", "--input", input, "--window", "nowhere"})
	if err == nil || !strings.Contains(err.Error(), "unknown window") {
		t.Errorf("expected unknown window error, got %v", err)
	}
}

func TestReplayAction_FlagConflicts(t *testing.T) {
	input := writeFile(t, "session.log", transcript)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"stats and state", []string{"--stats", "--state"}, "mutually exclusive"},
		{"watch without config", []string{"--watch"}, "--watch requires --config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			args := append([]string{"skein", "replay", "--input", input}, tt.args...)
			err := newTestApp(&out).Run(args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestReplayAction_ConfigFileNotFound(t *testing.T) {
	input := writeFile(t, "session.log", transcript)

	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "replay",
		"--input", input, "--config", filepath.Join(t.TempDir(), "missing.yaml"),
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected config not found error, got %v", err)
	}
}

func TestRecordThenReplayCapture(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, "session.log", transcript)
	capPath := filepath.Join(dir, "session.cap")

	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "record",
		"--input", input, "--output", capPath, "--session-id", "sess-cap", "--character", "Ragge",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	cfg := writeFile(t, "skein.yaml", windowsYAML)
	out.Reset()
	err = newTestApp(&out).Run([]string{"skein", "replay",
		"--input", capPath, "--capture", "--config", cfg, "--state", "--format", "json",
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	var got reader.SessionReport
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.SessionID != "sess-cap" {
		t.Errorf("session id = %q, want the capture header's", got.SessionID)
	}
	if got.Metrics == nil || got.Metrics.LinesProcessed != 3 {
		t.Errorf("metrics = %+v", got.Metrics)
	}
	lines := map[string]int{}
	for _, w := range got.Windows {
		lines[w.Name] = w.Lines
	}
	if lines["main"] != 1 || lines["thoughts"] != 1 {
		t.Errorf("window line counts = %v", lines)
	}
}

func TestRecordLines(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)
	n, err := recordLines(strings.NewReader("one\r\ntwo\n"), &buf, capture.HeaderFrame{SessionID: "s"}, func() time.Time { return ts })
	if err != nil {
		t.Fatalf("recordLines: %v", err)
	}
	if n != 2 {
		t.Fatalf("wrote %d lines, want 2", n)
	}

	dec := capture.NewDecoder(&buf)
	first, err := dec.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if first.Text != "one" || first.Seq != 1 || !first.Time().Equal(ts) {
		t.Errorf("first = %+v", first)
	}
	if h := dec.Header(); h == nil || h.SessionID != "s" || h.Version != types.CaptureVersion {
		t.Errorf("header = %+v", h)
	}
}

func TestReplayAction_CorruptCapture(t *testing.T) {
	// Length prefix promises more bytes than follow.
	capPath := writeFile(t, "bad.cap", "\x00\x00\x00\x10abc")

	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "replay", "--input", capPath, "--capture"})
	if err == nil || !strings.Contains(err.Error(), "invalid capture file") {
		t.Errorf("expected invalid capture error, got %v", err)
	}
}

func TestCheckConfig(t *testing.T) {
	cfg := &config.Config{
		Highlights: []types.HighlightPattern{
			{Name: "ok", Pattern: `Ragge`, Fg: "#FFFF00"},
			{Name: "broken", Pattern: `([`},
		},
		Events: []types.EventPattern{
			{Name: "stun", Pattern: `You are stunned`, EventType: "stunned"},
		},
	}
	resp := checkConfig("skein.yaml", cfg)
	if resp.Valid {
		t.Fatal("expected invalid config")
	}
	if resp.Highlights != 2 || resp.Events != 1 {
		t.Errorf("counts = %d/%d", resp.Highlights, resp.Events)
	}
	if len(resp.Problems) != 1 || !strings.Contains(resp.Problems[0], "broken") {
		t.Errorf("problems = %q", resp.Problems)
	}
}

func TestCheckAction(t *testing.T) {
	good := writeFile(t, "good.yaml", "highlights:\n  - name: me\n    pattern: Ragge\n    fg: \"#FFFF00\"\n")
	var out bytes.Buffer
	if err := newTestApp(&out).Run([]string{"skein", "check", "--config", good, "--format", "json"}); err != nil {
		t.Fatalf("check: %v", err)
	}
	var resp reader.CheckResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if !resp.Valid || resp.Windows == 0 {
		t.Errorf("resp = %+v", resp)
	}

	bad := writeFile(t, "bad.yaml", "adapter:\n  type: pigeon\n")
	out.Reset()
	err := newTestApp(&out).Run([]string{"skein", "check", "--config", bad, "--format", "json"})
	var exitErr cli.ExitCoder
	if err == nil {
		t.Fatal("expected exit error for invalid config")
	}
	if ec, ok := err.(cli.ExitCoder); ok {
		exitErr = ec
	}
	if exitErr == nil || exitErr.ExitCode() != exitInvalidConfig {
		t.Errorf("expected exit code %d, got %v", exitInvalidConfig, err)
	}
}

func TestHistoryAction(t *testing.T) {
	root := t.TempDir()
	a, err := archive.NewFS(archive.Config{SessionID: "sess-h", Character: "Ragge", FlushCount: 10}, root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	ts := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		if err := a.Append(t.Context(), archive.Entry{
			Window: "main", Stream: "main", Text: text, Time: ts.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := a.Close(t.Context()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var out bytes.Buffer
	err = newTestApp(&out).Run([]string{"skein", "history",
		"--archive-backend", "fs", "--archive-path", root,
		"--session", "sess-h", "--limit", "2", "--format", "json",
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var got []reader.TranscriptLine
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if len(got) != 2 || got[0].Text != "second" || got[1].Text != "third" {
		t.Errorf("history = %+v", got)
	}
	if got[1].Character != "Ragge" || got[1].Window != "main" {
		t.Errorf("last line = %+v", got[1])
	}
}

func TestHistoryAction_RequiresArchive(t *testing.T) {
	var out bytes.Buffer
	err := newTestApp(&out).Run([]string{"skein", "history"})
	if err == nil || !strings.Contains(err.Error(), "--archive-backend and --archive-path") {
		t.Errorf("expected archive requirement error, got %v", err)
	}
}
