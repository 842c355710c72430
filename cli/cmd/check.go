package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/skein/cli/config"
	"github.com/pithecene-io/skein/cli/reader"
	"github.com/pithecene-io/skein/cli/render"
	"github.com/pithecene-io/skein/filter"
	"github.com/pithecene-io/skein/markup"
	"github.com/pithecene-io/skein/types"
)

// exitInvalidConfig is returned by check when the config has problems.
const exitInvalidConfig = 2

// CheckCommand returns the check command.
// Check loads a config file, validates it and compiles every rule without
// starting a session.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Validate a config file and compile its rules",
		Flags: append(ReadOnlyFlags(), &cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to skein.yaml",
			EnvVars:  []string{"SKEIN_CONFIG"},
			Required: true,
		}),
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for check command", 1)
	}

	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	resp := checkConfig(path, cfg)
	if err := r.Render(resp); err != nil {
		return err
	}
	if !resp.Valid {
		return cli.Exit("", exitInvalidConfig)
	}
	return nil
}

// checkConfig collects validation and compile problems.
func checkConfig(path string, cfg *config.Config) *reader.CheckResponse {
	resp := &reader.CheckResponse{
		Config:     path,
		Highlights: len(cfg.Highlights),
		Events:     len(cfg.Events),
		Problems:   []string{},
	}

	if err := cfg.Validate(); err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				resp.Problems = append(resp.Problems, e.Error())
			}
		} else {
			resp.Problems = append(resp.Problems, err.Error())
		}
	} else if layout, err := cfg.WindowConfigs(); err != nil {
		resp.Problems = append(resp.Problems, err.Error())
	} else {
		resp.Windows = len(layout)
	}

	_, eventErrs := markup.CompileEvents(cfg.Events)
	_, filterErrs := filter.Compile(cfg.Highlights)
	for _, errs := range [][]*types.CompileError{eventErrs, filterErrs} {
		for _, e := range errs {
			resp.Problems = append(resp.Problems, e.Error())
		}
	}

	resp.Valid = len(resp.Problems) == 0
	return resp
}
