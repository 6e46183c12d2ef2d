package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"tex-lsp/analysis"
	"tex-lsp/config"
	"tex-lsp/lsp"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "tex-lint",
		Usage:     "run the LaTeX prose checker over files and print what it finds",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "checker",
				Usage: "checker argv prefix, one word per flag",
			},
			&cli.StringSliceFlag{
				Name:  "option",
				Usage: "extra checker argument, repeatable",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "read checker settings from `FILE` instead of discovering texlint.toml",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   runtime.NumCPU(),
				Usage:   "files checked in parallel",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "plain output",
			},
		},
		Action: lint,
	}
}

// exitError distinguishes "the prose has errors" (1) from "the lint run
// itself broke" (2).
type exitError struct {
	message string
	code    int
}

func (e exitError) Error() string { return e.message }

func exitCode(err error) int {
	if e, ok := err.(exitError); ok {
		return e.code
	}
	return 2
}

func lint(c *cli.Context) error {
	if c.NArg() == 0 {
		return exitError{"tex-lint: no files to check", 2}
	}
	if c.Bool("no-color") {
		color.NoColor = true
	}

	checker, options, err := resolveSettings(c)
	if err != nil {
		return err
	}

	files := c.Args().Slice()
	results := make([][]lsp.Diagnostic, len(files))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(c.Int("jobs"))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(file)
			if err != nil {
				return err
			}
			diags, skipped, err := analysis.CheckFile(ctx, checker, options, abs, string(data))
			if err != nil {
				return fmt.Errorf("checking %s: %w", file, err)
			}
			for _, serr := range skipped {
				fmt.Fprintf(os.Stderr, "tex-lint: %s: %v\n", file, serr)
			}
			results[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total, hard := 0, 0
	for i, file := range files {
		for _, d := range results[i] {
			writeDiagnostic(os.Stdout, file, d)
			total++
			if d.Severity == lsp.SeverityError {
				hard++
			}
		}
	}
	if hard > 0 {
		return exitError{fmt.Sprintf("tex-lint: %d findings (%d errors)", total, hard), 1}
	}
	return nil
}

// resolveSettings layers flags over the config file: explicit flags win,
// then the file named by --config or the nearest texlint.toml.
func resolveSettings(c *cli.Context) (checker, options []string, err error) {
	var cfg config.Config
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, nil, err
		}
		cfg, _, err = config.Discover(cwd)
		if err != nil {
			return nil, nil, err
		}
	}

	checker = c.StringSlice("checker")
	if len(checker) == 0 {
		checker = cfg.Checker
	}
	options = append(cfg.Options, c.StringSlice("option")...)
	return checker, options, nil
}

var severityColors = map[lsp.DiagnosticSeverity]*color.Color{
	lsp.SeverityError:       color.New(color.FgRed, color.Bold),
	lsp.SeverityWarning:     color.New(color.FgYellow),
	lsp.SeverityInformation: color.New(color.FgCyan),
	lsp.SeverityHint:        color.New(color.FgHiBlack),
}

func writeDiagnostic(w io.Writer, file string, d lsp.Diagnostic) {
	label := d.Severity.String()
	if c, ok := severityColors[d.Severity]; ok {
		label = c.Sprint(label)
	}

	lines := strings.Split(d.Message, "\n")
	fmt.Fprintf(w, "%s:%d:%d - %d:%d\t%s\t%s (%s)\n",
		file,
		d.Range.Start.Line, d.Range.Start.Character,
		d.Range.End.Line, d.Range.End.Character,
		label, lines[0], d.Code,
	)
	for _, line := range lines[1:] {
		fmt.Fprintf(w, "\t%s\n", line)
	}
	fmt.Fprintln(w)
}
