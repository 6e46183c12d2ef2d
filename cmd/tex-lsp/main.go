package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tex-lsp/config"
	lspserver "tex-lsp/lsp-server"
)

const version = "0.1.0"

func main() {
	app := cli.App{
		Name:    "tex-lsp",
		Usage:   "language server that runs a LaTeX prose checker for you",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tcp",
				Usage: "listen on a tcp socket instead of stdio",
			},
			&cli.StringFlag{
				Name:  "host",
				Value: "127.0.0.1",
				Usage: "interface to bind with --tcp",
			},
			&cli.IntFlag{
				Name:  "port",
				Value: 2087,
				Usage: "port to bind with --tcp",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "append logs to `FILE` instead of stderr",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at debug level",
			},
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
				Usage: "read checker settings from `FILE`",
			},
		},
		Action: serve,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	log, err := buildLogger(c.String("log-file"), c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer log.Sync()

	checker := c.StringSlice("checker")
	options := c.StringSlice("option")
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if len(checker) == 0 {
			checker = cfg.Checker
		}
		options = append(cfg.Options, options...)
	}

	s := newServer(log, checker, options)

	if c.Bool("tcp") {
		addr := fmt.Sprintf("%s:%d", c.String("host"), c.Int("port"))
		log.Info("listening for a client", zap.String("addr", addr))
		return lspserver.ListenAndServe(addr, s.methods())
	}
	log.Info("serving on stdio")
	lspserver.Serve(s.methods())
	return nil
}

// buildLogger keeps the protocol channel clean: stdout belongs to the
// client, so logs go to stderr or a file.
func buildLogger(path string, verbose bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	var output zapcore.WriteSyncer
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		output = zapcore.AddSync(f)
	} else {
		output = zapcore.AddSync(os.Stderr)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), output, level)), nil
}
