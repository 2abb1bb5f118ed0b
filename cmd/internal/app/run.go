package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

type cliOptions struct {
	envFile   string
	addr      string
	logLevel  string
	logFormat string
	staticDir string

	flags *pflag.FlagSet
}

func parseFlags(args []string) (cliOptions, error) {
	var o cliOptions
	fs := pflag.NewFlagSet("ticketd", pflag.ContinueOnError)
	fs.StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before reading TICKETD_* variables")
	fs.StringVar(&o.addr, "addr", "", "listen address (overrides TICKETD_HTTP_ADDR)")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (overrides TICKETD_LOG_LEVEL)")
	fs.StringVar(&o.logFormat, "log-format", "", "json, text or pretty (overrides TICKETD_LOG_FORMAT)")
	fs.StringVar(&o.staticDir, "static-dir", "", "directory served for unmatched routes (overrides TICKETD_STATIC_DIR)")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	o.flags = fs
	return o, nil
}

// apply copies explicitly set flags over cfg.
func (o cliOptions) apply(cfg *Config) {
	if o.flags == nil {
		return
	}
	if o.flags.Changed("addr") {
		cfg.HTTPAddr = o.addr
	}
	if o.flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if o.flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if o.flags.Changed("static-dir") {
		cfg.Web.StaticDir = o.staticDir
	}
}

// Run is the CLI entrypoint used by cmd/ticketd.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := LoadConfig(opts.envFile)
	if err != nil {
		return err
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
