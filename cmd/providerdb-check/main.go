// Package main is the entry point for the provider catalog checker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shineum/providerdb-check/internal/check"
	"github.com/shineum/providerdb-check/internal/config"
	"github.com/shineum/providerdb-check/internal/probe"
	ptls "github.com/shineum/providerdb-check/internal/tls"
)

// maxExitCode caps the failure count reported through --exit-code so it
// never collides with shell-reserved statuses.
const maxExitCode = 125

type options struct {
	configPath string
	path       string
	name       string
	quiet      bool
	timeout    time.Duration
	caFile     string
	localName  string
	logLevel   string
	exitCode   bool
	noColor    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var status int
	cmd := newRootCmd(&status)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
	stop()
	os.Exit(status)
}

// newRootCmd builds the command. On completion *status holds the exit
// status for a run that did not fail fatally.
func newRootCmd(status *int) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "providerdb-check",
		Short: "Check that the SMTP and IMAP servers of a provider catalog are reachable",
		Long: `providerdb-check walks a provider catalog, connects once to every declared
SMTP and IMAP server and performs the handshake for its socket mode
(SSL, STARTTLS or PLAIN). Failures are printed as they happen.

When --name is given, the first failure aborts the run with a non-zero status.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &opts)
			if err := cfg.Validate(); err != nil {
				return err
			}

			setupLogger(cfg.Logging.Level)

			tlsConfig, err := ptls.ClientConfig(cfg.Probe.CAFile)
			if err != nil {
				return fmt.Errorf("failed to set up trust store: %w", err)
			}

			prober := probe.New(probe.Config{
				Timeout:   cfg.Probe.Timeout,
				TLSConfig: tlsConfig,
				LocalName: cfg.Probe.LocalName,
			})
			reporter := check.NewReporter(cmd.OutOrStdout(), cfg.Output.Quiet, cfg.Output.NoColor)
			runner := check.New(check.Config{
				Path: cfg.Catalog.Path,
				Name: cfg.Catalog.Name,
			}, prober, reporter)

			slog.Debug("starting catalog check",
				"path", cfg.Catalog.Path,
				"name", cfg.Catalog.Name,
				"timeout", cfg.Probe.Timeout,
				"ca_file", cfg.Probe.CAFile,
			)

			sum, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			reporter.Summary(sum)

			if cfg.Output.ExitCode {
				*status = min(sum.Failed, maxExitCode)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to YAML configuration file (optional)")
	flags.StringVar(&opts.path, "path", "_providers", "path to provider-db/_providers")
	flags.StringVar(&opts.name, "name", "", "test only providers whose name contains this string")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "only print errors")
	flags.DurationVar(&opts.timeout, "timeout", probe.DefaultTimeout, "timeout for a single connection attempt")
	flags.StringVar(&opts.caFile, "ca-file", "", "PEM file with additional trusted CA certificates")
	flags.StringVar(&opts.localName, "local-name", "localhost", "host name sent in SMTP EHLO after STARTTLS")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.exitCode, "exit-code", false, "exit with the number of failed probes")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	return cmd
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *options) {
	flags := cmd.Flags()
	if flags.Changed("path") {
		cfg.Catalog.Path = opts.path
	}
	if flags.Changed("name") {
		cfg.Catalog.Name = opts.name
	}
	if flags.Changed("quiet") {
		cfg.Output.Quiet = opts.quiet
	}
	if flags.Changed("timeout") {
		cfg.Probe.Timeout = opts.timeout
	}
	if flags.Changed("ca-file") {
		cfg.Probe.CAFile = opts.caFile
	}
	if flags.Changed("local-name") {
		cfg.Probe.LocalName = opts.localName
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("exit-code") {
		cfg.Output.ExitCode = opts.exitCode
	}
	if flags.Changed("no-color") {
		cfg.Output.NoColor = opts.noColor
	}
}

// setupLogger configures the global slog logger with JSON output on stderr
// and the specified log level. Standard output carries the report.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
