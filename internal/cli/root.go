// Package cli implements the cobra command tree for stache.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-stache/internal/config"
	"github.com/benjaminschreck/go-stache/internal/logging"
	"github.com/benjaminschreck/go-stache/pkg/stache"
)

// Exit codes returned by Execute.
const (
	ExitRender   = 1
	ExitUsage    = 2
	ExitMismatch = 3
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(format string, args ...interface{}) error {
	return &ExitError{Code: ExitUsage, Err: fmt.Errorf(format, args...)}
}

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return ExitRender
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "stache",
		Short: "Render mustache templates with filters",
		Long: `stache renders mustache-style templates against JSON or YAML data.

Variable tags may apply filters to values, as in {{ uppercase(name) }}.
Filters come from the data itself or from the built-in registry, and
--sprig adds the sprig function library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}

			logger := logging.SetupWithWriter(cfg, cmd.ErrOrStderr())

			engine, err := newEngine(cfg)
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			ctx = newEngineContext(ctx, engine)
			cmd.SetContext(ctx)

			logger.WithFields(log.Fields{
				"logLevel":   cfg.LogLevel,
				"logFormat":  cfg.LogFormat,
				"configFile": cfg.ConfigFile,
				"sprig":      cfg.Sprig,
			}).Debug("configuration loaded")

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return engineFromContext(cmd.Context()).Close()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .stache.yaml)")
	pf.String("log-level", config.LogLevelInfo, "log level: debug, info, warn, error")
	pf.String("log-format", config.LogFormatText, "log format: text, json")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")
	pf.Bool("strict", false, "fail on undefined variables")
	pf.Bool("sprig", false, "register the sprig function library as filters")
	pf.Int("cache-size", config.Default().CacheSize, "parsed template cache size (0 disables)")
	pf.Duration("cache-ttl", 0, "parsed template cache expiry (0 never expires)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Err: err}
	})

	cmd.AddCommand(
		newRenderCommand(),
		newCheckCommand(),
		newFiltersCommand(),
		newVersionCommand(),
	)

	return cmd
}

// newEngine builds the template engine described by cfg.
func newEngine(cfg *config.Config) (*stache.Engine, error) {
	opts := []stache.Option{stache.WithConfig(cfg.ToEngineConfig())}
	if cfg.Sprig {
		opts = append(opts, stache.WithSprig())
	}

	engine, err := stache.NewWithOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	return engine, nil
}

type engineKey struct{}

func newEngineContext(ctx context.Context, engine *stache.Engine) context.Context {
	return context.WithValue(ctx, engineKey{}, engine)
}

// engineFromContext returns the engine installed by the root command,
// falling back to a default engine.
func engineFromContext(ctx context.Context) *stache.Engine {
	if ctx != nil {
		if engine, ok := ctx.Value(engineKey{}).(*stache.Engine); ok {
			return engine
		}
	}

	return stache.New()
}
