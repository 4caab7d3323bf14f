// Package cmd implements the ghstars command-line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/johnsaigle/ghstars/pkg/config"
)

var (
	configPath string
	token      string
	cacheDir   string
	backend    string
	verbose    bool

	cfg    *config.Config
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	rootCmd = &cobra.Command{
		Use:               "ghstars",
		Short:             "Look up GitHub stars and activity through a local metadata cache",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

// ExitError carries a non-zero exit status without an error message.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ghstars/config.toml)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "GitHub token (overrides GITHUB_TOKEN and the config file)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory for the file cache backend")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "cache backend: file, memory or redis")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if token != "" {
		loaded.Token = token
	}
	if cacheDir != "" {
		loaded.Store.Dir = cacheDir
	}
	if backend != "" {
		loaded.Store.Backend = backend
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	level := charmlog.InfoLevel
	if verbose || cfg.DebugLogging {
		level = charmlog.DebugLevel
	}
	logger = slog.New(newLogger(cmd.ErrOrStderr(), level))

	for _, key := range cfg.Undecoded {
		logger.Warn("unknown config key", "key", key)
	}
	return nil
}

// newLogger creates a logger with timestamp formatting, e.g. "14:32:01.45".
func newLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
