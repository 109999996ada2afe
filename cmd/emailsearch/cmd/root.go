package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wesm/emailsearch/internal/config"
	"github.com/wesm/emailsearch/internal/logging"
	"github.com/wesm/emailsearch/internal/remote"
)

var (
	cfgFile   string
	homeDir   string
	serverURL string
	verbose   bool
	cfg       *config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "emailsearch",
	Short: "Terminal client for a remote email search service",
	Long: `emailsearch searches an email archive served by a remote search API.

Run without a subcommand to open the interactive terminal UI. Use
'emailsearch search' for scripted, one-shot queries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" {
			return nil
		}

		// Load config (--home is passed through so it influences
		// where config.toml is loaded from, like EMAILSEARCH_HOME).
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// CLI commands log to stderr; the TUI opens its own log file.
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, _, err = logging.New(logging.Config{Level: level, Writer: cmd.ErrOrStderr()})
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		if serverURL != "" {
			cfg.Server.URL = serverURL
		}

		// Ensure home directory exists on first use
		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create home directory %s: %w", cfg.HomeDir, err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newEngine connects to the search service named by the loaded config.
func newEngine(log *slog.Logger) (*remote.Engine, error) {
	engine, err := remote.NewEngine(remote.Config{
		URL:           cfg.Server.URL,
		APIKey:        cfg.Server.APIKey,
		AllowInsecure: cfg.Server.AllowInsecure,
		Timeout:       cfg.Timeout(),
		RateLimit:     cfg.Server.RateLimitQPS,
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Server.URL, err)
	}
	return engine, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.emailsearch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides EMAILSEARCH_HOME)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "search service URL (overrides config and EMAILSEARCH_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
