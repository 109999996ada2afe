package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wesm/emailsearch/internal/logging"
	"github.com/wesm/emailsearch/internal/session"
	"github.com/wesm/emailsearch/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Long: `Open an interactive terminal UI for searching the email archive.

Navigation:
  /           Edit the search query (Enter searches, Esc cancels)
  ↑/k, ↓/j    Move up/down
  PgUp/PgDn   Page up/down
  Enter       Open the selected result
  n/p         Next/previous result in the detail view
  Esc         Go back
  f           Edit filters (a category change searches immediately)
  s           Toggle summaries
  t/T         Next/previous table
  r           Re-run the search
  e           Export results as CSV
  q           Quit

The TUI owns the terminal, so logs go to the file named by [log] file
(default: ~/.emailsearch/logs/emailsearch.log).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func runTUI(cmd *cobra.Command) error {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	fileLogger, closeLog, err := logging.New(logging.Config{
		Level:      level,
		FilePath:   cfg.LogFilePath(),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = closeLog() }()

	engine, err := newEngine(fileLogger)
	if err != nil {
		return err
	}
	defer engine.Close()

	filters := cfg.InitialFilters()
	sess := session.New(engine, session.Options{
		Logger:  fileLogger,
		Filters: &filters,
		TableID: cfg.Search.Table,
	})

	fileLogger.Info("starting tui", "version", Version, "server", engine.BaseURL())
	model := tui.New(sess, tui.Options{
		Version:   Version,
		ExportDir: cfg.ExportDir(),
		Logger:    fileLogger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
