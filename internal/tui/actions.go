package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wesm/emailsearch/internal/export"
)

// exportResults writes the current result set as CSV into the export
// directory. The write happens off the UI goroutine; completion arrives as
// an exportDoneMsg.
func (m Model) exportResults() (Model, tea.Cmd) {
	results := m.state.Results
	if len(results) == 0 {
		return m.showFlash("No results to export")
	}

	csv := export.ToCSV(results)
	ch := export.Download(m.exportDir, export.FileName(m.now()), csv)
	m.logger.Debug("export started", "results", len(results), "dir", m.exportDir)

	m, flashCmd := m.showFlash("Exporting...")
	return m, tea.Batch(flashCmd, waitForExport(ch))
}

// waitForExport turns the download result into a message.
func waitForExport(ch <-chan export.DownloadResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return exportDoneMsg{}
		}
		return exportDoneMsg{path: res.Path, err: res.Err}
	}
}
