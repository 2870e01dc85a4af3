package cmd

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/khrees2412/rosterctl/internal/config"
	"github.com/khrees2412/rosterctl/internal/logging"
	"github.com/khrees2412/rosterctl/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI",
	Long:  "Launch the interactive roster screen for browsing candidates, uploading files and resolving duplicates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}

		// Logs would corrupt the screen, so they go to a file while the TUI runs
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		logger, err := logging.New(a.Config.LogLevel, filepath.Join(dir, "roster.log"))
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		model := tui.New(cmd.Context(), a.NewView(logger))
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
