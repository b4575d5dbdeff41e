package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui [result]",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for casemap.

The TUI browses a result as a hierarchy: mid clusters, their fine clusters
and the documents of each fine cluster. Without an argument it opens on a
menu and browses the output of the most recent completed run.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Open / Select
  /        - Filter
  Esc      - Back / Cancel
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// tuiPorts builds the TUI ports from the wired services.
func tuiPorts(args []string) *tui.Ports {
	ports := tui.NewPorts(resultService, runHistoryService, settingsService)
	if len(args) > 0 {
		ports.ResultPath = args[0]
	}
	return ports
}

func runTUI(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(tuiPorts(args))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
