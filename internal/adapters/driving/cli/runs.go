package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the run history",
	RunE:  runRunsList,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a run from the history",
	Long:  `Remove a run from the history. The result file is left in place.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsCmd.PersistentFlags().IntP("limit", "n", 20, "number of runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	if runHistoryService == nil {
		return fmt.Errorf("run history: %w", errNotConfigured)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}

	records, err := runHistoryService.List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tDOCS\tMID/FINE\tOUTPUT")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Status, r.Documents, r.NMid, r.NFine, r.OutputPath)
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if runHistoryService == nil {
		return fmt.Errorf("run history: %w", errNotConfigured)
	}

	r, err := runHistoryService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	cmd.Printf("ID:         %s\n", r.ID)
	cmd.Printf("Status:     %s\n", r.Status)
	cmd.Printf("Started:    %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	if r.FinishedAt != nil {
		cmd.Printf("Duration:   %s\n", r.Duration().Round(time.Millisecond))
	}
	cmd.Printf("Input:      %s\n", r.InputPath)
	cmd.Printf("Output:     %s\n", r.OutputPath)
	if r.Error != "" {
		cmd.Printf("Error:      %s\n", r.Error)
		return nil
	}
	cmd.Printf("Documents:  %d\n", r.Documents)
	cmd.Printf("Clusters:   %d mid, %d fine, %d density (%d noise points)\n",
		r.NMid, r.NFine, r.DensityClusters, r.NoisePoints)
	cmd.Printf("Silhouette: fine %s, mid %s, density %s\n",
		formatScore(r.Silhouettes.Fine), formatScore(r.Silhouettes.Mid), formatScore(r.Silhouettes.Density))
	cmd.Printf("Failures:   %d\n", r.Failures)
	if r.Settings != "" {
		cmd.Printf("Settings:   %s\n", r.Settings)
	}
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	if runHistoryService == nil {
		return fmt.Errorf("run history: %w", errNotConfigured)
	}
	if err := runHistoryService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	cmd.Printf("Run %s deleted\n", args[0])
	return nil
}
