package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [result]",
	Short: "Summarise a result",
	Long: `Print the headline numbers of a result: cluster counts, density noise,
silhouette scores, quality tiers and the category distribution.

Without an argument the output of the most recent completed run is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("tree", false, "list every mid and fine cluster")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	if resultService == nil {
		return fmt.Errorf("results: %w", errNotConfigured)
	}
	tree, err := cmd.Flags().GetBool("tree")
	if err != nil {
		return fmt.Errorf("getting tree flag: %w", err)
	}

	var result *domain.Result
	if len(args) > 0 {
		result, err = resultService.Load(cmd.Context(), args[0])
	} else {
		result, err = resultService.Latest(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}

	writeSummary(cmd.OutOrStdout(), result, tree)
	return nil
}
