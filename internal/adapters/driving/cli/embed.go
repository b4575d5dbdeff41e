package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed <corpus>",
	Short: "Fill missing document embeddings",
	Long: `Embed the summaries of documents that have no vector yet, using the
configured embedding provider.

The corpus is a JSON file or a stored corpus written as sqlite:<name>. By
default the corpus is updated in place; --to writes the embedded corpus
elsewhere, for example into the local store.

Examples:
  casemap embed opinions.json
  casemap embed opinions.json --to sqlite:opinions
  casemap embed sqlite:opinions --force`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().String("to", "", "write the embedded corpus here instead of in place")
	embedCmd.Flags().Bool("force", false, "re-embed documents that already have a vector")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if newEmbed == nil {
		return fmt.Errorf("embedding: %w", errNotConfigured)
	}

	target, err := cmd.Flags().GetString("to")
	if err != nil {
		return fmt.Errorf("getting to flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("getting force flag: %w", err)
	}

	settings, err := currentSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if !settings.Embedding.IsConfigured() {
		return errors.New("no embedding provider configured, run 'casemap settings embedding'")
	}

	svc, err := newEmbed(args[0], target, settings)
	if err != nil {
		return err
	}
	n, err := svc.Fill(cmd.Context(), force)
	if err != nil {
		return err
	}

	dest := args[0]
	if target != "" {
		dest = target
	}
	cmd.Printf("Embedded %d documents into %s\n", n, dest)
	return nil
}
