// Package cli provides the casemap command-line interface.
// It is a driving adapter: commands call core services through driving ports.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
	"github.com/custodia-labs/casemap/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "casemap",
	Short: "Cluster court opinions into a two-level topic hierarchy",
	Long: `casemap groups court opinions by their summary embeddings.

It projects the embeddings to two dimensions, partitions them into fine and
mid clusters, cross-checks the fine clusters with density clustering, names
every cluster with an LLM and writes one JSON result for visualisation.

Input is a JSON corpus file or a stored corpus written as sqlite:<name>.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		logger.SetOutput(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// PipelineFactory builds the pipeline for the corpus named by ref. The
// settings decide which annotator is wired: a dry run needs none.
type PipelineFactory func(ref string, settings *domain.AppSettings) (driving.PipelineService, error)

// EmbedFactory builds the embedding filler reading source and writing target.
// An empty target writes back to source.
type EmbedFactory func(source, target string, settings *domain.AppSettings) (driving.EmbedService, error)

// Services holds everything the commands need.
type Services struct {
	Settings driving.SettingsService
	Results  driving.ResultService
	Runs     driving.RunHistoryService
	Pipeline PipelineFactory
	Embed    EmbedFactory
}

var (
	settingsService   driving.SettingsService
	resultService     driving.ResultService
	runHistoryService driving.RunHistoryService
	newPipeline       PipelineFactory
	newEmbed          EmbedFactory
)

// SetServices injects the core services.
func SetServices(s Services) {
	settingsService = s.Settings
	resultService = s.Results
	runHistoryService = s.Runs
	newPipeline = s.Pipeline
	newEmbed = s.Embed
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// currentSettings returns the stored settings, or the defaults when no
// settings service is wired.
func currentSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		s := domain.DefaultAppSettings()
		return &s, nil
	}
	return settingsService.Get()
}

var errNotConfigured = errors.New("service not configured")
