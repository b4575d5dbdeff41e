package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
	"github.com/custodia-labs/casemap/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run <corpus>",
	Short: "Cluster a corpus and write the result",
	Long: `Run the full pipeline on a corpus of court opinions.

The corpus is a JSON file of documents with summaries and embeddings, or a
stored corpus written as sqlite:<name>. The result is written to --output.

Flags override the stored settings for this run only. When the output file
already holds annotations of an identical run, those clusters are not sent to
the LLM again.

Examples:
  casemap run opinions.json
  casemap run opinions.json -o clusters.json --fine 60 --mid 20
  casemap run sqlite:opinions --dry-run
  casemap run opinions.json --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", "clusters.json", "result file")
	f.Bool("dry-run", false, "skip the LLM and use fallback names")
	f.Bool("watch", false, "rerun whenever the corpus file changes")

	f.Int("fine", 0, "number of fine clusters (0 = auto)")
	f.Int("mid", 0, "number of mid clusters (0 = auto)")
	f.Int64("seed", 0, "random seed of the reducer and the partitioner")
	f.Int("neighbors", 0, "reducer neighbourhood size")
	f.Float64("min-dist", 0, "reducer minimum distance")
	f.String("metric", "", "reducer metric (euclidean, cosine, manhattan)")
	f.Int("min-cluster-size", 0, "smallest density cluster")
	f.Int("min-samples", 0, "density core neighbourhood")
	f.Bool("strict-nesting", true, "assume density clusters nest inside fine clusters")
	f.Bool("resume", true, "reuse annotations from the previous output")
	f.Int("concurrency", 0, "clusters annotated in parallel")
	f.Int("sample-cap", 0, "summaries sent per cluster")
	f.Int("retries", 0, "annotator retries per cluster")
}

// applyRunFlags copies the flags set on the command line into s.
//
//nolint:gocyclo // One branch per flag
func applyRunFlags(cmd *cobra.Command, s *domain.PipelineSettings) error {
	f := cmd.Flags()
	var err error
	get := func(name string, fn func() error) {
		if err == nil && f.Changed(name) {
			err = fn()
		}
	}

	get("fine", func() (e error) { s.Partition.Fine, e = f.GetInt("fine"); return })
	get("mid", func() (e error) { s.Partition.Mid, e = f.GetInt("mid"); return })
	get("seed", func() error {
		seed, e := f.GetInt64("seed")
		s.Reducer.Seed, s.Partition.Seed = seed, seed
		return e
	})
	get("neighbors", func() (e error) { s.Reducer.Neighbors, e = f.GetInt("neighbors"); return })
	get("min-dist", func() (e error) { s.Reducer.MinDist, e = f.GetFloat64("min-dist"); return })
	get("metric", func() error {
		m, e := f.GetString("metric")
		s.Reducer.Metric = domain.Metric(strings.ToLower(m))
		return e
	})
	get("min-cluster-size", func() (e error) { s.Density.MinClusterSize, e = f.GetInt("min-cluster-size"); return })
	get("min-samples", func() (e error) { s.Density.MinSamples, e = f.GetInt("min-samples"); return })
	get("strict-nesting", func() (e error) { s.Quality.StrictNesting, e = f.GetBool("strict-nesting"); return })
	get("resume", func() (e error) { s.Annotator.Resume, e = f.GetBool("resume"); return })
	get("concurrency", func() (e error) { s.Annotator.Concurrency, e = f.GetInt("concurrency"); return })
	get("sample-cap", func() (e error) { s.Annotator.SampleCap, e = f.GetInt("sample-cap"); return })
	get("retries", func() (e error) { s.Annotator.Retries, e = f.GetInt("retries"); return })
	get("dry-run", func() (e error) { s.Annotator.DryRun, e = f.GetBool("dry-run"); return })
	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}
	return s.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	if newPipeline == nil {
		return fmt.Errorf("pipeline: %w", errNotConfigured)
	}
	input := args[0]

	settings, err := currentSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := applyRunFlags(cmd, &settings.Pipeline); err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("getting output flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	once := func(ctx context.Context) error {
		return runPipeline(ctx, cmd, input, output, settings)
	}

	if !watch {
		return once(cmd.Context())
	}
	if strings.HasPrefix(input, "sqlite:") {
		return errors.New("--watch needs a corpus file")
	}
	if err := once(cmd.Context()); err != nil {
		logger.Error("run failed: %v", err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", input)
	return watchFile(cmd.Context(), input, watchDebounce, once)
}

func runPipeline(ctx context.Context, cmd *cobra.Command, input, output string, settings *domain.AppSettings) error {
	pipeline, err := newPipeline(input, settings)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, driving.RunRequest{
		OutputPath: output,
		Settings:   settings.Pipeline,
	})
	if err != nil {
		return err
	}

	writeSummary(cmd.OutOrStdout(), result, false)
	cmd.Printf("\nResult written to %s\n", output)
	return nil
}
