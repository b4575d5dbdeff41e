// Command casemap clusters court opinions into a two-level topic hierarchy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/custodia-labs/casemap/internal/adapters/driven/ai"
	"github.com/custodia-labs/casemap/internal/adapters/driven/annotator"
	"github.com/custodia-labs/casemap/internal/adapters/driven/config/file"
	"github.com/custodia-labs/casemap/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/casemap/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/casemap/internal/adapters/driving/cli"
	"github.com/custodia-labs/casemap/internal/analysis/cluster"
	"github.com/custodia-labs/casemap/internal/analysis/density"
	"github.com/custodia-labs/casemap/internal/analysis/reduce"
	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
	"github.com/custodia-labs/casemap/internal/core/services"
	"github.com/custodia-labs/casemap/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// sqlitePrefix marks a corpus kept in the local store.
const sqlitePrefix = "sqlite:"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	if err := file.LoadDotEnv(); err != nil {
		logger.Warn("%v", err)
	}

	home, err := file.HomeDir()
	if err != nil {
		logger.Error("resolve home directory: %v", err)
		return 1
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		logger.Error("open config: %v", err)
		return 1
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	store, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		logger.Error("open store: %v", err)
		return 1
	}
	defer store.Close()

	w := &wiring{home: home, store: store}
	defer w.close()

	results := jsonfile.NewResultStore()
	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Settings: settingsService,
		Results:  services.NewResultService(results, store.RunStore()),
		Runs:     services.NewRunHistoryService(store.RunStore()),
		Pipeline: w.pipeline,
		Embed:    w.embed,
	})

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// wiring builds the per-command services and releases the AI clients they
// open.
type wiring struct {
	home    string
	store   *sqlite.Store
	closers []func() error
}

func (w *wiring) close() {
	for _, c := range w.closers {
		if err := c(); err != nil {
			logger.Debug("close: %v", err)
		}
	}
}

// corpus resolves a corpus reference: sqlite:<name> or a JSON file path.
func (w *wiring) corpus(ref string) (driven.EmbeddingStore, error) {
	if name, ok := strings.CutPrefix(ref, sqlitePrefix); ok {
		if name == "" {
			return nil, fmt.Errorf("%w: corpus name required after %q", domain.ErrInvalidInput, sqlitePrefix)
		}
		return w.store.EmbeddingStore(name), nil
	}
	return jsonfile.NewEmbeddingStore(ref), nil
}

func (w *wiring) pipeline(ref string, settings *domain.AppSettings) (driving.PipelineService, error) {
	corpus, err := w.corpus(ref)
	if err != nil {
		return nil, err
	}

	taxonomy, err := file.NewTaxonomyStore(settings.TaxonomyPath).Load()
	if err != nil {
		return nil, err
	}

	return services.NewPipelineService(
		corpus,
		jsonfile.NewResultStore(),
		w.store.RunStore(),
		reduce.NewUMAP(),
		cluster.NewKMeans(),
		density.NewHDBSCAN(),
		taxonomy,
		services.NewAnnotationService(w.annotator(settings, taxonomy)),
	), nil
}

// annotator returns nil when no LLM can be used; every cluster then keeps
// its fallback values and the run still completes.
func (w *wiring) annotator(settings *domain.AppSettings, taxonomy *domain.Taxonomy) driven.Annotator {
	if settings.Pipeline.Annotator.DryRun {
		return nil
	}
	if !settings.LLM.IsConfigured() {
		logger.Warn("no LLM provider configured, clusters keep numbered names. Run 'casemap settings llm'")
		return nil
	}

	llm, err := ai.CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("%v", err)
		return nil
	}
	if llm == nil {
		return nil
	}
	w.closers = append(w.closers, llm.Close)

	a, err := annotator.New(llm, taxonomy)
	if err != nil {
		logger.Warn("%v", err)
		return nil
	}
	prompts, err := file.NewPromptStore(filepath.Join(w.home, "prompts"))
	if err != nil {
		logger.Warn("prompts: %v", err)
		return a
	}
	a.SetPromptStore(prompts)
	return a
}

func (w *wiring) embed(source, target string, settings *domain.AppSettings) (driving.EmbedService, error) {
	from, err := w.corpus(source)
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	w.closers = append(w.closers, embedder.Close)

	svc := services.NewEmbedService(from, embedder)
	if target != "" {
		to, err := w.corpus(target)
		if err != nil {
			return nil, err
		}
		svc = svc.WithTarget(to)
	}
	return svc, nil
}
