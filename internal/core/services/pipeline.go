package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/casemap/internal/analysis/assemble"
	"github.com/custodia-labs/casemap/internal/analysis/cluster"
	"github.com/custodia-labs/casemap/internal/analysis/hierarchy"
	"github.com/custodia-labs/casemap/internal/analysis/quality"
	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
	"github.com/custodia-labs/casemap/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// PipelineService runs reduce, partition, density, quality, hierarchy,
// annotation and assembly in sequence.
type PipelineService struct {
	corpus      driven.EmbeddingStore
	results     driven.ResultStore
	runs        driven.RunStore
	reducer     driven.Reducer
	partitioner driven.Partitioner
	density     driven.DensityClusterer
	taxonomy    *domain.Taxonomy
	annotation  *AnnotationService

	now   func() time.Time
	newID func() string
}

// NewPipelineService creates a pipeline service.
// The runs store is optional; without it no history is recorded. A nil
// taxonomy selects the built-in one.
func NewPipelineService(
	corpus driven.EmbeddingStore,
	results driven.ResultStore,
	runs driven.RunStore,
	reducer driven.Reducer,
	partitioner driven.Partitioner,
	density driven.DensityClusterer,
	taxonomy *domain.Taxonomy,
	annotation *AnnotationService,
) *PipelineService {
	if taxonomy == nil {
		taxonomy = domain.DefaultTaxonomy()
	}
	if annotation == nil {
		annotation = NewAnnotationService(nil)
	}
	return &PipelineService{
		corpus:      corpus,
		results:     results,
		runs:        runs,
		reducer:     reducer,
		partitioner: partitioner,
		density:     density,
		taxonomy:    taxonomy,
		annotation:  annotation,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Run executes every stage and persists the result.
// Input errors abort before clustering; annotator errors never abort.
func (p *PipelineService) Run(ctx context.Context, req driving.RunRequest) (*domain.Result, error) {
	if req.OutputPath == "" {
		return nil, fmt.Errorf("%w: output path required", domain.ErrInvalidInput)
	}

	record := &domain.RunRecord{
		ID:         p.newID(),
		StartedAt:  p.now(),
		Status:     domain.RunRunning,
		InputPath:  p.corpus.Location(),
		OutputPath: req.OutputPath,
		Settings:   snapshotSettings(req.Settings),
	}
	p.saveRun(ctx, record)

	result, err := p.run(ctx, req, record)

	finished := p.now()
	record.FinishedAt = &finished
	if err != nil {
		record.Status = domain.RunFailed
		record.Error = err.Error()
	} else {
		record.Status = domain.RunCompleted
		record.Documents = result.Meta.TotalDocuments
		record.NFine = result.Meta.NFine
		record.NMid = result.Meta.NMid
		record.DensityClusters = result.Meta.Density.Clusters
		record.NoisePoints = result.Meta.Density.NoisePoints
		record.Failures = len(result.Meta.Failures)
		record.Silhouettes = result.Meta.Silhouettes
	}
	// The run outcome is recorded even when ctx was cancelled.
	p.saveRun(context.WithoutCancel(ctx), record)

	return result, err
}

//nolint:gocyclo // Orchestration function with necessary sequential steps
func (p *PipelineService) run(ctx context.Context, req driving.RunRequest, record *domain.RunRecord) (*domain.Result, error) {
	settings := req.Settings
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	// 1. Load and validate input
	done := logger.Stage("load")
	corpus, err := p.corpus.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus from %s: %w", p.corpus.Location(), err)
	}
	if err := corpus.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", p.corpus.Location(), err)
	}
	n := corpus.Len()
	nFine, nMid, err := settings.Partition.AutoSize(n)
	if err != nil {
		return nil, err
	}
	logger.Info("%d documents, dimension %d, %d fine and %d mid clusters", n, corpus.Dimension(), nFine, nMid)
	done()

	// 2. Reduce
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done = logger.Stage("reduce")
	points, err := p.reducer.Reduce(ctx, corpus.Vectors(), settings.Reducer)
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	done()

	// 3. Partition
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done = logger.Stage("partition")
	labels, err := cluster.Levels(ctx, p.partitioner, points, nFine, nMid, settings.Partition)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	done()

	// 4. Density
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done = logger.Stage("density")
	labels.Density, err = p.density.Cluster(ctx, points, settings.Density)
	if err != nil {
		return nil, fmt.Errorf("density: %w", err)
	}
	logger.Info("%d density clusters, %d noise points",
		domain.CountClusters(labels.Density), domain.CountNoise(labels.Density))
	done()

	// 5. Quality and hierarchy
	done = logger.Stage("quality")
	ratings, err := quality.Assess(labels.Fine, labels.Density, labels.NFine, settings.Quality)
	if err != nil {
		return nil, fmt.Errorf("quality: %w", err)
	}
	var purity map[int]float64
	if !settings.Quality.StrictNesting {
		purity = quality.NestingPurity(labels.Density, labels.Fine)
	}
	tree, err := hierarchy.Build(labels, ratings, p.taxonomy)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: %w", err)
	}
	done()

	base := assemble.Input{
		RunID:         record.ID,
		Fingerprint:   settings.Fingerprint(n, nFine, nMid),
		Corpus:        corpus,
		Points:        points,
		Labels:        labels,
		Purity:        purity,
		StrictNesting: settings.Quality.StrictNesting,
	}

	// 6. Annotate
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done = logger.Stage("annotate")
	annReq := AnnotateRequest{
		Corpus:    corpus,
		Hierarchy: tree,
		Settings:  settings.Annotator,
	}
	if settings.Annotator.Resume {
		annReq.Previous = p.previous(ctx, req.OutputPath, base.Fingerprint, corpus)
		annReq.Checkpoint = func(ctx context.Context, snapshot *domain.Annotations) error {
			return p.checkpoint(ctx, req.OutputPath, base, tree, snapshot)
		}
	}
	annotations, err := p.annotation.Annotate(ctx, annReq)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	hierarchy.Apply(tree, annotations, p.taxonomy)
	if len(annotations.Failures) > 0 {
		logger.Warn("%d clusters kept fallback values", len(annotations.Failures))
	}
	done()

	// 7. Assemble and save
	done = logger.Stage("assemble")
	in := base
	in.CreatedAt = p.now()
	in.Hierarchy = tree
	in.Failures = annotations.Failures
	in.Silhouettes = domain.Silhouettes{
		Fine:    quality.SilhouettePtr(points, labels.Fine),
		Mid:     quality.SilhouettePtr(points, labels.Mid),
		Density: quality.SilhouettePtr(points, labels.Density),
	}
	result, err := assemble.Assemble(in)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	if err := p.results.Save(ctx, req.OutputPath, result); err != nil {
		return nil, fmt.Errorf("save result to %s: %w", req.OutputPath, err)
	}
	logger.Info("result written to %s", req.OutputPath)
	done()

	return result, nil
}

// previous recovers reusable annotations from an earlier output. Outputs of
// a different corpus or cluster numbering are ignored.
func (p *PipelineService) previous(ctx context.Context, path, fingerprint string, corpus *domain.Corpus) *domain.Annotations {
	prev, err := p.results.Load(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		logger.Warn("cannot resume from %s: %v", path, err)
		return nil
	}
	if prev.Meta.Fingerprint != fingerprint || !sameDocuments(prev, corpus) {
		logger.Info("previous output %s was produced with other settings, annotating from scratch", path)
		return nil
	}
	return prev.Annotations()
}

func sameDocuments(prev *domain.Result, corpus *domain.Corpus) bool {
	if len(prev.Documents) != corpus.Len() {
		return false
	}
	for i := range prev.Documents {
		if prev.Documents[i].ID != corpus.Documents[i].ID {
			return false
		}
	}
	return true
}

// checkpoint writes a partial result holding the annotations so far.
func (p *PipelineService) checkpoint(
	ctx context.Context,
	path string,
	base assemble.Input,
	tree *domain.Hierarchy,
	snapshot *domain.Annotations,
) error {
	partial := cloneHierarchy(tree)
	hierarchy.Apply(partial, snapshot, p.taxonomy)

	in := base
	in.CreatedAt = p.now()
	in.Hierarchy = partial
	in.Failures = snapshot.Failures
	result, err := assemble.Assemble(in)
	if err != nil {
		return err
	}
	result.Meta.Partial = true
	return p.results.Save(ctx, path, result)
}

func (p *PipelineService) saveRun(ctx context.Context, record *domain.RunRecord) {
	if p.runs == nil {
		return
	}
	if err := p.runs.SaveRun(ctx, record); err != nil {
		logger.Warn("failed to record run %s: %v", record.ID, err)
	}
}

// cloneHierarchy copies the tree structure; member slices are shared.
func cloneHierarchy(h *domain.Hierarchy) *domain.Hierarchy {
	out := &domain.Hierarchy{Mid: make([]domain.MidCluster, len(h.Mid))}
	for i, mid := range h.Mid {
		mid.Fine = append([]domain.FineCluster(nil), mid.Fine...)
		out.Mid[i] = mid
	}
	return out
}

// snapshotSettings renders the pipeline settings for the run history.
func snapshotSettings(s domain.PipelineSettings) string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}
