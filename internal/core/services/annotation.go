package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
	"github.com/custodia-labs/casemap/internal/logger"
)

// Annotation operations recorded in failures.
const (
	OpClassify = "classify"
	OpName     = "name"
)

// Backoff bounds between attempts of one annotator call.
const (
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 8 * time.Second
)

// Failure reasons that are not annotator errors.
const (
	reasonDryRun      = "dry run"
	reasonUnavailable = "annotator unavailable"
)

// AnnotateRequest is the input of one annotation stage.
type AnnotateRequest struct {
	Corpus    *domain.Corpus
	Hierarchy *domain.Hierarchy
	Settings  domain.AnnotatorSettings

	// Previous holds annotations recovered from an earlier output file.
	// Clusters present there are not sent to the annotator again.
	Previous *domain.Annotations

	// Checkpoint, when set, is called with a snapshot after each annotated
	// cluster. An error aborts the stage.
	Checkpoint func(ctx context.Context, snapshot *domain.Annotations) error
}

// AnnotationService classifies and names every cluster of a hierarchy.
// Annotator failures never abort the stage: each cluster falls back to its
// placeholder name and the default category and the failure is recorded.
type AnnotationService struct {
	annotator driven.Annotator

	backoffBase time.Duration
	backoffMax  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewAnnotationService creates an annotation service. A nil annotator makes
// every cluster fall back.
func NewAnnotationService(annotator driven.Annotator) *AnnotationService {
	return &AnnotationService{
		annotator:   annotator,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
		sleep:       sleepContext,
	}
}

// Available reports whether an annotator is configured.
func (s *AnnotationService) Available() bool {
	return s.annotator != nil
}

// Annotate runs the annotator over all mid clusters, then all fine clusters.
// It returns an error only when ctx is cancelled or a checkpoint fails.
func (s *AnnotationService) Annotate(ctx context.Context, req AnnotateRequest) (*domain.Annotations, error) {
	run := &annotationRun{
		service: s,
		req:     req,
		out:     domain.NewAnnotations(),
		limiter: newLimiter(req.Settings.Delay),
	}

	skip := ""
	switch {
	case req.Settings.DryRun:
		skip = reasonDryRun
	case s.annotator == nil:
		skip = reasonUnavailable
		logger.Warn("no annotator configured, clusters keep their fallback names")
	}

	reused := run.reuse()
	if reused > 0 {
		logger.Info("resuming: %d clusters reused from previous output", reused)
	}

	if err := run.mids(ctx, skip); err != nil {
		return nil, err
	}
	if err := run.fines(ctx, skip); err != nil {
		return nil, err
	}

	sortFailures(run.out.Failures)
	return run.out, nil
}

// annotationRun holds the mutable state of one Annotate call.
type annotationRun struct {
	service *AnnotationService
	req     AnnotateRequest
	limiter *rate.Limiter

	mu   sync.Mutex
	out  *domain.Annotations
	done map[domain.ClusterLevel]map[int]bool
	seq  uint64

	// checkpointMu orders checkpoint writes. written is the sequence number
	// of the last snapshot saved; older snapshots are skipped.
	checkpointMu sync.Mutex
	written      uint64
}

// reuse copies previous annotations of clusters that still exist.
func (r *annotationRun) reuse() int {
	r.done = map[domain.ClusterLevel]map[int]bool{
		domain.LevelMid:  {},
		domain.LevelFine: {},
	}
	if r.req.Previous == nil || !r.req.Settings.Resume {
		return 0
	}

	n := 0
	for i := range r.req.Hierarchy.Mid {
		mid := &r.req.Hierarchy.Mid[i]
		if ann, ok := r.req.Previous.Mid[mid.ID]; ok && ann.Name != "" {
			r.out.Mid[mid.ID] = ann
			r.done[domain.LevelMid][mid.ID] = true
			n++
		}
		for j := range mid.Fine {
			id := mid.Fine[j].ID
			if name, ok := r.req.Previous.Fine[id]; ok && name != "" {
				r.out.Fine[id] = name
				r.done[domain.LevelFine][id] = true
				n++
			}
		}
	}
	return n
}

func (r *annotationRun) mids(ctx context.Context, skip string) error {
	g, gctx := r.group(ctx)
	for i := range r.req.Hierarchy.Mid {
		mid := &r.req.Hierarchy.Mid[i]
		if r.done[domain.LevelMid][mid.ID] {
			continue
		}
		if skip != "" {
			r.fallback(domain.LevelMid, mid.ID, skip)
			continue
		}
		g.Go(func() error {
			ann, failures := r.annotateMid(gctx, mid)
			return r.record(gctx, func() {
				r.out.Mid[mid.ID] = ann
				r.out.Failures = append(r.out.Failures, failures...)
			})
		})
	}
	return g.Wait()
}

func (r *annotationRun) fines(ctx context.Context, skip string) error {
	g, gctx := r.group(ctx)
	var err error
	r.req.Hierarchy.Walk(func(mid *domain.MidCluster, fine *domain.FineCluster) {
		if err != nil || r.done[domain.LevelFine][fine.ID] {
			return
		}
		if skip != "" {
			r.fallback(domain.LevelFine, fine.ID, skip)
			return
		}
		if err = gctx.Err(); err != nil {
			return
		}
		category := r.categoryOf(mid)
		g.Go(func() error {
			name, failure := r.annotateFine(gctx, fine, category)
			return r.record(gctx, func() {
				if failure != nil {
					r.out.Failures = append(r.out.Failures, *failure)
					return
				}
				r.out.Fine[fine.ID] = name
			})
		})
	})
	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}

func (r *annotationRun) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.req.Settings.Concurrency, 1))
	return g, gctx
}

func (r *annotationRun) categoryOf(mid *domain.MidCluster) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ann, ok := r.out.Mid[mid.ID]; ok && ann.Category != "" {
		return ann.Category
	}
	return mid.Category.Name
}

// annotateMid classifies a mid cluster, then names it with its category.
func (r *annotationRun) annotateMid(ctx context.Context, mid *domain.MidCluster) (domain.MidAnnotation, []domain.AnnotationFailure) {
	samples := r.samples(midMembers(mid))
	var failures []domain.AnnotationFailure

	classification := retry(ctx, r, func(ctx context.Context) (*domain.Classification, error) {
		return r.service.annotator.ClassifyCategory(ctx, samples)
	}, (*domain.Classification)(nil))

	ann := domain.MidAnnotation{Category: mid.Category.Name}
	if classification.OK() && classification.Value != nil {
		ann.Category = classification.Value.Primary
		ann.Classification = classification.Value
	} else {
		failures = append(failures, failureOf(domain.LevelMid, mid.ID, OpClassify, classification.Attempts, classification.Err))
	}

	name := retry(ctx, r, func(ctx context.Context) (string, error) {
		return r.service.annotator.NameCluster(ctx, samples, domain.NameContext{
			Level:     domain.LevelMid,
			ClusterID: mid.ID,
			Category:  ann.Category,
			Size:      mid.Size,
		})
	}, "")
	if name.OK() {
		ann.Name = name.Value
	} else {
		failures = append(failures, failureOf(domain.LevelMid, mid.ID, OpName, name.Attempts, name.Err))
	}

	for _, f := range failures {
		logger.Error("mid cluster %d: %s failed after %d attempts: %s", mid.ID, f.Operation, f.Attempts, f.Reason)
	}
	return ann, failures
}

func (r *annotationRun) annotateFine(ctx context.Context, fine *domain.FineCluster, category string) (string, *domain.AnnotationFailure) {
	samples := r.samples(fine.Members)

	name := retry(ctx, r, func(ctx context.Context) (string, error) {
		return r.service.annotator.NameCluster(ctx, samples, domain.NameContext{
			Level:     domain.LevelFine,
			ClusterID: fine.ID,
			Category:  category,
			Tier:      fine.Quality.Tier,
			Size:      fine.Size,
		})
	}, "")
	if name.OK() {
		return name.Value, nil
	}

	f := failureOf(domain.LevelFine, fine.ID, OpName, name.Attempts, name.Err)
	logger.Error("fine cluster %d: %s failed after %d attempts: %s", fine.ID, f.Operation, f.Attempts, f.Reason)
	return "", &f
}

// record applies a cluster's outcome and checkpoints. A cancelled context
// discards the outcome so that a resumed run retries the cluster.
func (r *annotationRun) record(ctx context.Context, apply func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	apply()
	r.seq++
	seq := r.seq
	var snapshot *domain.Annotations
	if r.req.Checkpoint != nil {
		snapshot = r.snapshot()
	}
	r.mu.Unlock()

	if snapshot == nil {
		return nil
	}
	return r.checkpoint(ctx, seq, snapshot)
}

// checkpoint saves snapshot unless a newer one was already saved.
func (r *annotationRun) checkpoint(ctx context.Context, seq uint64, snapshot *domain.Annotations) error {
	r.checkpointMu.Lock()
	defer r.checkpointMu.Unlock()
	if seq <= r.written {
		return nil
	}
	if err := r.req.Checkpoint(ctx, snapshot); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	r.written = seq
	return nil
}

// snapshot copies the current output. Callers hold mu.
func (r *annotationRun) snapshot() *domain.Annotations {
	s := domain.NewAnnotations()
	for k, v := range r.out.Mid {
		s.Mid[k] = v
	}
	for k, v := range r.out.Fine {
		s.Fine[k] = v
	}
	s.Failures = append([]domain.AnnotationFailure(nil), r.out.Failures...)
	return s
}

func (r *annotationRun) fallback(level domain.ClusterLevel, id int, reason string) {
	r.out.Failures = append(r.out.Failures, domain.AnnotationFailure{
		Level:     level,
		ClusterID: id,
		Operation: OpName,
		Reason:    reason,
	})
}

// samples returns at most SampleCap non-empty summaries, in corpus order.
func (r *annotationRun) samples(members []int) []string {
	limit := r.req.Settings.SampleCap
	out := make([]string, 0, min(len(members), limit))
	for _, idx := range members {
		if len(out) == limit {
			break
		}
		if s := r.req.Corpus.Documents[idx].Summary; s != "" {
			out = append(out, s)
		}
	}
	return out
}

func midMembers(mid *domain.MidCluster) []int {
	var out []int
	for _, f := range mid.Fine {
		out = append(out, f.Members...)
	}
	sort.Ints(out)
	return out
}

// retry calls fn until it succeeds, attempts are exhausted, or the error is
// permanent. Each attempt waits for the rate limiter and runs under the
// per-call timeout; attempts are spaced by exponential backoff.
func retry[T any](ctx context.Context, r *annotationRun, fn func(ctx context.Context) (T, error), fallback T) domain.Annotation[T] {
	s := r.service
	attempts := r.req.Settings.Retries + 1
	backoff := s.backoffBase

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return domain.Annotation[T]{Value: fallback, Attempts: attempt - 1, Err: err, Fallback: true}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.req.Settings.Timeout)
		v, err := fn(callCtx)
		cancel()
		if err == nil {
			return domain.Annotation[T]{Value: v, Attempts: attempt}
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == attempts {
			return domain.Annotation[T]{Value: fallback, Attempts: attempt, Err: err, Fallback: true}
		}

		logger.Debug("annotator attempt %d/%d failed: %v, retrying in %s", attempt, attempts, err, backoff)
		if err := s.sleep(ctx, backoff); err != nil {
			return domain.Annotation[T]{Value: fallback, Attempts: attempt, Err: err, Fallback: true}
		}
		backoff = min(backoff*2, s.backoffMax)
	}
	return domain.Annotation[T]{Value: fallback, Attempts: attempts, Err: lastErr, Fallback: true}
}

// retryable reports whether another attempt may succeed: transient transport
// errors, per-call timeouts and unparsable responses.
func retryable(err error) bool {
	return driven.IsRetryable(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrMalformedResponse) ||
		errors.Is(err, domain.ErrRateLimited)
}

func failureOf(level domain.ClusterLevel, id int, op string, attempts int, err error) domain.AnnotationFailure {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return domain.AnnotationFailure{
		Level:     level,
		ClusterID: id,
		Operation: op,
		Attempts:  attempts,
		Reason:    reason,
	}
}

func sortFailures(failures []domain.AnnotationFailure) {
	sort.SliceStable(failures, func(i, j int) bool {
		a, b := failures[i], failures[j]
		if a.Level != b.Level {
			return a.Level == domain.LevelMid
		}
		if a.ClusterID != b.ClusterID {
			return a.ClusterID < b.ClusterID
		}
		return a.Operation < b.Operation
	})
}

// newLimiter spaces calls by at least delay. A zero delay disables limiting.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
