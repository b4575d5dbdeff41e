package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// Metric is the distance used by the reducer in embedding space.
type Metric string

// Supported metrics.
const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
	MetricManhattan Metric = "manhattan"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricEuclidean, MetricCosine, MetricManhattan:
		return true
	default:
		return false
	}
}

// ReducerSettings configures the manifold-learning reduction.
type ReducerSettings struct {
	// Components is the target dimension.
	Components int

	// Neighbors is the neighbourhood size. Small values over-fragment,
	// large values over-smooth.
	Neighbors int

	// MinDist controls how tightly neighbouring points are packed.
	MinDist float64

	// Metric is the distance in embedding space.
	Metric Metric

	// Epochs is the number of layout optimisation passes.
	Epochs int

	// Seed fixes the random state.
	Seed int64
}

// Validate checks the reducer settings.
func (r ReducerSettings) Validate() error {
	switch {
	case r.Components < 1:
		return fmt.Errorf("%w: reducer.components must be >= 1", ErrInvalidSettings)
	case r.Neighbors < 2:
		return fmt.Errorf("%w: reducer.neighbors must be >= 2", ErrInvalidSettings)
	case r.MinDist < 0:
		return fmt.Errorf("%w: reducer.min_dist must be >= 0", ErrInvalidSettings)
	case !r.Metric.IsValid():
		return fmt.Errorf("%w: unknown reducer.metric %q", ErrInvalidSettings, r.Metric)
	case r.Epochs < 1:
		return fmt.Errorf("%w: reducer.epochs must be >= 1", ErrInvalidSettings)
	}
	return nil
}

// PartitionSettings configures both partition passes.
// Fine and Mid of zero select the auto-sizing policy.
type PartitionSettings struct {
	Fine int
	Mid  int

	// Auto-sizing: clamp(N / divisor, min, max).
	FineDivisor int
	FineMin     int
	FineMax     int
	MidDivisor  int
	MidMin      int
	MidMax      int

	// NInit is the number of seeded initialisations; the lowest inertia wins.
	NInit int

	// MaxIter bounds the Lloyd iterations per initialisation.
	MaxIter int

	// Seed fixes the random state.
	Seed int64
}

// Validate checks the partition settings.
func (p PartitionSettings) Validate() error {
	switch {
	case p.Fine < 0 || p.Mid < 0:
		return fmt.Errorf("%w: partition counts must be >= 0", ErrInvalidSettings)
	case p.Fine > 0 && p.Mid > 0 && p.Mid >= p.Fine:
		return fmt.Errorf("%w: partition.mid (%d) must be below partition.fine (%d)", ErrInvalidSettings, p.Mid, p.Fine)
	case p.FineDivisor < 1 || p.MidDivisor < 1:
		return fmt.Errorf("%w: partition divisors must be >= 1", ErrInvalidSettings)
	case p.FineMin < 1 || p.FineMin > p.FineMax:
		return fmt.Errorf("%w: partition.fine_min must be in [1, fine_max]", ErrInvalidSettings)
	case p.MidMin < 1 || p.MidMin > p.MidMax:
		return fmt.Errorf("%w: partition.mid_min must be in [1, mid_max]", ErrInvalidSettings)
	case p.NInit < 1 || p.MaxIter < 1:
		return fmt.Errorf("%w: partition.n_init and max_iter must be >= 1", ErrInvalidSettings)
	}
	return nil
}

// AutoSize resolves the fine and mid cluster counts for n points.
// Explicit counts are honoured and fail when they exceed n. Auto-sized counts
// are clamped to their bounds, then capped so that fine <= n and mid < fine.
// A corpus too small for two fine clusters has no hierarchy.
func (p PartitionSettings) AutoSize(n int) (fine, mid int, err error) {
	if n < 1 {
		return 0, 0, ErrEmptyInput
	}

	fine = p.Fine
	if fine == 0 {
		fine = min(clamp(n/p.FineDivisor, p.FineMin, p.FineMax), n)
	} else if fine > n {
		return 0, 0, fmt.Errorf("%w: %d fine clusters for %d points", ErrTooManyClusters, fine, n)
	}
	if fine < 2 {
		return 0, 0, fmt.Errorf("%w: %d points cannot form a fine and a mid level", ErrTooManyClusters, n)
	}

	mid = p.Mid
	if mid == 0 {
		mid = min(clamp(n/p.MidDivisor, p.MidMin, p.MidMax), fine-1)
		mid = max(mid, 1)
	} else if mid >= fine {
		return 0, 0, fmt.Errorf("%w: %d mid clusters for %d fine clusters", ErrTooManyClusters, mid, fine)
	}
	return fine, mid, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// DensitySelection is the cluster extraction method of the density clusterer.
type DensitySelection string

// Supported selection methods.
const (
	// SelectionEOM picks the clusters with the most excess of mass.
	SelectionEOM DensitySelection = "eom"

	// SelectionLeaf picks the leaves of the condensed tree.
	SelectionLeaf DensitySelection = "leaf"
)

// IsValid returns true if the selection method is recognised.
func (s DensitySelection) IsValid() bool {
	return s == SelectionEOM || s == SelectionLeaf
}

// DensitySettings configures the density clusterer.
type DensitySettings struct {
	// MinClusterSize is the smallest group reported as a cluster.
	MinClusterSize int

	// MinSamples is the neighbourhood used for core distances.
	MinSamples int

	// Selection is the cluster extraction method.
	Selection DensitySelection
}

// Validate checks the density settings.
func (d DensitySettings) Validate() error {
	switch {
	case d.MinClusterSize < 2:
		return fmt.Errorf("%w: density.min_cluster_size must be >= 2", ErrInvalidSettings)
	case d.MinSamples < 1:
		return fmt.Errorf("%w: density.min_samples must be >= 1", ErrInvalidSettings)
	case !d.Selection.IsValid():
		return fmt.Errorf("%w: unknown density.selection %q", ErrInvalidSettings, d.Selection)
	}
	return nil
}

// AnnotatorSettings configures the per-cluster annotation calls.
type AnnotatorSettings struct {
	// SampleCap bounds the number of summaries sent per cluster.
	SampleCap int

	// Delay is the minimum spacing between annotator calls.
	Delay time.Duration

	// Retries is the number of attempts after the first one.
	Retries int

	// Timeout bounds a single annotator call.
	Timeout time.Duration

	// Concurrency bounds the number of in-flight clusters.
	Concurrency int

	// Resume skips clusters already present in a previous output file.
	Resume bool

	// DryRun skips the annotator and uses fallbacks.
	DryRun bool
}

// Validate checks the annotator settings.
func (a AnnotatorSettings) Validate() error {
	switch {
	case a.SampleCap < 1:
		return fmt.Errorf("%w: annotator.sample_cap must be >= 1", ErrInvalidSettings)
	case a.Delay < 0:
		return fmt.Errorf("%w: annotator.delay_ms must be >= 0", ErrInvalidSettings)
	case a.Retries < 0:
		return fmt.Errorf("%w: annotator.retries must be >= 0", ErrInvalidSettings)
	case a.Timeout <= 0:
		return fmt.Errorf("%w: annotator.timeout_s must be > 0", ErrInvalidSettings)
	case a.Concurrency < 1:
		return fmt.Errorf("%w: annotator.concurrency must be >= 1", ErrInvalidSettings)
	}
	return nil
}

// PipelineSettings is the explicit configuration object of a run.
type PipelineSettings struct {
	Reducer   ReducerSettings
	Partition PartitionSettings
	Density   DensitySettings
	Quality   QualitySettings
	Annotator AnnotatorSettings
}

// DefaultPipelineSettings returns the historical defaults.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		Reducer: ReducerSettings{
			Components: 2,
			Neighbors:  15,
			MinDist:    0.1,
			Metric:     MetricEuclidean,
			Epochs:     200,
			Seed:       42,
		},
		Partition: PartitionSettings{
			FineDivisor: 8,
			FineMin:     40,
			FineMax:     100,
			MidDivisor:  25,
			MidMin:      15,
			MidMax:      30,
			NInit:       10,
			MaxIter:     300,
			Seed:        42,
		},
		Density: DensitySettings{
			MinClusterSize: 5,
			MinSamples:     5,
			Selection:      SelectionEOM,
		},
		Quality: DefaultQualitySettings(),
		Annotator: AnnotatorSettings{
			SampleCap:   20,
			Delay:       time.Second,
			Retries:     5,
			Timeout:     60 * time.Second,
			Concurrency: 1,
			Resume:      true,
		},
	}
}

// Validate checks every section.
func (s PipelineSettings) Validate() error {
	if err := s.Reducer.Validate(); err != nil {
		return err
	}
	if err := s.Partition.Validate(); err != nil {
		return err
	}
	if err := s.Density.Validate(); err != nil {
		return err
	}
	if err := s.Quality.Validate(); err != nil {
		return err
	}
	return s.Annotator.Validate()
}

// Fingerprint identifies the cluster numbering produced by these settings for
// n documents. Two runs with equal fingerprints assign the same ids to the same
// clusters, so annotations of one can be reused by the other.
func (s PipelineSettings) Fingerprint(n, nFine, nMid int) string {
	h := sha256.New()
	fmt.Fprintf(h, "n=%d fine=%d mid=%d reducer=%+v partition=%d/%d/%d",
		n, nFine, nMid, s.Reducer, s.Partition.NInit, s.Partition.MaxIter, s.Partition.Seed)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Pipeline holds the clustering and annotation settings.
	Pipeline PipelineSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// TaxonomyPath points at a YAML category file. Empty uses the built-in
	// taxonomy.
	TaxonomyPath string
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM) are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Pipeline: DefaultPipelineSettings(),
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns known vector sizes for common embedding models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"all-minilm":             384,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
