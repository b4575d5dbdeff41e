package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables consulted when no API key or host is configured.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	envOpenAIKey    = "OPENAI_API_KEY"
	envAnthropicKey = "ANTHROPIC_API_KEY"
	envOllamaHost   = "OLLAMA_HOST"
)

const defaultOllamaURL = "http://localhost:11434"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"
	keyTaxonomyPath  = "taxonomy.path"
)

// setting binds one dotted config key to a field of AppSettings.
type setting struct {
	key string

	// load applies the stored value; it is only called when the key exists.
	load func(cs driven.ConfigStore, a *domain.AppSettings)

	// value returns the field in its stored representation.
	value func(a *domain.AppSettings) any

	// parse sets the field from command-line text.
	parse func(a *domain.AppSettings, raw string) error

	secret bool
}

func intSetting(key string, field func(a *domain.AppSettings) *int) setting {
	return setting{
		key:   key,
		load:  func(cs driven.ConfigStore, a *domain.AppSettings) { *field(a) = cs.GetInt(key) },
		value: func(a *domain.AppSettings) any { return *field(a) },
		parse: func(a *domain.AppSettings, raw string) error {
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidSettings, key)
			}
			*field(a) = v
			return nil
		},
	}
}

func seedSetting(key string, field func(a *domain.AppSettings) *int64) setting {
	return setting{
		key:   key,
		load:  func(cs driven.ConfigStore, a *domain.AppSettings) { *field(a) = int64(cs.GetInt(key)) },
		value: func(a *domain.AppSettings) any { return *field(a) },
		parse: func(a *domain.AppSettings, raw string) error {
			v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidSettings, key)
			}
			*field(a) = v
			return nil
		},
	}
}

func floatSetting(key string, field func(a *domain.AppSettings) *float64) setting {
	return setting{
		key:   key,
		load:  func(cs driven.ConfigStore, a *domain.AppSettings) { *field(a) = cs.GetFloat(key) },
		value: func(a *domain.AppSettings) any { return *field(a) },
		parse: func(a *domain.AppSettings, raw string) error {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return fmt.Errorf("%w: %s expects a number", domain.ErrInvalidSettings, key)
			}
			*field(a) = v
			return nil
		},
	}
}

func boolSetting(key string, field func(a *domain.AppSettings) *bool) setting {
	return setting{
		key:   key,
		load:  func(cs driven.ConfigStore, a *domain.AppSettings) { *field(a) = cs.GetBool(key) },
		value: func(a *domain.AppSettings) any { return *field(a) },
		parse: func(a *domain.AppSettings, raw string) error {
			v, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidSettings, key)
			}
			*field(a) = v
			return nil
		},
	}
}

// durationSetting stores a duration as an integer count of unit.
func durationSetting(key string, unit time.Duration, field func(a *domain.AppSettings) *time.Duration) setting {
	return setting{
		key: key,
		load: func(cs driven.ConfigStore, a *domain.AppSettings) {
			*field(a) = time.Duration(cs.GetInt(key)) * unit
		},
		value: func(a *domain.AppSettings) any { return int(*field(a) / unit) },
		parse: func(a *domain.AppSettings, raw string) error {
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidSettings, key)
			}
			*field(a) = time.Duration(v) * unit
			return nil
		},
	}
}

func stringSetting(key string, get func(a *domain.AppSettings) string, set func(a *domain.AppSettings, v string)) setting {
	return setting{
		key:   key,
		load:  func(cs driven.ConfigStore, a *domain.AppSettings) { set(a, cs.GetString(key)) },
		value: func(a *domain.AppSettings) any { return get(a) },
		parse: func(a *domain.AppSettings, raw string) error {
			set(a, strings.TrimSpace(raw))
			return nil
		},
	}
}

func providerSetting(key string, field func(a *domain.AppSettings) *domain.AIProvider) setting {
	s := stringSetting(key,
		func(a *domain.AppSettings) string { return field(a).String() },
		func(a *domain.AppSettings, v string) { *field(a) = domain.AIProvider(v) })
	s.load = func(cs driven.ConfigStore, a *domain.AppSettings) {
		if p := domain.AIProvider(cs.GetString(key)); p.IsValid() {
			*field(a) = p
		}
	}
	parse := s.parse
	s.parse = func(a *domain.AppSettings, raw string) error {
		p := domain.AIProvider(strings.TrimSpace(raw))
		if p != "" && !p.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidSettings, raw)
		}
		return parse(a, raw)
	}
	return s
}

// settingsTable lists every recognised key in display order.
func settingsTable() []setting {
	apiKey := func(s setting) setting {
		s.secret = true
		return s
	}

	return []setting{
		intSetting("reducer.components", func(a *domain.AppSettings) *int { return &a.Pipeline.Reducer.Components }),
		intSetting("reducer.neighbors", func(a *domain.AppSettings) *int { return &a.Pipeline.Reducer.Neighbors }),
		floatSetting("reducer.min_dist", func(a *domain.AppSettings) *float64 { return &a.Pipeline.Reducer.MinDist }),
		stringSetting("reducer.metric",
			func(a *domain.AppSettings) string { return string(a.Pipeline.Reducer.Metric) },
			func(a *domain.AppSettings, v string) { a.Pipeline.Reducer.Metric = domain.Metric(v) }),
		intSetting("reducer.epochs", func(a *domain.AppSettings) *int { return &a.Pipeline.Reducer.Epochs }),
		seedSetting("reducer.seed", func(a *domain.AppSettings) *int64 { return &a.Pipeline.Reducer.Seed }),

		intSetting("partition.fine", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.Fine }),
		intSetting("partition.mid", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.Mid }),
		intSetting("partition.fine_divisor", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.FineDivisor }),
		intSetting("partition.fine_min", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.FineMin }),
		intSetting("partition.fine_max", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.FineMax }),
		intSetting("partition.mid_divisor", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.MidDivisor }),
		intSetting("partition.mid_min", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.MidMin }),
		intSetting("partition.mid_max", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.MidMax }),
		intSetting("partition.n_init", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.NInit }),
		intSetting("partition.max_iter", func(a *domain.AppSettings) *int { return &a.Pipeline.Partition.MaxIter }),
		seedSetting("partition.seed", func(a *domain.AppSettings) *int64 { return &a.Pipeline.Partition.Seed }),

		intSetting("density.min_cluster_size", func(a *domain.AppSettings) *int { return &a.Pipeline.Density.MinClusterSize }),
		intSetting("density.min_samples", func(a *domain.AppSettings) *int { return &a.Pipeline.Density.MinSamples }),
		stringSetting("density.selection",
			func(a *domain.AppSettings) string { return string(a.Pipeline.Density.Selection) },
			func(a *domain.AppSettings, v string) { a.Pipeline.Density.Selection = domain.DensitySelection(v) }),

		floatSetting("quality.high_noise", func(a *domain.AppSettings) *float64 { return &a.Pipeline.Quality.HighNoise }),
		floatSetting("quality.medium_noise", func(a *domain.AppSettings) *float64 { return &a.Pipeline.Quality.MediumNoise }),
		boolSetting("quality.strict_nesting", func(a *domain.AppSettings) *bool { return &a.Pipeline.Quality.StrictNesting }),

		intSetting("annotator.sample_cap", func(a *domain.AppSettings) *int { return &a.Pipeline.Annotator.SampleCap }),
		durationSetting("annotator.delay_ms", time.Millisecond,
			func(a *domain.AppSettings) *time.Duration { return &a.Pipeline.Annotator.Delay }),
		intSetting("annotator.retries", func(a *domain.AppSettings) *int { return &a.Pipeline.Annotator.Retries }),
		durationSetting("annotator.timeout_s", time.Second,
			func(a *domain.AppSettings) *time.Duration { return &a.Pipeline.Annotator.Timeout }),
		intSetting("annotator.concurrency", func(a *domain.AppSettings) *int { return &a.Pipeline.Annotator.Concurrency }),
		boolSetting("annotator.resume", func(a *domain.AppSettings) *bool { return &a.Pipeline.Annotator.Resume }),

		providerSetting(keyLLMProvider, func(a *domain.AppSettings) *domain.AIProvider { return &a.LLM.Provider }),
		stringSetting(keyLLMModel,
			func(a *domain.AppSettings) string { return a.LLM.Model },
			func(a *domain.AppSettings, v string) { a.LLM.Model = v }),
		stringSetting(keyLLMBaseURL,
			func(a *domain.AppSettings) string { return a.LLM.BaseURL },
			func(a *domain.AppSettings, v string) { a.LLM.BaseURL = v }),
		apiKey(stringSetting(keyLLMAPIKey,
			func(a *domain.AppSettings) string { return a.LLM.APIKey },
			func(a *domain.AppSettings, v string) { a.LLM.APIKey = v })),

		providerSetting(keyEmbedProvider, func(a *domain.AppSettings) *domain.AIProvider { return &a.Embedding.Provider }),
		stringSetting(keyEmbedModel,
			func(a *domain.AppSettings) string { return a.Embedding.Model },
			func(a *domain.AppSettings, v string) { a.Embedding.Model = v }),
		stringSetting(keyEmbedBaseURL,
			func(a *domain.AppSettings) string { return a.Embedding.BaseURL },
			func(a *domain.AppSettings, v string) { a.Embedding.BaseURL = v }),
		apiKey(stringSetting(keyEmbedAPIKey,
			func(a *domain.AppSettings) string { return a.Embedding.APIKey },
			func(a *domain.AppSettings, v string) { a.Embedding.APIKey = v })),

		stringSetting(keyTaxonomyPath,
			func(a *domain.AppSettings) string { return a.TaxonomyPath },
			func(a *domain.AppSettings, v string) { a.TaxonomyPath = v }),
	}
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	table       []setting
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		table:       settingsTable(),
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Keys absent from the store keep
// their defaults; missing API keys and hosts fall back to the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	for _, st := range s.table {
		if _, exists := s.configStore.Get(st.key); exists {
			st.load(s.configStore, &settings)
		}
	}

	s.applyEnv(&settings)
	return &settings, nil
}

// applyEnv fills empty API keys and Ollama hosts from the environment.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.Provider.IsLocal() && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = s.getenv(envOllamaHost)
	}
	if settings.Embedding.Provider.IsLocal() && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = s.getenv(envOllamaHost)
	}
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(envOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(envAnthropicKey)
	default:
		return ""
	}
}

// Save persists application settings. API keys are only written when set and
// not taken from the environment.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	for _, st := range s.table {
		v := st.value(settings)
		if st.secret {
			key, _ := v.(string)
			if key == "" || key == s.envKeyFor(st.key, settings) {
				continue
			}
		}
		if err := s.configStore.Set(st.key, v); err != nil {
			return fmt.Errorf("save %s: %w", st.key, err)
		}
	}
	return nil
}

func (s *SettingsService) envKeyFor(key string, settings *domain.AppSettings) string {
	if key == keyLLMAPIKey {
		return s.envKey(settings.LLM.Provider)
	}
	return s.envKey(settings.Embedding.Provider)
}

// Set updates a single setting by its dotted key. The pipeline section is
// validated before anything is written.
func (s *SettingsService) Set(key, value string) error {
	st, ok := s.lookup(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidSettings, key)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := st.parse(settings, value); err != nil {
		return err
	}
	if err := settings.Pipeline.Validate(); err != nil {
		return err
	}

	return s.configStore.Set(st.key, st.value(settings))
}

// Keys returns every recognised setting key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(s.table))
	for i, st := range s.table {
		keys[i] = st.key
	}
	return keys
}

// Value returns the current value of a key for display. API keys are masked.
func (s *SettingsService) Value(settings *domain.AppSettings, key string) (string, bool) {
	st, ok := s.lookup(key)
	if !ok {
		return "", false
	}
	v := fmt.Sprint(st.value(settings))
	if st.secret && v != "" {
		v = MaskSecret(v)
	}
	return v, true
}

func (s *SettingsService) lookup(key string) (setting, bool) {
	for _, st := range s.table {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

func modelOrDefault(model, def string) string {
	if model != "" {
		return model
	}
	return def
}

// baseURLFor keeps a configured local URL and clears it for cloud providers.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}

// Validate checks the pipeline settings are in range.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Pipeline.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// MaskSecret keeps the last four characters of an API key.
func MaskSecret(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
