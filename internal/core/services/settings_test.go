package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/casemap/internal/core/domain"
)

// newTestSettings returns a service reading the given fake environment.
func newTestSettings(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)
	service.getenv = func(key string) string { return env[key] }
	return service, store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettings(nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newTestSettings(nil)
	require.NoError(t, store.Set("reducer.neighbors", 30))
	require.NoError(t, store.Set("reducer.min_dist", 0.25))
	require.NoError(t, store.Set("reducer.metric", "cosine"))
	require.NoError(t, store.Set("partition.fine", 12))
	require.NoError(t, store.Set("partition.seed", int64(7)))
	require.NoError(t, store.Set("density.selection", "leaf"))
	require.NoError(t, store.Set("quality.strict_nesting", false))
	require.NoError(t, store.Set("annotator.delay_ms", 250))
	require.NoError(t, store.Set("annotator.timeout_s", 5))
	require.NoError(t, store.Set("annotator.resume", false))
	require.NoError(t, store.Set("taxonomy.path", "/tmp/tax.yaml"))

	settings, err := service.Get()
	require.NoError(t, err)

	p := settings.Pipeline
	assert.Equal(t, 30, p.Reducer.Neighbors)
	assert.InDelta(t, 0.25, p.Reducer.MinDist, 1e-12)
	assert.Equal(t, domain.MetricCosine, p.Reducer.Metric)
	assert.Equal(t, 12, p.Partition.Fine)
	assert.Equal(t, int64(7), p.Partition.Seed)
	assert.Equal(t, domain.SelectionLeaf, p.Density.Selection)
	assert.False(t, p.Quality.StrictNesting)
	assert.Equal(t, 250*time.Millisecond, p.Annotator.Delay)
	assert.Equal(t, 5*time.Second, p.Annotator.Timeout)
	assert.False(t, p.Annotator.Resume)
	assert.Equal(t, "/tmp/tax.yaml", settings.TaxonomyPath)

	// Untouched keys keep their defaults.
	assert.Equal(t, 2, p.Reducer.Components)
	assert.Equal(t, 20, p.Annotator.SampleCap)
}

func TestSettingsService_Get_ExplicitZeroIsKept(t *testing.T) {
	service, store := newTestSettings(nil)
	require.NoError(t, store.Set("annotator.delay_ms", 0))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Zero(t, settings.Pipeline.Annotator.Delay)
}

func TestSettingsService_Get_InvalidProviderIgnored(t *testing.T) {
	service, store := newTestSettings(nil)
	require.NoError(t, store.Set("llm.provider", "invalid_provider"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Empty(t, settings.LLM.Provider)
}

func TestSettingsService_Get_EnvironmentFallback(t *testing.T) {
	service, store := newTestSettings(map[string]string{
		"OPENAI_API_KEY":    "sk-env",
		"ANTHROPIC_API_KEY": "sk-ant-env",
		"OLLAMA_HOST":       "http://gpu:11434",
	})
	require.NoError(t, store.Set("llm.provider", "anthropic"))
	require.NoError(t, store.Set("embedding.provider", "ollama"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-env", settings.LLM.APIKey)
	assert.Equal(t, "http://gpu:11434", settings.Embedding.BaseURL)
	assert.Empty(t, settings.Embedding.APIKey)

	// A configured key wins over the environment.
	require.NoError(t, store.Set("llm.api_key", "sk-ant-config"))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-config", settings.LLM.APIKey)
}

func TestSettingsService_Save_RoundTrip(t *testing.T) {
	service, store := newTestSettings(nil)

	settings := domain.DefaultAppSettings()
	settings.Pipeline.Reducer.Neighbors = 25
	settings.Pipeline.Annotator.Delay = 1500 * time.Millisecond
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk-test"}

	require.NoError(t, service.Save(&settings))

	assert.Equal(t, 1500, store.GetInt("annotator.delay_ms"))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *retrieved)
}

func TestSettingsService_Save_SkipsEnvironmentKeys(t *testing.T) {
	service, store := newTestSettings(map[string]string{"OPENAI_API_KEY": "sk-env"})

	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-env"}
	require.NoError(t, service.Save(&settings))

	_, exists := store.Get("llm.api_key")
	assert.False(t, exists)
	_, exists = store.Get("embedding.api_key")
	assert.False(t, exists)
}

func TestSettingsService_Set(t *testing.T) {
	service, store := newTestSettings(nil)

	require.NoError(t, service.Set("reducer.neighbors", " 40 "))
	require.NoError(t, service.Set("quality.strict_nesting", "false"))
	require.NoError(t, service.Set("annotator.timeout_s", "90"))
	require.NoError(t, service.Set("llm.provider", "ollama"))

	assert.Equal(t, 40, store.GetInt("reducer.neighbors"))
	assert.False(t, store.GetBool("quality.strict_nesting"))
	assert.Equal(t, 90, store.GetInt("annotator.timeout_s"))
	assert.Equal(t, "ollama", store.GetString("llm.provider"))
}

func TestSettingsService_Set_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"not an integer", "reducer.neighbors", "many"},
		{"not a bool", "annotator.resume", "maybe"},
		{"not a number", "reducer.min_dist", "close"},
		{"out of range", "reducer.neighbors", "1"},
		{"unknown metric", "reducer.metric", "hamming"},
		{"mid not below fine", "partition.mid", "20"},
		{"unknown provider", "llm.provider", "acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newTestSettings(nil)
			require.NoError(t, store.Set("partition.fine", 10))

			err := service.Set(tt.key, tt.value)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidSettings)
			_, exists := store.Get(tt.key)
			assert.Equal(t, tt.key == "partition.fine", exists)
		})
	}
}

func TestSettingsService_KeysAndValue(t *testing.T) {
	service, _ := newTestSettings(nil)

	keys := service.Keys()
	assert.Equal(t, "reducer.components", keys[0])
	assert.Contains(t, keys, "annotator.delay_ms")
	assert.Contains(t, keys, "taxonomy.path")
	for _, k := range keys {
		settings := domain.DefaultAppSettings()
		_, ok := service.Value(&settings, k)
		assert.True(t, ok, k)
	}

	settings := domain.DefaultAppSettings()
	settings.LLM.APIKey = "sk-abcdef123456"

	v, ok := service.Value(&settings, "llm.api_key")
	require.True(t, ok)
	assert.Equal(t, "****3456", v)

	v, _ = service.Value(&settings, "annotator.delay_ms")
	assert.Equal(t, "1000", v)

	_, ok = service.Value(&settings, "nope")
	assert.False(t, ok)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	service, _ := newTestSettings(nil)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk-x"))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Empty(t, settings.Embedding.BaseURL)
	assert.Equal(t, "sk-x", settings.Embedding.APIKey)
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	service, _ := newTestSettings(nil)

	assert.Error(t, service.SetEmbeddingProvider("bogus", "", ""))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key"))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service, _ := newTestSettings(map[string]string{"ANTHROPIC_API_KEY": "sk-ant-env"})

	// The environment key satisfies the requirement.
	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Equal(t, "sk-ant-env", settings.LLM.APIKey)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
	assert.Error(t, service.SetLLMProvider("bogus", "", ""))
}

func TestSettingsService_Validate(t *testing.T) {
	service, store := newTestSettings(nil)
	assert.NoError(t, service.Validate())

	require.NoError(t, store.Set("density.min_cluster_size", 1))
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidSettings)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service, _ := newTestSettings(nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****7890", MaskSecret("sk-1234567890"))
}

// Mock AIConfigValidator for testing
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	store := memory.NewConfigStore()

	assert.NoError(t, NewSettingsService(store, nil).ValidateEmbeddingConfig())
	assert.NoError(t, NewSettingsService(store, &mockAIConfigValidator{}).ValidateEmbeddingConfig())
	assert.Error(t, NewSettingsService(store, &mockAIConfigValidator{embedErr: assert.AnError}).ValidateEmbeddingConfig())
}

func TestSettingsService_ValidateLLMConfig(t *testing.T) {
	store := memory.NewConfigStore()

	assert.NoError(t, NewSettingsService(store, nil).ValidateLLMConfig())
	assert.NoError(t, NewSettingsService(store, &mockAIConfigValidator{}).ValidateLLMConfig())
	assert.Error(t, NewSettingsService(store, &mockAIConfigValidator{llmErr: assert.AnError}).ValidateLLMConfig())
}
