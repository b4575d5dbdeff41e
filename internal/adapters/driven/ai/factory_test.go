package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// ollamaServer answers the tag listing used as a connectivity check.
func ollamaServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		errContains string
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{
			name:     "ollama",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		},
		{
			name:     "openai",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "k"},
		},
		{
			name:        "anthropic has no embeddings",
			settings:    &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			errContains: "anthropic does not support embeddings",
		},
		{
			name:     "openai without key is unconfigured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			_ = svc.Close()
		})
	}
}

func TestCreateEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"nomic-embed-text", 768},
		{"mxbai-embed-large", 1024},
		{"unknown-model", 768},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama, Model: tt.model,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, svc.Dimensions())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantNil  bool
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.LLMSettings{}, wantNil: true},
		{name: "ollama", settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}},
		{name: "openai", settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini", APIKey: "k"}},
		{name: "anthropic", settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, Model: "claude", APIKey: "k"}},
		{name: "anthropic without key", settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic}, wantNil: true},
		{name: "unknown provider", settings: &domain.LLMSettings{Provider: "mystery"}, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			_ = svc.Close()
		})
	}
}

func TestCreateAndValidateLLMService_Reachable(t *testing.T) {
	srv := ollamaServer(t, http.StatusOK)

	svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOllama, Model: "llama3.2", BaseURL: srv.URL,
	})

	require.NoError(t, err)
	require.NotNil(t, svc)
	_ = svc.Close()
}

func TestCreateAndValidateLLMService_Unreachable(t *testing.T) {
	srv := ollamaServer(t, http.StatusInternalServerError)

	svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOllama, Model: "llama3.2", BaseURL: srv.URL,
	})

	assert.Nil(t, svc)
	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "casemap settings wizard")
}

func TestCreateAndValidateLLMService_NotConfigured(t *testing.T) {
	svc, err := CreateAndValidateLLMService(&domain.LLMSettings{})

	assert.NoError(t, err)
	assert.Nil(t, svc)
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	ok := ollamaServer(t, http.StatusOK)
	down := ollamaServer(t, http.StatusServiceUnavailable)

	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, Model: "nomic-embed-text", BaseURL: ok.URL,
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	_ = svc.Close()

	svc, err = CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, Model: "nomic-embed-text", BaseURL: down.URL,
	})
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestConfigValidator(t *testing.T) {
	srv := ollamaServer(t, http.StatusOK)
	v := NewConfigValidator()
	assert.Equal(t, pingTimeout, v.Timeout)

	assert.NoError(t, v.ValidateLLM(nil))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{Model: "test-model"}))
	assert.NoError(t, v.ValidateEmbedding(nil))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{}))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOllama, Model: "llama3.2", BaseURL: srv.URL,
	}))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, Model: "nomic-embed-text", BaseURL: srv.URL,
	}))
	assert.Error(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic}))
}

func TestConfigValidator_Unreachable(t *testing.T) {
	srv := ollamaServer(t, http.StatusInternalServerError)
	v := &ConfigValidator{Timeout: time.Second}

	assert.Error(t, v.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOllama, Model: "llama3.2", BaseURL: srv.URL,
	}))
	assert.Error(t, v.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, Model: "nomic-embed-text", BaseURL: srv.URL,
	}))
}
