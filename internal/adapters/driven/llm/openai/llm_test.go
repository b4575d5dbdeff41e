package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	require.Error(t, err)
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
}

func TestChat_JSONMode(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"primary\":\"Tort\"}"}}]}`))
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "classify"},
		{Role: "user", Content: "text"},
	}, driven.ChatOptions{JSON: true, MaxTokens: 50})
	require.NoError(t, err)

	assert.Equal(t, `{"primary":"Tort"}`, out)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, 50, got.MaxTokens)
}

func TestChat_RateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"slow down"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "hi", driven.GenerateOptions{})
	require.Error(t, err)
	assert.True(t, driven.IsRetryable(err))
}

func TestChat_BadRequestIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "hi", driven.GenerateOptions{})
	require.Error(t, err)
	assert.False(t, driven.IsRetryable(err))
}

func TestChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "hi", driven.GenerateOptions{})
	assert.ErrorContains(t, err, "no response choices")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
