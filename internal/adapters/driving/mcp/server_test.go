package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("nil result service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingResultService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Results: &mockResultService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingResultService)
	assert.NoError(t, (&Ports{Results: &mockResultService{}}).Validate())
}

func TestServer_result(t *testing.T) {
	ctx := context.Background()

	t.Run("pinned path is loaded", func(t *testing.T) {
		results := &mockResultService{result: testResult()}
		server := newTestServer(t, results, "out.json")

		_, err := server.result(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"out.json"}, results.loaded)
		assert.Zero(t, results.latested)
	})

	t.Run("latest run otherwise", func(t *testing.T) {
		results := &mockResultService{result: testResult()}
		server := newTestServer(t, results, "")

		_, err := server.result(ctx)
		require.NoError(t, err)
		assert.Empty(t, results.loaded)
		assert.Equal(t, 1, results.latested)
	})
}

func TestServer_resultNoRuns(t *testing.T) {
	server := newTestServer(t, &mockResultService{err: domain.ErrNotFound}, "")

	_, err := server.result(context.Background())

	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "casemap run")
}
