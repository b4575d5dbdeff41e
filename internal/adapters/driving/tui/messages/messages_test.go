package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view     ViewType
		expected string
	}{
		{ViewMenu, "menu"},
		{ViewClusters, "clusters"},
		{ViewDocDetails, "doc_details"},
		{ViewRuns, "runs"},
		{ViewSettings, "settings"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.view.String())
		})
	}
}

func TestViewType_Distinct(t *testing.T) {
	views := []ViewType{ViewMenu, ViewClusters, ViewDocDetails, ViewRuns, ViewSettings, ViewHelp}

	seen := make(map[ViewType]bool)
	for _, v := range views {
		assert.False(t, seen[v], "duplicate view %s", v)
		seen[v] = true
	}
	assert.Equal(t, ViewType(0), ViewMenu)
}

func TestMessages_CarryPayload(t *testing.T) {
	err := errors.New("boom")

	loaded := ResultLoaded{Path: "out.json", Result: &domain.Result{}, Err: err}
	assert.Equal(t, "out.json", loaded.Path)
	assert.ErrorIs(t, loaded.Err, err)

	selected := DocumentSelected{Document: domain.ResultDocument{ID: "doc-1"}}
	assert.Equal(t, "doc-1", selected.Document.ID)

	runs := RunsLoaded{Runs: []domain.RunRecord{{ID: "r1"}}}
	assert.Len(t, runs.Runs, 1)

	saved := SettingSaved{Key: "reducer.seed"}
	assert.Equal(t, "reducer.seed", saved.Key)
	assert.NoError(t, saved.Err)
}
