package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/casemap/internal/core/domain"
)

func testResult() *domain.Result {
	tort := domain.Category{ID: 3, Name: "Tort"}
	return &domain.Result{
		Documents: []domain.ResultDocument{
			{Index: 0, ID: "waymo-crash", DisplayName: "Doe v. Waymo", FineCluster: 0, MidCluster: 0, CategoryName: "Tort"},
			{Index: 1, ID: "tesla-crash", DisplayName: "Roe v. Tesla", FineCluster: 0, MidCluster: 0, CategoryName: "Tort"},
		},
		Meta: domain.ResultMeta{
			RunID:          "run-1",
			TotalDocuments: 2,
			NFine:          1,
			NMid:           1,
			Hierarchy: &domain.Hierarchy{Mid: []domain.MidCluster{{
				ID: 0, Name: "Autonomous vehicle injuries", Category: tort, Size: 2,
				Fine: []domain.FineCluster{{ID: 0, MidID: 0, Name: "Crash liability", Size: 2}},
			}}},
		},
	}
}

// recordingResults serves testResult and records which paths were read.
type recordingResults struct {
	MockResultService
	loaded   []string
	latested int
}

func newRecordingResults() *recordingResults {
	r := &recordingResults{}
	r.LoadFunc = func(_ context.Context, path string) (*domain.Result, error) {
		r.loaded = append(r.loaded, path)
		return testResult(), nil
	}
	r.LatestFunc = func(context.Context) (*domain.Result, error) {
		r.latested++
		return testResult(), nil
	}
	return r
}

func newTestApp(t *testing.T, ports *Ports) *App {
	t.Helper()
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app
}

// run executes cmd and feeds its messages back into the app until no
// command is left.
func run(app *App, cmd tea.Cmd) {
	for i := 0; cmd != nil && i < 10; i++ {
		_, cmd = app.Update(cmd())
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(&Ports{Results: &MockResultService{}})

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Runs: &MockRunHistoryService{}})

	assert.ErrorIs(t, err, ErrMissingResultService)
	assert.Nil(t, app)
}

func TestNewApp_PinnedResultOpensClusters(t *testing.T) {
	results := newRecordingResults()
	app := newTestApp(t, &Ports{Results: results, ResultPath: "out/result.json"})

	assert.Equal(t, messages.ViewClusters, app.CurrentView())
	require.NotNil(t, app.Init())

	// The load command is part of the init batch; run it directly.
	run(app, app.clustersView.Load())
	assert.Equal(t, []string{"out/result.json"}, results.loaded)
	assert.Contains(t, app.View(), "Autonomous vehicle injuries")
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t, &Ports{Results: &MockResultService{}})

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t, &Ports{Results: &MockResultService{}})

	assert.NotNil(t, app.Init())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Results: &MockResultService{}})
	require.NoError(t, err)

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Equal(t, 80, app.width)
	assert.Equal(t, 80, app.statusBar.Width())
}

func TestApp_View_NotReady(t *testing.T) {
	app, err := NewApp(&Ports{Results: &MockResultService{}})
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_View_Menu(t *testing.T) {
	app := newTestApp(t, &Ports{Results: &MockResultService{}})

	output := app.View()

	assert.Contains(t, output, "casemap")
	assert.Contains(t, output, "Clusters")
}

func TestApp_Quit(t *testing.T) {
	for _, k := range []string{"ctrl+c", "q"} {
		t.Run(k, func(t *testing.T) {
			app := newTestApp(t, &Ports{Results: &MockResultService{}})

			_, cmd := app.Update(keyMsg(k))

			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestApp_QuitMessage(t *testing.T) {
	app := newTestApp(t, &Ports{Results: &MockResultService{}})

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_BrowseToDocument(t *testing.T) {
	results := newRecordingResults()
	app := newTestApp(t, &Ports{Results: results})

	// Menu: Clusters is the first item.
	_, cmd := app.Update(keyMsg("enter"))
	run(app, cmd)
	require.Equal(t, messages.ViewClusters, app.CurrentView())

	// Switching loaded the latest result.
	_, cmd = app.Update(messages.ViewChanged{View: messages.ViewClusters})
	assert.Nil(t, cmd, "a loaded result is not reloaded")
	assert.Equal(t, 1, results.latested)
	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "1 mid")

	// mid → fine → documents → document
	app.Update(keyMsg("enter"))
	app.Update(keyMsg("enter"))
	_, cmd = app.Update(keyMsg("down"))
	assert.Nil(t, cmd)
	_, cmd = app.Update(keyMsg("enter"))
	run(app, cmd)

	require.Equal(t, messages.ViewDocDetails, app.CurrentView())
	assert.Contains(t, app.View(), "tesla-crash")

	// Esc returns to the browser at the same level.
	_, cmd = app.Update(keyMsg("esc"))
	run(app, cmd)
	assert.Equal(t, messages.ViewClusters, app.CurrentView())
	assert.Contains(t, app.View(), "Crash liability")
}

func TestApp_ClusterLoadError(t *testing.T) {
	app := newTestApp(t, &Ports{Results: &MockResultService{}})

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewClusters})
	run(app, cmd)

	assert.ErrorIs(t, app.Err(), domain.ErrNotFound)
	assert.Contains(t, app.View(), "Error")
}

func TestApp_FilterKeepsQuitKey(t *testing.T) {
	app := newTestApp(t, &Ports{Results: newRecordingResults()})
	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewClusters})
	run(app, cmd)

	app.Update(keyMsg("/"))
	require.True(t, app.clustersView.Filtering())

	app.Update(keyMsg("q"))

	// The key went to the filter: nothing matches "q".
	assert.Equal(t, messages.ViewClusters, app.CurrentView())
	assert.True(t, app.clustersView.Filtering())
	assert.Zero(t, app.clustersView.Count())
}

func TestApp_RunSelected(t *testing.T) {
	results := newRecordingResults()
	history := &MockRunHistoryService{
		ListFunc: func(context.Context, int) ([]domain.RunRecord, error) {
			return []domain.RunRecord{{ID: "r1", Status: domain.RunCompleted, OutputPath: "runs/r1.json"}}, nil
		},
	}
	app := newTestApp(t, &Ports{Results: results, Runs: history})

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewRuns})
	require.Equal(t, messages.ViewRuns, app.CurrentView())
	run(app, cmd)
	assert.Contains(t, app.View(), "runs/r1.json")

	_, cmd = app.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, messages.RunSelected{}, msg)
	_, cmd = app.Update(msg)
	assert.Equal(t, messages.ViewClusters, app.CurrentView())

	run(app, cmd)
	assert.Equal(t, []string{"runs/r1.json"}, results.loaded)
	assert.Zero(t, results.latested)
}

func TestApp_RunDeleted(t *testing.T) {
	var deleted []string
	history := &MockRunHistoryService{
		ListFunc: func(context.Context, int) ([]domain.RunRecord, error) {
			return []domain.RunRecord{{ID: "r1", Status: domain.RunFailed}}, nil
		},
		DeleteFunc: func(_ context.Context, id string) error {
			deleted = append(deleted, id)
			return nil
		},
	}
	app := newTestApp(t, &Ports{Results: &MockResultService{}, Runs: history})
	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewRuns})
	run(app, cmd)

	_, cmd = app.Update(keyMsg("d"))
	run(app, cmd)

	assert.Equal(t, []string{"r1"}, deleted)
}

func TestApp_Settings_NoService(t *testing.T) {
	app := newTestApp(t, &Ports{Results: &MockResultService{}})

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewSettings})
	run(app, cmd)

	assert.Equal(t, messages.ViewSettings, app.CurrentView())
	assert.Contains(t, app.View(), "settings service not available")
}

func TestApp_Help(t *testing.T) {
	app := newTestApp(t, &Ports{Results: &MockResultService{}})

	app.Update(keyMsg("?"))
	require.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Filter by name")

	// Other keys are ignored on the help screen.
	_, cmd := app.Update(keyMsg("down"))
	assert.Nil(t, cmd)

	app.Update(keyMsg("esc"))
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t, &Ports{Results: &MockResultService{}})
	app.Update(messages.DocumentSelected{Document: testResult().Documents[0]})
	require.Equal(t, messages.ViewDocDetails, app.CurrentView())

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
	assert.Contains(t, app.View(), "Error: boom")
}

func TestApp_SetDimensions(t *testing.T) {
	app, err := NewApp(&Ports{Results: &MockResultService{}})
	require.NoError(t, err)

	app.SetDimensions(120, 50)

	assert.True(t, app.Ready())
	assert.Equal(t, 120, app.width)
	assert.Equal(t, 50, app.height)
}
