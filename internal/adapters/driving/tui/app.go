package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/views/clusters"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/views/docdetails"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/views/runs"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/views/settings"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	menuView       *menu.View
	clustersView   *clusters.View
	docDetailsView *docdetails.View
	runsView       *runs.View
	settingsView   *settings.View
	statusBar      *status.Bar

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports. With a pinned
// result path the app opens on the cluster browser.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	clustersView := clusters.NewView(s, ports.Results)
	clustersView.SetPath(ports.ResultPath)

	current := messages.ViewMenu
	if ports.ResultPath != "" {
		current = messages.ViewClusters
	}

	return &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		keymap:         km,
		menuView:       menu.NewView(s),
		clustersView:   clustersView,
		docDetailsView: docdetails.NewView(s),
		runsView:       runs.NewView(s, ports.Runs),
		settingsView:   settings.NewView(s, ports.Settings),
		statusBar:      status.NewBar(s, km),
		currentView:    current,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tea.SetWindowTitle("casemap"),
	}
	if a.currentView == messages.ViewClusters {
		cmds = append(cmds, a.clustersView.Load())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.ResultLoaded:
		a.clustersView, cmd = a.clustersView.Update(msg)
		a.err = a.clustersView.Err()
		return a, cmd

	case messages.DocumentSelected:
		doc := msg.Document
		a.docDetailsView.SetDocument(&doc)
		a.currentView = messages.ViewDocDetails
		return a, nil

	case messages.RunSelected:
		// Browse the output of the chosen run.
		a.clustersView.SetPath(msg.Run.OutputPath)
		a.currentView = messages.ViewClusters
		return a, a.clustersView.Load()

	case messages.RunsLoaded, messages.RunDeleted:
		a.runsView, cmd = a.runsView.Update(msg)
		return a, cmd

	case messages.SettingsLoaded, messages.SettingSaved:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewDocDetails {
			a.docDetailsView, cmd = a.docDetailsView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages (cursor blink and the like) to the active view.
	return a, a.forward(msg)
}

// handleKey routes a key press. Quit keys are global unless a text input
// has focus.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	typing := (a.currentView == messages.ViewClusters && a.clustersView.Filtering()) ||
		(a.currentView == messages.ViewSettings && a.settingsView.Editing())
	if !typing {
		switch msg.String() {
		case "q":
			return a, tea.Quit
		case "?":
			if a.currentView != messages.ViewHelp {
				a.currentView = messages.ViewHelp
				return a, nil
			}
		}
	}

	if a.currentView == messages.ViewHelp {
		if msg.Type == tea.KeyEsc {
			a.currentView = messages.ViewMenu
		}
		return a, nil
	}

	return a, a.forward(msg)
}

// forward passes msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewClusters:
		a.clustersView, cmd = a.clustersView.Update(msg)
	case messages.ViewDocDetails:
		a.docDetailsView, cmd = a.docDetailsView.Update(msg)
	case messages.ViewRuns:
		a.runsView, cmd = a.runsView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
		// Help is static.
	}
	return cmd
}

// switchTo activates a view, loading its data when needed.
func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.currentView = view
	switch view {
	case messages.ViewClusters:
		if a.clustersView.Result() == nil && !a.clustersView.Loading() {
			return a.clustersView.Load()
		}
	case messages.ViewRuns:
		return a.runsView.Init()
	case messages.ViewSettings:
		a.settingsView.Reset()
		return a.settingsView.Init()
	case messages.ViewMenu, messages.ViewDocDetails, messages.ViewHelp:
		// Nothing to load.
	}
	return nil
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewMenu:
		return a.menuView.View()
	case messages.ViewClusters:
		a.syncStatus()
		return a.clustersView.View() + "\n\n" + a.statusBar.View()
	case messages.ViewDocDetails:
		return a.docDetailsView.View()
	case messages.ViewRuns:
		return a.runsView.View()
	case messages.ViewSettings:
		return a.settingsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// syncStatus mirrors the cluster browser state into the status bar.
func (a *App) syncStatus() {
	a.statusBar.Clear()
	switch {
	case a.clustersView.Loading():
		a.statusBar.SetState(status.StateLoading)
	case a.clustersView.Err() != nil:
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(a.clustersView.Err().Error())
	case a.clustersView.Result() != nil:
		a.statusBar.SetState(status.StateBrowsing)
		a.statusBar.SetCount(a.clustersView.Count())
		a.statusBar.SetMessage(fmt.Sprintf("%d %s", a.clustersView.Count(), a.clustersView.Level()))
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Navigation:
  esc         Back
  ?           This help
  q, ctrl+c   Quit

Lists:
  j/k, ↑/↓    Move
  enter       Open
  r           Reload

Clusters:
  /           Filter by name
  enter       Mid → fine → documents → document

Runs:
  enter       Browse the run's result
  d           Delete the run record

Settings:
  enter       Edit value
  esc         Cancel edit

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions and sizes every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.clustersView.SetDimensions(width, height-2)
	a.docDetailsView.SetDimensions(width, height)
	a.runsView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
	a.statusBar.SetWidth(width)
}
