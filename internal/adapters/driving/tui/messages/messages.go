// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/casemap/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewClusters is the hierarchy browser.
	ViewClusters
	// ViewDocDetails shows one document of a result.
	ViewDocDetails
	// ViewRuns lists recorded runs.
	ViewRuns
	// ViewSettings is the settings view.
	ViewSettings
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewClusters:
		return "clusters"
	case ViewDocDetails:
		return "doc_details"
	case ViewRuns:
		return "runs"
	case ViewSettings:
		return "settings"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// ResultLoaded carries a run result to the cluster browser.
type ResultLoaded struct {
	Path   string
	Result *domain.Result
	Err    error
}

// DocumentSelected signals a document was selected in the browser.
type DocumentSelected struct {
	Document domain.ResultDocument
}

// RunsLoaded carries the recorded runs.
type RunsLoaded struct {
	Runs []domain.RunRecord
	Err  error
}

// RunSelected signals a run was picked for browsing.
type RunSelected struct {
	Run domain.RunRecord
}

// RunDeleted signals a run record was deleted.
type RunDeleted struct {
	ID  string
	Err error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingSaved signals a single setting was written.
type SettingSaved struct {
	Key string
	Err error
}
