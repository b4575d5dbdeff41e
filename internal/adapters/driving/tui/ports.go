// Package tui provides an interactive terminal user interface for casemap.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Results reads persisted run results.
	Results driving.ResultService

	// Runs exposes the run history. Optional.
	Runs driving.RunHistoryService

	// Settings manages application settings. Optional.
	Settings driving.SettingsService

	// ResultPath pins the result file to browse. Empty follows the latest
	// completed run.
	ResultPath string
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	results driving.ResultService,
	runs driving.RunHistoryService,
	settings driving.SettingsService,
) *Ports {
	return &Ports{
		Results:  results,
		Runs:     runs,
		Settings: settings,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Results == nil {
		return ErrMissingResultService
	}
	return nil
}
