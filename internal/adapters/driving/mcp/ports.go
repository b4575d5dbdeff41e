package mcp

import (
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Results reads persisted results.
	Results driving.ResultService

	// ResultPath pins the result file served. Empty serves the output of the
	// most recent completed run.
	ResultPath string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Results == nil {
		return ErrMissingResultService
	}
	return nil
}
