// Package mcp provides an MCP (Model Context Protocol) server adapter for casemap.
// It lets AI assistants browse the clusters and documents of a run result.
package mcp

import "errors"

// ErrMissingResultService is returned when the result service is not provided.
var ErrMissingResultService = errors.New("mcp: result service is required")
