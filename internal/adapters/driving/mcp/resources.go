package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for casemap resources.
	uriScheme = "casemap://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the run summary.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "result",
		Name:        "result",
		Description: "Meta block of the served result: counts, names, categories and hierarchy",
		MIMEType:    "application/json",
	}, s.handleResultResource)

	// Template for a single cluster.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "clusters/{level}/{id}",
		Name:        "cluster",
		Description: "A mid or fine cluster with its member documents",
		MIMEType:    "application/json",
	}, s.handleClusterResource)
}

// handleResultResource returns the meta block of the served result.
func (s *Server) handleResultResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	result, err := s.result(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading result: %w", err)
	}
	return jsonContents(req.Params.URI, result.Meta)
}

// handleClusterResource returns one cluster.
func (s *Server) handleClusterResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	level, id, ok := extractClusterRef(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	result, err := s.result(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading result: %w", err)
	}
	detail, err := clusterDetail(result, level, id, 0)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonContents(req.Params.URI, detail)
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractClusterRef parses a URI like casemap://clusters/{level}/{id}.
func extractClusterRef(uri string) (domain.ClusterLevel, int, bool) {
	const prefix = uriScheme + "clusters/"

	if !strings.HasPrefix(uri, prefix) {
		return "", 0, false
	}

	parts := strings.Split(strings.TrimPrefix(uri, prefix), "/")
	if len(parts) != 2 {
		return "", 0, false
	}

	level := domain.ClusterLevel(parts[0])
	if level != domain.LevelMid && level != domain.LevelFine {
		return "", 0, false
	}

	id, err := strconv.Atoi(parts[1])
	if err != nil || id < 0 {
		return "", 0, false
	}
	return level, id, true
}
