package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

const (
	defaultDocumentLimit = 20
	summaryPreviewLen    = 300
)

// ListClustersInput is the input schema for the list_clusters tool.
type ListClustersInput struct {
	Level string `json:"level,omitempty" jsonschema:"cluster level to list: mid (default) or fine"`
	MidID *int   `json:"mid_id,omitempty" jsonschema:"restrict fine clusters to this mid cluster"`
}

// ListClustersOutput is the output schema for the list_clusters tool.
type ListClustersOutput struct {
	Clusters []ClusterSummary `json:"clusters"`
	Count    int              `json:"count"`
}

// ClusterSummary describes one cluster of the hierarchy.
type ClusterSummary struct {
	Level    string `json:"level"`
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Size     int    `json:"size"`

	// MidID is the parent of a fine cluster.
	MidID *int `json:"mid_id,omitempty"`

	// Tier and Score are the quality rating of a fine cluster.
	Tier  string  `json:"quality_tier,omitempty"`
	Score float64 `json:"quality_score,omitempty"`

	// Children is the number of fine clusters of a mid cluster.
	Children int `json:"children,omitempty"`
}

// GetClusterInput is the input schema for the get_cluster tool.
type GetClusterInput struct {
	Level string `json:"level,omitempty" jsonschema:"cluster level: mid (default) or fine"`
	ID    int    `json:"id" jsonschema:"cluster id at that level"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of member documents to return (default 20)"`
}

// ClusterDetail is a cluster with its children and member documents.
type ClusterDetail struct {
	Cluster        ClusterSummary         `json:"cluster"`
	Classification *domain.Classification `json:"classification,omitempty"`
	Children       []ClusterSummary       `json:"children,omitempty"`
	Documents      []DocumentRef          `json:"documents"`
	TotalDocuments int                    `json:"total_documents"`
}

// DocumentRef is a short reference to a member document.
type DocumentRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Summary     string `json:"summary,omitempty"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	ID string `json:"id" jsonschema:"document id"`
}

// GetDocumentOutput is the output schema for the get_document tool.
type GetDocumentOutput struct {
	Document domain.ResultDocument `json:"document"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_clusters",
		Description: "List the mid-level topics or the fine clusters of the latest casemap run",
	}, s.handleListClusters)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_cluster",
		Description: "Describe one cluster with its sub-clusters and member documents",
	}, s.handleGetCluster)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get the cluster assignment, category and quality of one document",
	}, s.handleGetDocument)
}

// handleListClusters handles the list_clusters tool invocation.
func (s *Server) handleListClusters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListClustersInput,
) (*mcp.CallToolResult, ListClustersOutput, error) {
	level, err := parseLevel(input.Level)
	if err != nil {
		return nil, ListClustersOutput{}, err
	}
	result, err := s.result(ctx)
	if err != nil {
		return nil, ListClustersOutput{}, err
	}
	if result.Meta.Hierarchy == nil {
		return nil, ListClustersOutput{}, errNoHierarchy
	}

	var clusters []ClusterSummary
	for i := range result.Meta.Hierarchy.Mid {
		mid := &result.Meta.Hierarchy.Mid[i]
		if level == domain.LevelMid {
			clusters = append(clusters, midSummary(mid))
			continue
		}
		if input.MidID != nil && *input.MidID != mid.ID {
			continue
		}
		for j := range mid.Fine {
			clusters = append(clusters, fineSummary(&mid.Fine[j], mid))
		}
	}

	return nil, ListClustersOutput{Clusters: clusters, Count: len(clusters)}, nil
}

// handleGetCluster handles the get_cluster tool invocation.
func (s *Server) handleGetCluster(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetClusterInput,
) (*mcp.CallToolResult, ClusterDetail, error) {
	level, err := parseLevel(input.Level)
	if err != nil {
		return nil, ClusterDetail{}, err
	}
	result, err := s.result(ctx)
	if err != nil {
		return nil, ClusterDetail{}, err
	}
	detail, err := clusterDetail(result, level, input.ID, input.Limit)
	if err != nil {
		return nil, ClusterDetail{}, err
	}
	return nil, *detail, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	result, err := s.result(ctx)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}
	doc, ok := result.Document(input.ID)
	if !ok {
		return nil, GetDocumentOutput{}, fmt.Errorf("%w: document %q", domain.ErrNotFound, input.ID)
	}
	return nil, GetDocumentOutput{Document: *doc}, nil
}

var errNoHierarchy = fmt.Errorf("%w: result has no hierarchy", domain.ErrNotFound)

func parseLevel(s string) (domain.ClusterLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(domain.LevelMid):
		return domain.LevelMid, nil
	case string(domain.LevelFine):
		return domain.LevelFine, nil
	default:
		return "", fmt.Errorf("%w: unknown cluster level %q", domain.ErrInvalidInput, s)
	}
}

func midSummary(mid *domain.MidCluster) ClusterSummary {
	return ClusterSummary{
		Level:    string(domain.LevelMid),
		ID:       mid.ID,
		Name:     mid.Name,
		Category: mid.Category.Name,
		Size:     mid.Size,
		Children: len(mid.Fine),
	}
}

func fineSummary(fine *domain.FineCluster, mid *domain.MidCluster) ClusterSummary {
	midID := mid.ID
	return ClusterSummary{
		Level:    string(domain.LevelFine),
		ID:       fine.ID,
		Name:     fine.Name,
		Category: mid.Category.Name,
		Size:     fine.Size,
		MidID:    &midID,
		Tier:     string(fine.Quality.Tier),
		Score:    fine.Quality.Score,
	}
}

// clusterDetail builds the description of a cluster. Members are read from
// the document list because the persisted hierarchy omits them.
func clusterDetail(result *domain.Result, level domain.ClusterLevel, id, limit int) (*ClusterDetail, error) {
	h := result.Meta.Hierarchy
	if h == nil {
		return nil, errNoHierarchy
	}
	if limit <= 0 {
		limit = defaultDocumentLimit
	}

	detail := &ClusterDetail{}
	member := func(d *domain.ResultDocument) bool { return d.MidCluster == id }

	switch level {
	case domain.LevelFine:
		fine, mid, ok := h.FineByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: fine cluster %d", domain.ErrNotFound, id)
		}
		detail.Cluster = fineSummary(fine, mid)
		member = func(d *domain.ResultDocument) bool { return d.FineCluster == id }
	default:
		mid, ok := h.MidByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: mid cluster %d", domain.ErrNotFound, id)
		}
		detail.Cluster = midSummary(mid)
		detail.Classification = mid.Classification
		for j := range mid.Fine {
			detail.Children = append(detail.Children, fineSummary(&mid.Fine[j], mid))
		}
	}

	detail.Documents = []DocumentRef{}
	for i := range result.Documents {
		d := &result.Documents[i]
		if !member(d) {
			continue
		}
		detail.TotalDocuments++
		if len(detail.Documents) < limit {
			detail.Documents = append(detail.Documents, DocumentRef{
				ID:          d.ID,
				DisplayName: d.DisplayName,
				Summary:     preview(d.Summary),
			})
		}
	}
	return detail, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= summaryPreviewLen {
		return s
	}
	return string(r[:summaryPreviewLen]) + "..."
}
