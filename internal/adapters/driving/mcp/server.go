package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// Version is the MCP server version.
const Version = "0.1.0"

const instructions = `casemap groups court opinions into mid clusters (broad topics with a legal
category) that contain fine clusters (narrow topics with a quality tier).
Start with list_clusters, open one with get_cluster and read single opinions
with get_document. The full result is available as the casemap://result resource.`

// Server is the MCP server for casemap.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "casemap",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// result loads the served result. It is read on every request so that a
// re-run is picked up without restarting the server.
func (s *Server) result(ctx context.Context) (*domain.Result, error) {
	if s.ports.ResultPath != "" {
		return s.ports.Results.Load(ctx, s.ports.ResultPath)
	}
	result, err := s.ports.Results.Latest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no completed run yet, start one with 'casemap run': %w", err)
	}
	return result, err
}
