package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatsURI names the index statistics resource.
const StatsURI = "xppkb://stats"

func (s *Server) registerResources() {
	s.server.AddResource(
		mcp.NewResource(StatsURI, "Index statistics",
			mcp.WithResourceDescription("Symbol counts by kind and model, and the latest index run"),
			mcp.WithMIMEType("application/json"),
		),
		s.readStats,
	)
}

func (s *Server) readStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := s.service.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
