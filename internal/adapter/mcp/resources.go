package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/agentbridge/internal/domain/agent"
	"github.com/Strob0t/agentbridge/internal/domain/bridge"
)

// Resource URIs.
const (
	ResourceAgentTypes = "agentbridge://agent-types"
	ResourceActions    = "agentbridge://actions"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			ResourceAgentTypes,
			"Agent Types",
			mcplib.WithResourceDescription("Agent specialties with a dedicated prompt"),
			mcplib.WithMIMEType("application/json"),
		),
		s.staticJSONResource(agent.TypeNames()),
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			ResourceActions,
			"Bridge Actions",
			mcplib.WithResourceDescription("Actions accepted by the integration bridge"),
			mcplib.WithMIMEType("application/json"),
		),
		s.staticJSONResource(bridge.ActionNames()),
	)
}

func (s *Server) staticJSONResource(v any) func(context.Context, mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return func(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
