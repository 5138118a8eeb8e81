// Package mcp exposes the task router and the integration bridge as Model
// Context Protocol tools over streamable HTTP.
package mcp

import (
	"context"
	"net/http"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/agentbridge/internal/domain/agent"
	"github.com/Strob0t/agentbridge/internal/domain/bridge"
	"github.com/Strob0t/agentbridge/internal/secrets"
	"github.com/Strob0t/agentbridge/internal/service"
)

// EndpointPath is where the streamable HTTP transport is mounted.
const EndpointPath = "/mcp"

// TaskRouter routes a validated agent task.
type TaskRouter interface {
	Route(ctx context.Context, req *agent.TaskRequest) (*service.TaskResult, error)
}

// BridgeDispatcher runs one integration bridge action.
type BridgeDispatcher interface {
	Dispatch(ctx context.Context, req bridge.Request) ([]byte, error)
}

// ServerConfig holds MCP server identity and auth.
type ServerConfig struct {
	Name    string
	Version string
	APIKey  string
}

// SecretSource resolves secrets at call time.
type SecretSource interface {
	Get(key string) string
}

// ServerDeps are the services the tools call. Nil deps make the
// corresponding tool answer with an error result.
type ServerDeps struct {
	TaskRouter TaskRouter
	Bridge     BridgeDispatcher
	Secrets    SecretSource
}

// Server wraps an mcp-go server with the bridge tools registered.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates a Server and registers its tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the stateless streamable HTTP handler, behind API key
// auth when a key is configured.
func (s *Server) Handler() http.Handler {
	h := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return AuthMiddleware(s.cfg.APIKey, h)
}

// bridgeLocked reports whether bridge actions must be refused: webhook
// callers have to sign, so an unauthenticated MCP endpoint may not act as a
// side door.
func (s *Server) bridgeLocked() bool {
	return s.cfg.APIKey == "" && s.deps.Secrets != nil && s.deps.Secrets.Get(secrets.KeyBridgeWebhookSecret) != ""
}

func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
