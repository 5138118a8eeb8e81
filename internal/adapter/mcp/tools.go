package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/agentbridge/internal/domain/agent"
	"github.com/Strob0t/agentbridge/internal/domain/bridge"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.routeAgentTaskTool(),
		s.bridgeActionTool(),
	)
}

func (s *Server) routeAgentTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("route_agent_task",
		mcplib.WithDescription("Route a task to a specialised agent and return the scored completion"),
		mcplib.WithString("agentId",
			mcplib.Required(),
			mcplib.Description("Identifier of the requesting agent"),
		),
		mcplib.WithString("agentType",
			mcplib.Required(),
			mcplib.Description("Agent specialty; unknown types use a generic prompt"),
			mcplib.Enum(agent.TypeNames()...),
		),
		mcplib.WithString("task",
			mcplib.Required(),
			mcplib.Description("The task to perform"),
		),
		mcplib.WithNumber("priority",
			mcplib.Description("Priority from 1 to 10"),
			mcplib.Min(agent.MinPriority),
			mcplib.Max(agent.MaxPriority),
		),
		mcplib.WithObject("context",
			mcplib.Description("Free-form context passed through to the prompt"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleRouteAgentTask,
	}
}

func (s *Server) bridgeActionTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("bridge_action",
		mcplib.WithDescription("Run an integration bridge action"),
		mcplib.WithString("action",
			mcplib.Required(),
			mcplib.Description("Action name"),
			mcplib.Enum(bridge.ActionNames()...),
		),
		mcplib.WithObject("data",
			mcplib.Description("Action payload"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleBridgeAction,
	}
}

type routeResult struct {
	RequestID           string  `json:"requestId"`
	AgentID             string  `json:"agentId"`
	AgentType           string  `json:"agentType"`
	Response            string  `json:"response"`
	Confidence          float64 `json:"confidence"`
	Mock                bool    `json:"mock"`
	ResponseMS          int64   `json:"response_ms"`
	AutonomousExecution bool    `json:"autonomous_execution"`
}

// handleRouteAgentTask re-encodes the arguments and runs them through the
// same validation as the HTTP endpoint.
func (s *Server) handleRouteAgentTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.TaskRouter == nil {
		return mcplib.NewToolResultError("task router not configured"), nil
	}
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to encode arguments", err), nil
	}
	taskReq, err := agent.ParseTaskRequest(raw)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}

	res, err := s.deps.TaskRouter.Route(ctx, &taskReq)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("task routing failed", err), nil
	}
	data, err := json.Marshal(routeResult{
		RequestID:           res.RequestID,
		AgentID:             res.AgentID,
		AgentType:           res.AgentType,
		Response:            res.Response,
		Confidence:          res.Confidence,
		Mock:                res.Mock,
		ResponseMS:          res.ResponseMS,
		AutonomousExecution: res.AutonomousExecution,
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleBridgeAction(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Bridge == nil {
		return mcplib.NewToolResultError("bridge not configured"), nil
	}
	if s.bridgeLocked() {
		return mcplib.NewToolResultError("bridge actions over MCP require an MCP api key while webhook signing is enabled"), nil
	}
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to encode arguments", err), nil
	}
	bridgeReq, err := bridge.ParseRequest(raw)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}

	out, err := s.deps.Bridge.Dispatch(ctx, bridgeReq)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return toolResultJSON(string(out)), nil
}
