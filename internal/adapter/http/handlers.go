package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/agentbridge/internal/config"
	"github.com/Strob0t/agentbridge/internal/domain/agent"
	"github.com/Strob0t/agentbridge/internal/domain/bridge"
	"github.com/Strob0t/agentbridge/internal/port/messagequeue"
	"github.com/Strob0t/agentbridge/internal/secrets"
	"github.com/Strob0t/agentbridge/internal/service"
)

// Secrets is the subset of the vault the handlers read.
type Secrets interface {
	Get(key string) string
	Has(key string) bool
}

// Pinger reports backing store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the services behind the HTTP surfaces.
type Handlers struct {
	TaskRouter *service.TaskRouterService
	Bridge     *service.BridgeService
	Secrets    Secrets
	Store      Pinger
	Queue      messagequeue.Queue // nil when NATS is not configured
	Version    string

	// StoreConfigured reports whether a store DSN was supplied.
	StoreConfigured bool

	Webhook config.Webhook
	Limits  config.Limits
}

type taskMetrics struct {
	ResponseMS int64 `json:"response_ms"`
}

type taskResponse struct {
	Success             bool        `json:"success"`
	RequestID           string      `json:"requestId"`
	AgentID             string      `json:"agentId"`
	AgentType           string      `json:"agentType"`
	Response            string      `json:"response"`
	Confidence          float64     `json:"confidence"`
	Mock                bool        `json:"mock"`
	Metrics             taskMetrics `json:"metrics"`
	AutonomousExecution bool        `json:"autonomous_execution"`
}

// RouteTask handles POST /api/v1/agent-task-router
func (h *Handlers) RouteTask(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	req, err := agent.ParseTaskRequest(body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.TaskRouter.Route(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, taskResponse{
		Success:             true,
		RequestID:           res.RequestID,
		AgentID:             res.AgentID,
		AgentType:           res.AgentType,
		Response:            res.Response,
		Confidence:          res.Confidence,
		Mock:                res.Mock,
		Metrics:             taskMetrics{ResponseMS: res.ResponseMS},
		AutonomousExecution: res.AutonomousExecution,
	})
}

// TaskRouterInfo handles GET /api/v1/agent-task-router
func (h *Handlers) TaskRouterInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":              true,
		"service":              "agent-task-router",
		"version":              h.Version,
		"agentTypes":           agent.TypeNames(),
		"storeConfigured":      h.StoreConfigured,
		"completionConfigured": h.TaskRouter.CompletionConfigured(),
	})
}

// BridgeAction handles POST /api/v1/n8n-bridge
func (h *Handlers) BridgeAction(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	req, err := bridge.ParseRequest(body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out, err := h.Bridge.Dispatch(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, out)
}

// BridgeInfo handles GET /api/v1/n8n-bridge
func (h *Handlers) BridgeInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"service":      "n8n-bridge",
		"version":      h.Version,
		"actions":      bridge.ActionNames(),
		"hmac_enabled": h.Secrets.Has(secrets.KeyBridgeWebhookSecret),
	})
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	postgres := "up"
	if err := h.Store.Ping(r.Context()); err != nil {
		postgres = "down"
	}
	nats := "disabled"
	if h.Queue != nil {
		nats = "down"
		if h.Queue.IsConnected() {
			nats = "up"
		}
	}

	code, status := http.StatusOK, "ok"
	if postgres != "up" {
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	writeJSON(w, code, map[string]any{
		"success":    code == http.StatusOK,
		"status":     status,
		"version":    h.Version,
		"postgres":   postgres,
		"nats":       nats,
		"completion": h.TaskRouter.CompletionConfigured(),
	})
}
