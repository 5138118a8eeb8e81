// Package ws implements the realtime status feed: a WebSocket hub that
// pushes agent status and autonomous task events to dashboard clients and
// accepts agent reports from writer clients.
package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/port/broadcast"
	"github.com/Strob0t/agentbridge/internal/secrets"
	"github.com/Strob0t/agentbridge/internal/service"
)

const (
	heartbeatInterval = 25 * time.Second
	writeTimeout      = 5 * time.Second
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TS      string          `json:"ts"`
}

// AuthHeader carries the writer token on the upgrade request.
const AuthHeader = "X-Auth-Token"

// Inbound message types accepted from writer clients.
const (
	MsgAgentStatusUpdate = "agent_status_update"
	MsgAgentUpdate       = "n8n_agent_update"
	MsgTaskBatch         = "n8n_task_batch"
	MsgWorkflowStatus    = "n8n_workflow_status"
)

// Inbound applies reports pushed by writer clients.
type Inbound interface {
	AgentStatusUpdate(ctx context.Context, data gjson.Result) (*record.StatusLog, error)
	AgentUpdate(ctx context.Context, data gjson.Result) (*record.StatusLog, error)
	TaskBatch(ctx context.Context, data gjson.Result) (*service.BatchProgress, error)
	WorkflowStatus(ctx context.Context, data gjson.Result) (*service.WorkflowStatus, error)
}

// SecretSource supplies the writer token. An empty token makes every
// client a writer.
type SecretSource interface {
	Get(key string) string
}

// conn wraps a single WebSocket connection.
type conn struct {
	id     string
	ws     *websocket.Conn
	cancel context.CancelFunc
	writer bool
}

// Hub manages all active WebSocket connections and broadcasts messages.
type Hub struct {
	mu             sync.RWMutex
	conns          map[*conn]struct{}
	originPatterns []string
	inbound        Inbound
	tokens         SecretSource
	version        string
	now            func() time.Time
}

var _ broadcast.Broadcaster = (*Hub)(nil)

// Option configures a Hub.
type Option func(*Hub)

// WithVersion sets the version reported by the introspection endpoint.
func WithVersion(v string) Option {
	return func(h *Hub) { h.version = v }
}

// NewHub creates a new WebSocket hub. A corsOrigin of "*" or "" accepts any
// origin; otherwise only the given host pattern is allowed.
func NewHub(corsOrigin string, opts ...Option) *Hub {
	h := &Hub{conns: make(map[*conn]struct{}), now: time.Now}
	if corsOrigin != "" && corsOrigin != "*" {
		h.originPatterns = []string{corsOrigin}
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AcceptReports lets writer clients push reports handled by in. Until it
// is called the feed is read-only. Call it before serving.
func (h *Hub) AcceptReports(in Inbound, tokens SecretSource) {
	h.inbound = in
	h.tokens = tokens
}

func (h *Hub) writerToken() string {
	if h.tokens == nil {
		return ""
	}
	return h.tokens.Get(secrets.KeyRealtimeWriterToken)
}

// isWriter reports whether the upgrade request may push reports.
func (h *Hub) isWriter(r *http.Request) bool {
	if h.inbound == nil {
		return false
	}
	want := h.writerToken()
	if want == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get(AuthHeader)), []byte(want)) == 1
}

// HandleWS upgrades the request to a WebSocket and registers the connection.
// A plain GET gets a JSON description of the feed instead.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		h.describe(w)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: len(h.originPatterns) == 0,
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The connection outlives the upgrade request.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{id: uuid.NewString(), ws: ws, cancel: cancel, writer: h.isWriter(r)}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "client_id", c.id, "remote", r.RemoteAddr, "writer", c.writer)
	h.send(ctx, c, "connection_established", map[string]any{"clientId": c.id, "canWrite": c.writer})

	go h.heartbeat(ctx, c)
	go h.readLoop(ctx, c)
}

func (h *Hub) describe(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":       true,
		"service":       "agentbridge-realtime",
		"version":       h.version,
		"time":          h.now().UTC().Format(time.RFC3339Nano),
		"authProtected": h.writerToken() != "",
		"clients":       h.ConnectionCount(),
	})
}

// readLoop serves one client until it disconnects.
func (h *Hub) readLoop(ctx context.Context, c *conn) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}
		if !gjson.ValidBytes(data) {
			h.send(ctx, c, "error", map[string]string{"error": "invalid message"})
			continue
		}
		h.handle(ctx, c, gjson.ParseBytes(data))
	}
}

func (h *Hub) handle(ctx context.Context, c *conn, msg gjson.Result) {
	msgType := msg.Get("type").String()
	switch msgType {
	case "ping":
		h.send(ctx, c, "pong", nil)
		return
	case "subscribe_to_updates":
		h.send(ctx, c, "subscribed", map[string]string{"clientId": c.id})
		return
	case MsgAgentStatusUpdate, MsgAgentUpdate, MsgTaskBatch, MsgWorkflowStatus:
	default:
		h.send(ctx, c, "error", map[string]string{"error": "unsupported message type: " + msgType})
		return
	}

	if !c.writer {
		h.send(ctx, c, "unauthorized", map[string]string{"message": "read-only connection"})
		return
	}

	data := msg.Get("data")
	if !data.Exists() {
		data = msg.Get("payload")
	}
	// A report is applied in full even if the client drops mid-way.
	wctx := context.WithoutCancel(ctx)

	var err error
	switch msgType {
	case MsgAgentStatusUpdate:
		_, err = h.inbound.AgentStatusUpdate(wctx, data)
	case MsgAgentUpdate:
		_, err = h.inbound.AgentUpdate(wctx, data)
	case MsgWorkflowStatus:
		_, err = h.inbound.WorkflowStatus(wctx, data)
	case MsgTaskBatch:
		var p *service.BatchProgress
		if p, err = h.inbound.TaskBatch(wctx, data); err == nil {
			h.send(ctx, c, "n8n_batch_progress", p)
			if p.Completed {
				h.send(ctx, c, "n8n_batch_completed", map[string]any{
					"batch_id":      p.BatchID,
					"total_agents":  p.TotalAgents,
					"completion_ts": h.now().UTC().Format(time.RFC3339Nano),
				})
			}
			return
		}
	}
	if err != nil {
		slog.Warn("websocket report rejected", "client_id", c.id, "type", msgType, "error", err)
		h.send(ctx, c, "error", map[string]string{"type": msgType, "error": err.Error()})
		return
	}
	h.send(ctx, c, "ack", map[string]string{"type": msgType})
}

func (h *Hub) heartbeat(ctx context.Context, c *conn) {
	t := time.NewTicker(heartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Ping(pingCtx)
			cancel()
			if err != nil {
				slog.Debug("websocket heartbeat failed", "client_id", c.id, "error", err)
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) send(ctx context.Context, c *conn, msgType string, payload any) {
	data, err := encode(msgType, payload)
	if err != nil {
		slog.Error("websocket marshal failed", "type", msgType, "error", err)
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := c.ws.Write(wctx, websocket.MessageText, data); err != nil {
		slog.Debug("websocket write failed", "client_id", c.id, "error", err)
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	if msg.TS == "" {
		msg.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		err := c.ws.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Debug("websocket write failed", "client_id", c.id, "error", err)
			h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()

	for c := range conns {
		c.cancel()
		_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "client_id", c.id)
	}
}

func encode(msgType string, payload any) ([]byte, error) {
	msg := Message{Type: msgType, TS: time.Now().UTC().Format(time.RFC3339Nano)}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
