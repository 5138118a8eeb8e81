package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Strob0t/agentbridge/internal/adapter/otel"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/bridge"
	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/port/broadcast"
	"github.com/Strob0t/agentbridge/internal/port/database"
	"github.com/Strob0t/agentbridge/internal/port/ledger"
)

// Identity used for rows the bridge writes on its own behalf.
const (
	BridgeAgentID       = "n8n-bridge"
	ConnectionTestAgent = "n8n-connection-test"

	connectionTestMessage = "n8n connection test"
)

// cycleTask describes one task of an autonomous cycle.
type cycleTask struct {
	kind        string
	name        string
	description string
	priority    int
	minutes     int
}

var cycleTasks = []cycleTask{
	{"monitoring", "System health monitoring", "Check agent health and error rates across portals", 5, 30},
	{"optimization", "Performance optimization", "Review slow agents and tune task distribution", 4, 45},
	{"testing", "Regression testing", "Run the automated regression suite against active portals", 3, 60},
}

// BridgeService dispatches integration bridge actions.
type BridgeService struct {
	store    database.Store
	ledger   ledger.Ledger
	notifier *StatusNotifier
	metrics  *otel.Metrics
	version  string
	now      func() time.Time
	newID    func() string
}

// NewBridgeService creates a BridgeService. metrics may be nil.
func NewBridgeService(store database.Store, l ledger.Ledger, notifier *StatusNotifier, metrics *otel.Metrics, version string) *BridgeService {
	return &BridgeService{
		store:    store,
		ledger:   l,
		notifier: notifier,
		metrics:  metrics,
		version:  version,
		now:      time.Now,
		newID:    func() string { return uuid.NewString()[:8] },
	}
}

// Dispatch runs one action and returns its JSON response body, stamped with
// success and action. Caller errors are *domain.Error (invalid request or
// unknown action); anything else is unexpected and gets a best-effort error
// row in the status log.
func (s *BridgeService) Dispatch(ctx context.Context, req bridge.Request) ([]byte, error) {
	// Batch rows and their ledger mark must not be split by a caller hangup.
	ctx = context.WithoutCancel(ctx)
	ctx, span := otel.StartActionSpan(ctx, req.Name)

	payload, err := s.dispatch(ctx, req)

	var body []byte
	if err == nil {
		body, err = stamp(payload, req.Action.String())
	}
	otel.EndSpan(span, err)
	if s.metrics != nil {
		s.metrics.RecordAction(ctx, req.Action.String(), err == nil)
	}

	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			s.audit(ctx, req.Name, err)
		}
		return nil, err
	}
	return body, nil
}

func (s *BridgeService) dispatch(ctx context.Context, req bridge.Request) (any, error) {
	switch req.Action {
	case bridge.ActionGetPendingTasks:
		return s.pendingTasks(ctx, req.Data)
	case bridge.ActionGetActiveAgents:
		return s.activeAgents(ctx, req.Data)
	case bridge.ActionAgentBatchUpdate:
		return s.batchUpdate(ctx, req.Data)
	case bridge.ActionTriggerAutonomousCycle:
		return s.triggerCycle(ctx, req.Data)
	case bridge.ActionTestConnection:
		return s.testConnection(ctx)
	case bridge.ActionUnknown:
		return nil, domain.UnknownAction(req.Name)
	}
	return nil, domain.UnknownAction(req.Name)
}

type pendingTasksResponse struct {
	Tasks      []record.AutonomousTask `json:"tasks"`
	Pagination bridge.PageInfo         `json:"pagination"`
}

func (s *BridgeService) pendingTasks(ctx context.Context, data gjson.Result) (any, error) {
	page := bridge.ParsePage(data)
	tasks, total, err := s.store.ListPendingTasks(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("get pending tasks: %w", err)
	}
	return pendingTasksResponse{Tasks: tasks, Pagination: page.Info(total)}, nil
}

type activeAgentsResponse struct {
	Agents     []record.StatusLog `json:"agents"`
	Pagination bridge.PageInfo    `json:"pagination"`
}

func (s *BridgeService) activeAgents(ctx context.Context, data gjson.Result) (any, error) {
	page := bridge.ParsePage(data)
	agents, total, err := s.store.ListActiveAgents(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("get active agents: %w", err)
	}
	return activeAgentsResponse{Agents: agents, Pagination: page.Info(total)}, nil
}

type batchUpdateResponse struct {
	BatchID       string `json:"batchId"`
	AgentsUpdated int    `json:"agents_updated"`
	Duplicate     bool   `json:"duplicate"`
}

// batchUpdate applies a batch at most once per batch id: check the ledger,
// insert the rows, then mark. A crash between insert and mark lets a retry
// insert the rows again; a concurrent duplicate is caught by the mark.
func (s *BridgeService) batchUpdate(ctx context.Context, data gjson.Result) (any, error) {
	batch, err := bridge.ParseBatchUpdate(data)
	if err != nil {
		return nil, err
	}

	seen, err := s.ledger.HasBatch(ctx, batch.BatchID)
	if err != nil {
		return nil, fmt.Errorf("check batch %s: %w", batch.BatchID, err)
	}
	if seen {
		slog.Info("batch already processed", "batch_id", batch.BatchID)
		if s.metrics != nil {
			s.metrics.BatchesDeduplicated.Add(ctx, 1)
		}
		return batchUpdateResponse{BatchID: batch.BatchID, AgentsUpdated: 0, Duplicate: true}, nil
	}

	now := s.now()
	rows := make([]record.StatusLog, 0, len(batch.Agents))
	for _, a := range batch.Agents {
		rows = append(rows, record.StatusLog{
			AgentID:   a.AgentID,
			AgentType: a.TaskType,
			Status:    a.Status,
			Message:   a.Message,
			Timestamp: now,
		})
	}
	if err := s.store.InsertStatusLogs(ctx, rows); err != nil {
		return nil, fmt.Errorf("insert batch %s: %w", batch.BatchID, err)
	}

	if err := s.ledger.MarkBatch(ctx, batch.BatchID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			slog.Error("batch applied concurrently by another delivery",
				"batch_id", batch.BatchID, "rows", len(rows))
		} else {
			slog.Warn("batch mark failed", "batch_id", batch.BatchID, "error", err)
		}
	}

	for i := range rows {
		s.notifier.AgentStatus(ctx, &rows[i])
	}
	s.notifier.Local(ctx, broadcast.EventBatchProcessed, map[string]any{
		"batchId":        batch.BatchID,
		"agents_updated": len(rows),
	})

	return batchUpdateResponse{BatchID: batch.BatchID, AgentsUpdated: len(rows)}, nil
}

type cycleResponse struct {
	CycleID      string   `json:"cycleId"`
	TasksCreated int      `json:"tasks_created"`
	TaskIDs      []string `json:"task_ids"`
	TargetAgents []string `json:"target_agents"`
}

func (s *BridgeService) triggerCycle(ctx context.Context, data gjson.Result) (any, error) {
	targets := bridge.ParseTargetAgents(data)
	now := s.now()
	cycleID := fmt.Sprintf("cycle-%d-%s", now.UnixMilli(), s.newID())

	tasks := make([]record.AutonomousTask, 0, len(cycleTasks))
	ids := make([]string, 0, len(cycleTasks))
	for _, ct := range cycleTasks {
		id := cycleID + "-" + ct.kind
		ids = append(ids, id)
		tasks = append(tasks, record.AutonomousTask{
			TaskID:                   id,
			TaskName:                 ct.name,
			AgentType:                ct.kind,
			Portal:                   escalationPortal,
			Priority:                 ct.priority,
			Status:                   record.TaskStatusPending,
			Description:              ct.description,
			EstimatedDurationMinutes: ct.minutes,
			Dependencies:             targets,
			CreatedAt:                now,
		})
	}
	if err := s.store.InsertAutonomousTasks(ctx, tasks); err != nil {
		return nil, fmt.Errorf("trigger autonomous cycle: %w", err)
	}

	for i := range tasks {
		s.notifier.AutonomousCreated(ctx, &tasks[i], BridgeAgentID)
	}
	s.notifier.Local(ctx, broadcast.EventCycleTriggered, map[string]any{"cycleId": cycleID, "task_ids": ids})

	if targets == nil {
		targets = []string{}
	}
	return cycleResponse{CycleID: cycleID, TasksCreated: len(tasks), TaskIDs: ids, TargetAgents: targets}, nil
}

type connectionResponse struct {
	Message          string   `json:"message"`
	Status           string   `json:"status"`
	Version          string   `json:"version"`
	SupportedActions []string `json:"supported_actions"`
}

func (s *BridgeService) testConnection(ctx context.Context) (any, error) {
	row := &record.StatusLog{
		AgentID:   ConnectionTestAgent,
		AgentType: bridge.DefaultAgentType,
		Status:    record.StatusActive,
		Message:   connectionTestMessage,
		Timestamp: s.now(),
	}
	if err := s.store.InsertStatusLog(ctx, row); err != nil {
		return nil, fmt.Errorf("test connection: %w", err)
	}
	s.notifier.AgentStatus(ctx, row)

	return connectionResponse{
		Message:          "n8n bridge connection successful",
		Status:           "connected",
		Version:          s.version,
		SupportedActions: bridge.ActionNames(),
	}, nil
}

// audit writes a best-effort error row for an unexpected failure.
func (s *BridgeService) audit(ctx context.Context, action string, cause error) {
	slog.Error("bridge action failed", "action", action, "error", cause)
	row := &record.StatusLog{
		AgentID:   BridgeAgentID,
		AgentType: bridge.DefaultAgentType,
		Status:    record.StatusError,
		Message:   fmt.Sprintf("%s: %v", action, cause),
		Timestamp: s.now(),
	}
	if err := s.store.InsertStatusLog(ctx, row); err != nil {
		slog.Warn("bridge audit write failed", "action", action, "error", err)
	}
}

// stamp marshals payload and adds the success and action fields.
func stamp(payload any, action string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s response: %w", action, err)
	}
	if body, err = sjson.SetBytes(body, "success", true); err != nil {
		return nil, fmt.Errorf("stamp %s response: %w", action, err)
	}
	if body, err = sjson.SetBytes(body, "action", action); err != nil {
		return nil, fmt.Errorf("stamp %s response: %w", action, err)
	}
	return body, nil
}
