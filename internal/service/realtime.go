package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/bridge"
	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/port/broadcast"
	"github.com/Strob0t/agentbridge/internal/port/database"
)

// Memory tags for agent reports arriving over the realtime feed.
const (
	realtimeActionTaken = "n8n_agent_update"

	completedConfidence  = 0.95
	inProgressConfidence = 0.75
)

// BatchProgress is reported back to the sender of an n8n_task_batch.
type BatchProgress struct {
	BatchID            string `json:"batch_id"`
	TotalAgents        int    `json:"total_agents"`
	CompletedAgents    int    `json:"completed_agents"`
	AgentsUpdated      int    `json:"agents_updated"`
	ProgressPercentage int    `json:"progress_percentage"`
	Status             string `json:"status"`
	Completed          bool   `json:"-"`
}

// WorkflowStatus is the broadcast form of an n8n_workflow_status report.
type WorkflowStatus struct {
	WorkflowID         string `json:"workflow_id"`
	ExecutionID        string `json:"execution_id,omitempty"`
	Status             string `json:"status"`
	StartTime          string `json:"start_time,omitempty"`
	EndTime            string `json:"end_time,omitempty"`
	TotalTasks         int    `json:"total_tasks"`
	CompletedTasks     int    `json:"completed_tasks"`
	ProgressPercentage int    `json:"progress_percentage"`
}

// RealtimeService handles reports pushed by writer clients of the realtime
// feed. Status rows go through the PersistenceWriter so they are announced
// like any other status row.
type RealtimeService struct {
	store    database.Store
	writer   *PersistenceWriter
	notifier *StatusNotifier
	now      func() time.Time
}

// NewRealtimeService creates a RealtimeService.
func NewRealtimeService(store database.Store, writer *PersistenceWriter, notifier *StatusNotifier) *RealtimeService {
	return &RealtimeService{store: store, writer: writer, notifier: notifier, now: time.Now}
}

// AgentStatusUpdate records a status row reported directly by an agent.
func (s *RealtimeService) AgentStatusUpdate(ctx context.Context, data gjson.Result) (*record.StatusLog, error) {
	l := &record.StatusLog{
		AgentID:   strings.TrimSpace(data.Get("agent_id").String()),
		AgentType: strings.TrimSpace(data.Get("agent_type").String()),
		Status:    strings.TrimSpace(data.Get("status").String()),
		Message:   data.Get("message").String(),
	}
	switch {
	case l.AgentID == "":
		return nil, domain.Invalid("data.agent_id is required")
	case l.AgentType == "":
		return nil, domain.Invalid("data.agent_type is required")
	case l.Status == "":
		return nil, domain.Invalid("data.status is required")
	}
	if rt := data.Get("response_time"); rt.Type == gjson.Number && rt.Num >= 0 {
		ms := int64(rt.Num)
		l.ResponseTimeMS = &ms
	}
	if err := s.writer.WriteStatus(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// AgentUpdate records one n8n agent report as a status row plus a memory
// row. A memory failure is logged and does not fail the update.
func (s *RealtimeService) AgentUpdate(ctx context.Context, data gjson.Result) (*record.StatusLog, error) {
	agentID := strings.TrimSpace(data.Get("agentId").String())
	status := strings.TrimSpace(data.Get("status").String())
	if agentID == "" {
		return nil, domain.Invalid("data.agentId is required")
	}
	if status == "" {
		return nil, domain.Invalid("data.status is required")
	}
	taskType := strings.TrimSpace(data.Get("taskType").String())
	if taskType == "" {
		taskType = bridge.DefaultAgentType
	}
	detail := data.Get("data")
	message := detail.Get("message").String()
	if message == "" {
		message = taskType + " " + status
	}

	l := &record.StatusLog{
		AgentID:        agentID,
		AgentType:      taskType,
		Status:         status,
		Message:        message,
		ResponseTimeMS: durationMS(detail.Get("duration")),
	}
	if err := s.writer.WriteStatus(ctx, l); err != nil {
		return nil, err
	}

	confidence := inProgressConfidence
	if status == record.StatusCompleted {
		confidence = completedConfidence
	}
	var detailRaw json.RawMessage
	if detail.IsObject() {
		detailRaw = json.RawMessage(detail.Raw)
	}
	m := &record.Memory{
		AgentID:     agentID,
		Goal:        fmt.Sprintf("Complete %s automation", taskType),
		Prompt:      fmt.Sprintf("Execute %s task", taskType),
		Response:    message,
		Context:     detailRaw,
		Confidence:  confidence,
		ActionTaken: realtimeActionTaken,
		Outcome:     status,
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertMemory(ctx, m); err != nil {
		s.writer.fail(ctx, TargetMemory, agentID, err)
	}

	s.notifier.Local(ctx, broadcast.EventN8NAgentUpdated, map[string]any{
		"agent_id":      agentID,
		"agent_type":    taskType,
		"status":        status,
		"message":       message,
		"response_time": l.ResponseTimeMS,
		"n8n_data":      detailRaw,
	})
	return l, nil
}

// TaskBatch applies every agent entry of an n8n_task_batch through
// AgentUpdate. Invalid or failed entries are skipped and not counted.
func (s *RealtimeService) TaskBatch(ctx context.Context, data gjson.Result) (*BatchProgress, error) {
	batchID := strings.TrimSpace(data.Get("batchId").String())
	if batchID == "" {
		return nil, domain.Invalid("data.batchId is required")
	}
	agents := data.Get("agents").Array()

	p := &BatchProgress{
		BatchID:         batchID,
		TotalAgents:     len(agents),
		CompletedAgents: int(data.Get("completedAgents").Int()),
		Status:          data.Get("batchStatus").String(),
	}
	if t := data.Get("totalAgents"); t.Type == gjson.Number {
		p.TotalAgents = int(t.Int())
	}
	for _, a := range agents {
		if _, err := s.AgentUpdate(ctx, a); err != nil {
			continue
		}
		p.AgentsUpdated++
	}
	p.ProgressPercentage = percent(p.CompletedAgents, p.TotalAgents)
	p.Completed = p.Status == record.StatusCompleted || p.CompletedAgents >= p.TotalAgents
	return p, nil
}

// WorkflowStatus announces a workflow execution report to local clients.
func (s *RealtimeService) WorkflowStatus(ctx context.Context, data gjson.Result) (*WorkflowStatus, error) {
	ws := &WorkflowStatus{
		WorkflowID:     strings.TrimSpace(data.Get("workflowId").String()),
		ExecutionID:    data.Get("executionId").String(),
		Status:         strings.TrimSpace(data.Get("status").String()),
		StartTime:      data.Get("startTime").String(),
		EndTime:        data.Get("endTime").String(),
		TotalTasks:     int(data.Get("totalTasks").Int()),
		CompletedTasks: int(data.Get("completedTasks").Int()),
	}
	if ws.WorkflowID == "" {
		return nil, domain.Invalid("data.workflowId is required")
	}
	if ws.Status == "" {
		return nil, domain.Invalid("data.status is required")
	}
	ws.ProgressPercentage = percent(ws.CompletedTasks, ws.TotalTasks)
	s.notifier.Local(ctx, broadcast.EventWorkflowStatus, ws)
	return ws, nil
}

// durationMS reads an n8n duration such as 12, "12" or "12s" as whole
// seconds.
func durationMS(v gjson.Result) *int64 {
	var digits strings.Builder
	for _, r := range v.String() {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return nil
	}
	ms := n * 1000
	return &ms
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
