package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/agentbridge/internal/domain/agent"
	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/port/database"
)

// Escalation thresholds.
const (
	EscalationMinPriority   = 8
	EscalationMinConfidence = 0.8

	escalationPortal   = "autonomous"
	escalationDuration = 60
	escalationSource   = "agent-task-router"
)

// ShouldEscalate reports whether a task warrants an autonomous follow-up.
func ShouldEscalate(priority int, confidence float64) bool {
	return priority >= EscalationMinPriority && confidence > EscalationMinConfidence
}

// EscalationPolicy inserts the autonomous follow-up task for a routed
// request when ShouldEscalate holds.
type EscalationPolicy struct {
	store    database.Store
	notifier *StatusNotifier
	now      func() time.Time
	newID    func() string
}

// NewEscalationPolicy creates an EscalationPolicy.
func NewEscalationPolicy(store database.Store, notifier *StatusNotifier) *EscalationPolicy {
	return &EscalationPolicy{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		newID:    func() string { return uuid.NewString()[:8] },
	}
}

type escalationResult struct {
	RequestID  string  `json:"request_id"`
	Source     string  `json:"source"`
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
}

// Apply evaluates the policy and, when it fires, inserts the follow-up
// task. The return value is whether escalation was attempted; an insert
// failure is logged and does not change it.
func (p *EscalationPolicy) Apply(ctx context.Context, requestID string, req *agent.TaskRequest, response string, confidence float64) bool {
	if !ShouldEscalate(req.Priority, confidence) {
		return false
	}

	now := p.now()
	result, _ := json.Marshal(escalationResult{
		RequestID:  requestID,
		Source:     escalationSource,
		Response:   response,
		Confidence: confidence,
	})
	task := record.AutonomousTask{
		TaskID:                   fmt.Sprintf("auto-%s-%d-%s", req.AgentID, now.UnixMilli(), p.newID()),
		TaskName:                 req.Task,
		AgentType:                req.AgentType,
		Portal:                   escalationPortal,
		Priority:                 req.Priority,
		Status:                   record.TaskStatusPending,
		Description:              fmt.Sprintf("Autonomous follow-up for %s task (confidence %.2f)", req.AgentType, confidence),
		EstimatedDurationMinutes: escalationDuration,
		Result:                   result,
		CreatedAt:                now,
	}

	tasks := []record.AutonomousTask{task}
	if err := p.store.InsertAutonomousTasks(ctx, tasks); err != nil {
		slog.Warn("autonomous task insert failed",
			"task_id", task.TaskID, "agent_id", req.AgentID, "error", err)
		return true
	}

	slog.Info("autonomous task created", "task_id", task.TaskID, "agent_id", req.AgentID, "confidence", confidence)
	p.notifier.AutonomousCreated(ctx, &tasks[0], escalationSource)
	return true
}
