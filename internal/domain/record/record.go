// Package record defines the append-only rows written to the backing store.
package record

import (
	"encoding/json"
	"time"
)

// Status values written to the status log.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusActive     = "active"
)

// Fixed tags attached to every memory row.
const (
	MemoryActionTaken = "ai_task_processing"
	MemoryOutcome     = "completed"
)

// TaskStatusPending is the initial status of an autonomous task.
const TaskStatusPending = "pending"

// Memory is one row per processed task.
type Memory struct {
	ID          string          `json:"id,omitempty"`
	AgentID     string          `json:"agent_id"`
	Goal        string          `json:"goal"`
	Prompt      string          `json:"prompt"`
	Response    string          `json:"response"`
	Context     json.RawMessage `json:"context"`
	Confidence  float64         `json:"confidence"`
	ActionTaken string          `json:"action_taken"`
	Outcome     string          `json:"outcome"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DecisionPayload is the decision column of a Decision row.
type DecisionPayload struct {
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
	AgentType  string  `json:"agent_type"`
}

// Decision is one row per processed task. Implemented starts false and is
// only flipped by an external reviewer.
type Decision struct {
	ID              string          `json:"id,omitempty"`
	DecisionType    string          `json:"decision_type"`
	Context         json.RawMessage `json:"context"`
	Decision        DecisionPayload `json:"decision"`
	ConfidenceScore float64         `json:"confidence_score"`
	Implemented     bool            `json:"implemented"`
	CreatedAt       time.Time       `json:"created_at"`
}

// StatusLog is an audit trail row for an agent lifecycle event.
type StatusLog struct {
	ID             string    `json:"id,omitempty"`
	AgentID        string    `json:"agent_id"`
	AgentType      string    `json:"agent_type"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	ResponseTimeMS *int64    `json:"response_time,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AutonomousTask is a follow-on task consumed by an external scheduler.
type AutonomousTask struct {
	ID                       string          `json:"id,omitempty"`
	TaskID                   string          `json:"task_id"`
	TaskName                 string          `json:"task_name"`
	AgentType                string          `json:"agent_type"`
	Portal                   string          `json:"portal"`
	Priority                 int             `json:"priority"`
	Status                   string          `json:"status"`
	Description              string          `json:"description"`
	EstimatedDurationMinutes int             `json:"estimated_duration_minutes"`
	Dependencies             []string        `json:"dependencies,omitempty"`
	Result                   json.RawMessage `json:"result,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
}

// BatchMarker records that a batch id has been applied.
type BatchMarker struct {
	BatchID   string    `json:"batch_id"`
	CreatedAt time.Time `json:"created_at"`
}
