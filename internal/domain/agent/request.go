package agent

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Strob0t/agentbridge/internal/domain"
)

// Priority bounds for inbound tasks.
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = MinPriority
)

// TaskRequest is a normalized inbound agent task.
type TaskRequest struct {
	AgentID   string          `json:"agentId"`
	AgentType string          `json:"agentType"`
	Task      string          `json:"task"`
	Context   json.RawMessage `json:"context"`
	Priority  int             `json:"priority"`
}

// Type returns the parsed agent type of the request.
func (r *TaskRequest) Type() Type {
	return ParseType(r.AgentType)
}

// ParseTaskRequest validates and normalizes a raw JSON task request.
// Errors are *domain.Error of kind KindInvalidRequest naming the first
// offending field.
func ParseTaskRequest(raw []byte) (TaskRequest, error) {
	if !gjson.ValidBytes(raw) {
		return TaskRequest{}, domain.Invalid("request body must be a JSON object")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return TaskRequest{}, domain.Invalid("request body must be a JSON object")
	}

	req := TaskRequest{
		AgentID:   trimmedString(root.Get("agentId")),
		AgentType: trimmedString(root.Get("agentType")),
		Task:      trimmedString(root.Get("task")),
		Priority:  ClampPriority(root.Get("priority")),
		Context:   json.RawMessage("null"),
	}
	if c := root.Get("context"); c.Exists() {
		req.Context = json.RawMessage(c.Raw)
	}

	switch {
	case req.AgentID == "":
		return TaskRequest{}, domain.Invalid("agentId is required")
	case req.AgentType == "":
		return TaskRequest{}, domain.Invalid("agentType is required")
	case req.Task == "":
		return TaskRequest{}, domain.Invalid("task is required")
	}
	return req, nil
}

// ClampPriority coerces a JSON value into [MinPriority, MaxPriority].
// Absent, non-numeric and non-finite values yield DefaultPriority.
func ClampPriority(v gjson.Result) int {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return DefaultPriority
		}
		f = parsed
	default:
		return DefaultPriority
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultPriority
	}
	n := math.Trunc(f)
	if n < MinPriority {
		return MinPriority
	}
	if n > MaxPriority {
		return MaxPriority
	}
	return int(n)
}

func trimmedString(v gjson.Result) string {
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(v.String())
}
