package bridge

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Strob0t/agentbridge/internal/domain"
)

// DefaultAgentType is recorded for batch rows that carry no taskType.
const DefaultAgentType = "n8n"

// AgentUpdate is one entry of an agent_batch_update delivery.
type AgentUpdate struct {
	AgentID  string `json:"agentId"`
	TaskType string `json:"taskType,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// BatchUpdate is the data payload of agent_batch_update.
type BatchUpdate struct {
	BatchID string        `json:"batchId"`
	Agents  []AgentUpdate `json:"agents"`
}

// ParseBatchUpdate extracts a BatchUpdate from an action's data object.
// batchId and a non-empty agents array are required; entries without an
// agentId or status are rejected.
func ParseBatchUpdate(data gjson.Result) (BatchUpdate, error) {
	b := BatchUpdate{BatchID: strings.TrimSpace(data.Get("batchId").String())}
	if b.BatchID == "" {
		return BatchUpdate{}, domain.Invalid("data.batchId is required")
	}
	agents := data.Get("agents")
	if !agents.IsArray() || len(agents.Array()) == 0 {
		return BatchUpdate{}, domain.Invalid("data.agents must be a non-empty array")
	}
	for i, a := range agents.Array() {
		u := AgentUpdate{
			AgentID:  strings.TrimSpace(a.Get("agentId").String()),
			TaskType: strings.TrimSpace(a.Get("taskType").String()),
			Status:   strings.TrimSpace(a.Get("status").String()),
			Message:  a.Get("message").String(),
		}
		if u.AgentID == "" {
			return BatchUpdate{}, domain.Invalid("data.agents[%d].agentId is required", i)
		}
		if u.Status == "" {
			return BatchUpdate{}, domain.Invalid("data.agents[%d].status is required", i)
		}
		if u.TaskType == "" {
			u.TaskType = DefaultAgentType
		}
		b.Agents = append(b.Agents, u)
	}
	return b, nil
}

// ParseTargetAgents reads the optional targetAgents list of
// trigger_autonomous_cycle. Non-string entries are skipped.
func ParseTargetAgents(data gjson.Result) []string {
	var out []string
	for _, v := range data.Get("targetAgents").Array() {
		if v.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(v.Str); s != "" {
			out = append(out, s)
		}
	}
	return out
}
