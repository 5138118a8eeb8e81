package messagequeue

// AgentStatusPayload is the schema for agents.status messages.
type AgentStatusPayload struct {
	AgentID        string `json:"agent_id"`
	AgentType      string `json:"agent_type"`
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	ResponseTimeMS *int64 `json:"response_time,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// AutonomousCreatedPayload is the schema for tasks.autonomous.created messages.
type AutonomousCreatedPayload struct {
	TaskID    string `json:"task_id"`
	TaskName  string `json:"task_name"`
	AgentType string `json:"agent_type"`
	Priority  int    `json:"priority"`
	Source    string `json:"source"`
}
