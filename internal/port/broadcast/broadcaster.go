// Package broadcast defines the port for pushing realtime agent events to
// connected dashboard clients.
package broadcast

import "context"

// Event types pushed to clients.
const (
	EventAgentStatus     = "agent_status_update"
	EventAutonomousTask  = "autonomous_task_created"
	EventBatchProcessed  = "n8n_batch_processed"
	EventCycleTriggered  = "autonomous_cycle_triggered"
	EventN8NAgentUpdated = "n8n_agent_updated"
	EventWorkflowStatus  = "n8n_workflow_status"
)

// Broadcaster sends realtime events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
