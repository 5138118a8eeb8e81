// Package bridge defines the workflow integration bridge actions and the
// lenient input coercion they share.
package bridge

// Action is the closed set of webhook actions. ActionUnknown is the explicit
// arm for anything the router does not recognise.
type Action int

const (
	ActionUnknown Action = iota
	ActionGetPendingTasks
	ActionGetActiveAgents
	ActionAgentBatchUpdate
	ActionTriggerAutonomousCycle
	ActionTestConnection
)

// Actions lists every supported action in display order.
var Actions = []Action{
	ActionGetPendingTasks,
	ActionGetActiveAgents,
	ActionAgentBatchUpdate,
	ActionTriggerAutonomousCycle,
	ActionTestConnection,
}

// ParseAction maps a wire action name to an Action. Matching is exact.
func ParseAction(name string) Action {
	switch name {
	case "get_pending_tasks":
		return ActionGetPendingTasks
	case "get_active_agents":
		return ActionGetActiveAgents
	case "agent_batch_update":
		return ActionAgentBatchUpdate
	case "trigger_autonomous_cycle":
		return ActionTriggerAutonomousCycle
	case "test_n8n_connection":
		return ActionTestConnection
	default:
		return ActionUnknown
	}
}

func (a Action) String() string {
	switch a {
	case ActionGetPendingTasks:
		return "get_pending_tasks"
	case ActionGetActiveAgents:
		return "get_active_agents"
	case ActionAgentBatchUpdate:
		return "agent_batch_update"
	case ActionTriggerAutonomousCycle:
		return "trigger_autonomous_cycle"
	case ActionTestConnection:
		return "test_n8n_connection"
	case ActionUnknown:
		return "unknown"
	}
	return "unknown"
}

// ActionNames returns the wire names of all supported actions.
func ActionNames() []string {
	names := make([]string, 0, len(Actions))
	for _, a := range Actions {
		names = append(names, a.String())
	}
	return names
}
