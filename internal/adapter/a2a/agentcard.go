// Package a2a publishes the agent bridge's A2A agent card.
package a2a

import (
	"fmt"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/Strob0t/agentbridge/internal/domain/agent"
)

// WellKnownPath is where A2A clients discover the agent card.
const WellKnownPath = "/.well-known/agent-card.json"

// TaskRouterPath is the endpoint advertised in the card.
const TaskRouterPath = "/api/v1/agent-task-router"

// BuildAgentCard returns the agent card with one skill per supported agent
// type.
func BuildAgentCard(baseURL, version string) *a2a.AgentCard {
	skills := make([]a2a.AgentSkill, 0, len(agent.KnownTypes))
	for _, t := range agent.KnownTypes {
		skills = append(skills, skillFor(t))
	}

	return &a2a.AgentCard{
		Name:               "agentbridge",
		Description:        "Routes agent tasks to specialised prompts, scores the completion and escalates confident high-priority work",
		URL:                strings.TrimRight(baseURL, "/") + TaskRouterPath,
		Version:            version,
		DefaultInputModes:  []string{"application/json"},
		DefaultOutputModes: []string{"application/json"},
		Capabilities:       a2a.AgentCapabilities{},
		Skills:             skills,
	}
}

func skillFor(t agent.Type) a2a.AgentSkill {
	name := t.String()
	return a2a.AgentSkill{
		ID:          "route-" + name,
		Name:        strings.ToUpper(name[:1]) + name[1:] + " agent",
		Description: fmt.Sprintf("Plan a %s task: analysis, approach, implementation steps, risks, success metrics and next steps", name),
		Tags:        []string{name, "agent-task-router"},
		InputModes:  []string{"application/json"},
		OutputModes: []string{"application/json"},
	}
}
