package service

import (
	"bytes"
	"embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/Strob0t/agentbridge/internal/domain/agent"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var userPromptTemplate = template.Must(template.ParseFS(templateFS, "templates/task_user.tmpl"))

// Prompt is a composed system/user prompt pair.
type Prompt struct {
	System string
	User   string
}

// Full is the prompt as stored in agent memory: system then user.
func (p Prompt) Full() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

type userPromptData struct {
	Task       string
	Context    string
	Priority   int
	FocusAreas []string
}

// ComposePrompt builds the prompt pair for a task. It is pure: identical
// inputs always produce byte-identical prompts, and unknown agent types fall
// back to a generic prompt.
func ComposePrompt(t agent.Type, task string, context json.RawMessage, priority int) Prompt {
	system, focus := promptProfile(t)

	var buf bytes.Buffer
	// The template is static and its data contains only strings and ints,
	// so execution cannot fail.
	_ = userPromptTemplate.Execute(&buf, userPromptData{
		Task:       task,
		Context:    formatContext(context),
		Priority:   priority,
		FocusAreas: focus,
	})
	return Prompt{System: system, User: buf.String()}
}

func promptProfile(t agent.Type) (system string, focus []string) {
	switch t {
	case agent.TypeResearch:
		return "You are an expert research agent. You gather evidence, compare options " +
				"and produce well-sourced, actionable recommendations.",
			[]string{"Market and competitor analysis", "Technology evaluation", "Data-driven recommendations", "Source reliability"}
	case agent.TypeFrontend:
		return "You are an expert frontend engineering agent. You design accessible, " +
				"responsive and maintainable user interfaces.",
			[]string{"Component architecture", "Accessibility", "Responsive layout", "Rendering performance"}
	case agent.TypeBackend:
		return "You are an expert backend engineering agent. You design reliable, secure " +
				"and scalable services and APIs.",
			[]string{"API design", "Security", "Scalability", "Error handling and observability"}
	case agent.TypeDatabase:
		return "You are an expert database agent. You design schemas, queries and " +
				"migrations that keep data correct and fast.",
			[]string{"Schema design", "Query performance", "Data integrity", "Migration safety"}
	case agent.TypeTesting:
		return "You are an expert quality assurance agent. You design test strategies " +
				"that catch regressions early.",
			[]string{"Test coverage", "Edge cases", "Automation", "Regression prevention"}
	case agent.TypeDeployment:
		return "You are an expert deployment and DevOps agent. You ship changes safely " +
				"and keep systems observable.",
			[]string{"CI/CD pipelines", "Rollback strategy", "Infrastructure as code", "Monitoring and alerting"}
	case agent.TypeUnknown:
		return genericSystemPrompt, genericFocus
	}
	return genericSystemPrompt, genericFocus
}

const genericSystemPrompt = "You are an AI agent. You analyse the task you are given and " +
	"produce a clear, practical plan."

var genericFocus = []string{"Requirements", "Quality", "Maintainability", "Delivery"}

// formatContext renders context as canonical JSON (RFC 8785) indented with
// two spaces. Scalars and unparsable input are emitted as-is.
func formatContext(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "null"
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return string(trimmed)
	}
	canon, err := jsoncanonicalizer.Transform(trimmed)
	if err != nil {
		return string(trimmed)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, canon, "", "  "); err != nil {
		return string(canon)
	}
	return strings.TrimSpace(out.String())
}
