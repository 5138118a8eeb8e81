package agent_test

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/agent"
)

func TestParseTaskRequestValid(t *testing.T) {
	raw := []byte(`{"agentId":"  a1 ","agentType":"frontend","task":" design button ","context":{"page":"home"},"priority":9}`)
	req, err := agent.ParseTaskRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.AgentID != "a1" {
		t.Fatalf("expected trimmed agentId a1, got %q", req.AgentID)
	}
	if req.Task != "design button" {
		t.Fatalf("expected trimmed task, got %q", req.Task)
	}
	if req.Priority != 9 {
		t.Fatalf("expected priority 9, got %d", req.Priority)
	}
	if string(req.Context) != `{"page":"home"}` {
		t.Fatalf("expected context passthrough, got %s", req.Context)
	}
	if req.Type() != agent.TypeFrontend {
		t.Fatalf("expected frontend type, got %s", req.Type())
	}
}

func TestParseTaskRequestMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing agentId", `{"agentType":"backend","task":"x"}`, "agentId is required"},
		{"blank agentId", `{"agentId":"   ","agentType":"backend","task":"x"}`, "agentId is required"},
		{"missing agentType", `{"agentId":"a","task":"x"}`, "agentType is required"},
		{"missing task", `{"agentId":"a","agentType":"backend"}`, "task is required"},
		{"null task", `{"agentId":"a","agentType":"backend","task":null}`, "task is required"},
		{"not an object", `[1,2,3]`, "request body must be a JSON object"},
		{"not json", `agentId=a`, "request body must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agent.ParseTaskRequest([]byte(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if err.Error() != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestParseTaskRequestCoercesNumericIDs(t *testing.T) {
	req, err := agent.ParseTaskRequest([]byte(`{"agentId":42,"agentType":"testing","task":"run suite"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.AgentID != "42" {
		t.Fatalf("expected agentId 42, got %q", req.AgentID)
	}
	if req.Priority != agent.DefaultPriority {
		t.Fatalf("expected default priority, got %d", req.Priority)
	}
	if string(req.Context) != "null" {
		t.Fatalf("expected null context, got %s", req.Context)
	}
}

func TestClampPriority(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`0`, 1},
		{`15`, 10},
		{`"abc"`, 1},
		{`"7"`, 7},
		{`5.9`, 5},
		{`-3`, 1},
		{`null`, 1},
		{`true`, 1},
		{`"1e400"`, 1},
		{`10`, 10},
	}
	for _, tt := range tests {
		got := agent.ClampPriority(gjson.Parse(tt.raw))
		if got != tt.want {
			t.Errorf("ClampPriority(%s) = %d, want %d", tt.raw, got, tt.want)
		}
	}

	if got := agent.ClampPriority(gjson.Get(`{}`, "priority")); got != 1 {
		t.Errorf("absent priority = %d, want 1", got)
	}
}

func TestParseType(t *testing.T) {
	if agent.ParseType("Backend") != agent.TypeBackend {
		t.Fatal("expected case-insensitive match for backend")
	}
	if agent.ParseType("philosophy") != agent.TypeUnknown {
		t.Fatal("expected unknown type for philosophy")
	}
	names := agent.TypeNames()
	if len(names) != 6 {
		t.Fatalf("expected 6 agent types, got %d", len(names))
	}
	for _, typ := range agent.KnownTypes {
		if agent.ParseType(typ.String()) != typ {
			t.Errorf("round trip failed for %s", typ)
		}
	}
}
