package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/agentbridge/internal/adapter/litellm"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/agent"
	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/logger"
	"github.com/Strob0t/agentbridge/internal/port/completion"
)

func newTestRouter(store *recordStore, provider completion.Provider) *TaskRouterService {
	notifier := NewStatusNotifier(nil, &recordingHub{})
	return NewTaskRouterService(
		provider,
		NewPersistenceWriter(store, notifier, nil),
		NewEscalationPolicy(store, notifier),
		nil,
		"test-model",
	)
}

func TestRouteMockCompletion(t *testing.T) {
	store := &recordStore{}
	provider := &stubProvider{result: completion.Result{Text: litellm.MockResponse, IsMock: true}}
	svc := newTestRouter(store, provider)

	req := &agent.TaskRequest{AgentID: "a1", AgentType: "research", Task: "compare queues", Priority: 3}
	res, err := svc.Route(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Mock || res.Response != litellm.MockResponse {
		t.Errorf("expected mock response, got %+v", res)
	}
	if res.Confidence < 0.5 || res.Confidence >= 0.6 {
		t.Errorf("expected low confidence for mock text, got %v", res.Confidence)
	}
	if res.ResponseMS < 500 {
		t.Errorf("expected floored response time, got %d", res.ResponseMS)
	}
	if res.AutonomousExecution {
		t.Error("expected no escalation at priority 3")
	}
	if res.RequestID == "" {
		t.Error("expected generated request id")
	}
	if svc.CompletionConfigured() {
		t.Error("expected completion not configured")
	}

	if n := len(store.statusesWith(record.StatusProcessing)); n != 1 {
		t.Errorf("expected 1 processing row, got %d", n)
	}
	if n := len(store.statusesWith(record.StatusCompleted)); n != 1 {
		t.Errorf("expected 1 completed row, got %d", n)
	}
	if len(store.memories) != 1 || len(store.decisions) != 1 {
		t.Errorf("expected memory and decision rows")
	}
	if len(store.tasks) != 0 {
		t.Errorf("expected no autonomous tasks")
	}
}

func TestRouteUsesContextRequestID(t *testing.T) {
	store := &recordStore{}
	svc := newTestRouter(store, &stubProvider{result: completion.Result{Text: "ok"}})

	ctx := logger.WithRequestID(context.Background(), "req-42")
	res, err := svc.Route(ctx, &agent.TaskRequest{AgentID: "a1", AgentType: "backend", Task: "x", Priority: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RequestID != "req-42" {
		t.Fatalf("expected req-42, got %q", res.RequestID)
	}
}

func TestRouteEscalatesHighPriorityConfidentTask(t *testing.T) {
	store := &recordStore{}
	text := "1) Analysis\n" + strings.Repeat("detail ", 800)
	svc := newTestRouter(store, &stubProvider{result: completion.Result{Text: text}})

	req := &agent.TaskRequest{AgentID: "a9", AgentType: "deployment", Task: "roll out", Priority: 9}
	res, err := svc.Route(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence <= EscalationMinConfidence {
		t.Fatalf("expected confidence above threshold, got %v", res.Confidence)
	}
	if !res.AutonomousExecution {
		t.Fatal("expected autonomous execution")
	}
	if len(store.tasks) != 1 || !strings.HasPrefix(store.tasks[0].TaskID, "auto-a9-") {
		t.Fatalf("unexpected autonomous tasks %+v", store.tasks)
	}
}

func TestRouteUpstreamFailure(t *testing.T) {
	store := &recordStore{}
	upstream := &domain.UpstreamError{StatusCode: 401, Message: "invalid api key"}
	svc := newTestRouter(store, &stubProvider{err: upstream})

	req := &agent.TaskRequest{AgentID: "a1", AgentType: "backend", Task: "x", Priority: 9}
	res, err := svc.Route(context.Background(), req)
	if res != nil {
		t.Fatal("expected nil result")
	}
	if domain.KindOf(err) != domain.KindUpstreamFailure || !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("expected upstream message in error, got %q", err.Error())
	}

	rows := store.statusesWith(record.StatusError)
	if len(rows) != 1 || !strings.Contains(rows[0].Message, "401") {
		t.Fatalf("expected one error row naming the status, got %+v", rows)
	}
	if len(store.statusesWith(record.StatusCompleted)) != 0 || len(store.memories) != 0 || len(store.tasks) != 0 {
		t.Fatal("expected no completion writes after upstream failure")
	}
}

func TestRoutePersistenceFailureStillSucceeds(t *testing.T) {
	store := &recordStore{memoryErr: errStoreDown, decisionErr: errStoreDown, statusErr: errStoreDown}
	svc := newTestRouter(store, &stubProvider{result: completion.Result{Text: "fine"}})

	res, err := svc.Route(context.Background(), &agent.TaskRequest{AgentID: "a1", AgentType: "testing", Task: "x", Priority: 1})
	if err != nil {
		t.Fatalf("expected success despite store failures, got %v", err)
	}
	if len(res.Persistence.Failed()) != 3 {
		t.Fatalf("expected three failed targets, got %+v", res.Persistence.Results)
	}
}

// ctxStore rejects writes on a done context, as pgx does.
type ctxStore struct {
	*recordStore
}

func (s ctxStore) InsertStatusLog(ctx context.Context, l *record.StatusLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.recordStore.InsertStatusLog(ctx, l)
}

func (s ctxStore) InsertMemory(ctx context.Context, m *record.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.recordStore.InsertMemory(ctx, m)
}

func (s ctxStore) InsertDecision(ctx context.Context, d *record.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.recordStore.InsertDecision(ctx, d)
}

// hangupProvider simulates the caller disconnecting during the completion.
type hangupProvider struct {
	cancel context.CancelFunc
	result completion.Result
	err    error
}

func (p *hangupProvider) Complete(context.Context, string, string) (completion.Result, error) {
	p.cancel()
	return p.result, p.err
}

func (p *hangupProvider) Configured() bool { return true }

func TestRouteSurvivesCallerHangup(t *testing.T) {
	tests := []struct {
		name     string
		provider func(context.CancelFunc) *hangupProvider
		terminal string
		wantErr  bool
	}{
		{
			name: "completion fails",
			provider: func(c context.CancelFunc) *hangupProvider {
				return &hangupProvider{cancel: c, err: context.Canceled}
			},
			terminal: record.StatusError,
			wantErr:  true,
		},
		{
			name: "completion succeeds",
			provider: func(c context.CancelFunc) *hangupProvider {
				return &hangupProvider{cancel: c, result: completion.Result{Text: "done"}}
			},
			terminal: record.StatusCompleted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &recordStore{}
			store := ctxStore{inner}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			notifier := NewStatusNotifier(nil, &recordingHub{})
			svc := NewTaskRouterService(tt.provider(cancel), NewPersistenceWriter(store, notifier, nil),
				NewEscalationPolicy(store, notifier), nil, "test-model")

			_, err := svc.Route(ctx, &agent.TaskRequest{AgentID: "a1", AgentType: "backend", Task: "x", Priority: 1})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if n := len(inner.statusesWith(record.StatusProcessing)); n != 1 {
				t.Errorf("processing rows = %d, want 1", n)
			}
			if n := len(inner.statusesWith(tt.terminal)); n != 1 {
				t.Errorf("%s rows = %d, want 1", tt.terminal, n)
			}
			if !tt.wantErr && (len(inner.memories) != 1 || len(inner.decisions) != 1) {
				t.Errorf("memories=%d decisions=%d, want 1 each", len(inner.memories), len(inner.decisions))
			}
		})
	}
}
