package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/agentbridge/internal/adapter/postgres"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/bridge"
	"github.com/Strob0t/agentbridge/internal/domain/record"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

func TestStore_InsertMemoryAndDecision(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m := &record.Memory{
		AgentID:     "agent-" + uuid.NewString()[:8],
		Goal:        "design button",
		Prompt:      "You are a frontend agent.",
		Response:    "1) Analysis",
		Context:     json.RawMessage(`{"page":"home"}`),
		Confidence:  0.61,
		ActionTaken: record.MemoryActionTaken,
		Outcome:     record.MemoryOutcome,
	}
	if err := store.InsertMemory(ctx, m); err != nil {
		t.Fatalf("InsertMemory: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at populated, got %+v", m)
	}

	d := &record.Decision{
		DecisionType:    "frontend_task",
		Context:         json.RawMessage(`null`),
		Decision:        record.DecisionPayload{Response: "ok", Confidence: 0.61, AgentType: "frontend"},
		ConfidenceScore: 0.61,
	}
	if err := store.InsertDecision(ctx, d); err != nil {
		t.Fatalf("InsertDecision: %v", err)
	}
	if d.ID == "" {
		t.Fatal("expected decision id populated")
	}
}

func TestStore_ActiveAgentsPagination(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, before, err := store.ListActiveAgents(ctx, bridge.Page{Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("ListActiveAgents: %v", err)
	}

	now := time.Now().Add(time.Hour)
	rows := []record.StatusLog{
		{AgentID: "pg-a", AgentType: "n8n", Status: record.StatusActive, Timestamp: now},
		{AgentID: "pg-b", AgentType: "n8n", Status: record.StatusActive, Timestamp: now.Add(time.Second)},
		{AgentID: "pg-c", AgentType: "n8n", Status: record.StatusProcessing, Timestamp: now},
	}
	if err := store.InsertStatusLogs(ctx, rows); err != nil {
		t.Fatalf("InsertStatusLogs: %v", err)
	}
	for _, r := range rows {
		if r.ID == "" {
			t.Fatalf("expected id populated for %s", r.AgentID)
		}
	}

	got, total, err := store.ListActiveAgents(ctx, bridge.Page{Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("ListActiveAgents: %v", err)
	}
	if total != before+2 {
		t.Fatalf("expected total %d, got %d", before+2, total)
	}
	if len(got) != 1 || got[0].AgentID != "pg-b" {
		t.Fatalf("expected newest active row pg-b first, got %+v", got)
	}
}

func TestStore_PendingTasksOrdering(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	tasks := []record.AutonomousTask{
		{TaskID: "low-" + suffix, TaskName: "low", AgentType: "testing", Portal: "autonomous", Priority: 1000, Status: record.TaskStatusPending, EstimatedDurationMinutes: 60},
		{TaskID: "high-" + suffix, TaskName: "high", AgentType: "testing", Portal: "autonomous", Priority: 1001, Status: record.TaskStatusPending, EstimatedDurationMinutes: 60, Dependencies: []string{"a1"}},
	}
	if err := store.InsertAutonomousTasks(ctx, tasks); err != nil {
		t.Fatalf("InsertAutonomousTasks: %v", err)
	}

	got, _, err := store.ListPendingTasks(ctx, bridge.Page{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(got) != 2 || got[0].TaskID != "high-"+suffix || got[1].TaskID != "low-"+suffix {
		t.Fatalf("expected priority-desc order, got %+v", got)
	}
	if len(got[0].Dependencies) != 1 || got[0].Dependencies[0] != "a1" {
		t.Fatalf("expected dependencies round trip, got %v", got[0].Dependencies)
	}
}

func TestStore_Ledger(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id := "batch-" + uuid.NewString()
	has, err := store.HasBatch(ctx, id)
	if err != nil || has {
		t.Fatalf("expected unseen batch, has=%v err=%v", has, err)
	}

	if err := store.MarkBatch(ctx, id); err != nil {
		t.Fatalf("MarkBatch: %v", err)
	}
	has, err = store.HasBatch(ctx, id)
	if err != nil || !has {
		t.Fatalf("expected marked batch, has=%v err=%v", has, err)
	}

	if err := store.MarkBatch(ctx, id); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate mark, got %v", err)
	}
}
