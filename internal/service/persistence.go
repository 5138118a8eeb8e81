package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/agentbridge/internal/adapter/otel"
	"github.com/Strob0t/agentbridge/internal/domain/agent"
	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/port/database"
)

// MinResponseTime is the floor applied to reported response times.
const MinResponseTime = 500 * time.Millisecond

// Persistence targets.
const (
	TargetMemory   = "memory"
	TargetDecision = "decision"
	TargetStatus   = "status"
)

// TargetResult is the outcome of one best-effort insert.
type TargetResult struct {
	Target string `json:"target"`
	OK     bool   `json:"ok"`
	Err    error  `json:"-"`
}

// WriteReport summarises a PersistenceWriter.Write call.
type WriteReport struct {
	ResponseMS int64
	Results    []TargetResult
}

// Failed returns the results that did not succeed.
func (r WriteReport) Failed() []TargetResult {
	var out []TargetResult
	for _, res := range r.Results {
		if !res.OK {
			out = append(out, res)
		}
	}
	return out
}

// WriteInput carries everything persisted for one routed task.
type WriteInput struct {
	Request    *agent.TaskRequest
	Prompt     Prompt
	Response   string
	Confidence float64
	Elapsed    time.Duration
}

// PersistenceWriter records a routed task across the memory, decision and
// status stores. Writes are advisory: failures are reported per target and
// logged, never returned as an error.
type PersistenceWriter struct {
	store    database.Store
	notifier *StatusNotifier
	metrics  *otel.Metrics
	now      func() time.Time
}

// NewPersistenceWriter creates a PersistenceWriter. metrics may be nil.
func NewPersistenceWriter(store database.Store, notifier *StatusNotifier, metrics *otel.Metrics) *PersistenceWriter {
	return &PersistenceWriter{store: store, notifier: notifier, metrics: metrics, now: time.Now}
}

// ResponseMS applies the MinResponseTime floor and converts to milliseconds.
func ResponseMS(elapsed time.Duration) int64 {
	if elapsed < MinResponseTime {
		elapsed = MinResponseTime
	}
	return elapsed.Milliseconds()
}

// WriteStatus inserts a single status row synchronously and announces it.
func (w *PersistenceWriter) WriteStatus(ctx context.Context, l *record.StatusLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = w.now()
	}
	if err := w.store.InsertStatusLog(ctx, l); err != nil {
		w.fail(ctx, TargetStatus, l.AgentID, err)
		return fmt.Errorf("status %s: %w", l.Status, err)
	}
	w.notifier.AgentStatus(ctx, l)
	return nil
}

// Write runs the three inserts concurrently and waits for all of them.
func (w *PersistenceWriter) Write(ctx context.Context, in WriteInput) WriteReport {
	req := in.Request
	responseMS := ResponseMS(in.Elapsed)
	now := w.now()

	memory := &record.Memory{
		AgentID:     req.AgentID,
		Goal:        req.Task,
		Prompt:      in.Prompt.Full(),
		Response:    in.Response,
		Context:     req.Context,
		Confidence:  in.Confidence,
		ActionTaken: record.MemoryActionTaken,
		Outcome:     record.MemoryOutcome,
		CreatedAt:   now,
	}
	decision := &record.Decision{
		DecisionType: req.AgentType + "_task",
		Context:      req.Context,
		Decision: record.DecisionPayload{
			Response:   in.Response,
			Confidence: in.Confidence,
			AgentType:  req.AgentType,
		},
		ConfidenceScore: in.Confidence,
		CreatedAt:       now,
	}
	status := &record.StatusLog{
		AgentID:        req.AgentID,
		AgentType:      req.AgentType,
		Status:         record.StatusCompleted,
		Message:        "Task completed",
		ResponseTimeMS: &responseMS,
		Timestamp:      now,
	}

	results := []TargetResult{{Target: TargetMemory}, {Target: TargetDecision}, {Target: TargetStatus}}
	writes := []func(context.Context) error{
		func(ctx context.Context) error { return w.store.InsertMemory(ctx, memory) },
		func(ctx context.Context) error { return w.store.InsertDecision(ctx, decision) },
		func(ctx context.Context) error { return w.store.InsertStatusLog(ctx, status) },
	}

	// Each goroutine owns one slot of results and never returns an error, so
	// one failing insert does not cancel the others.
	var g errgroup.Group
	for i, write := range writes {
		g.Go(func() error {
			if err := write(ctx); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].OK = true
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if !r.OK {
			w.fail(ctx, r.Target, req.AgentID, r.Err)
		}
	}
	if results[2].OK {
		w.notifier.AgentStatus(ctx, status)
	}

	return WriteReport{ResponseMS: responseMS, Results: results}
}

func (w *PersistenceWriter) fail(ctx context.Context, target, agentID string, err error) {
	slog.Warn("persistence write failed", "target", target, "agent_id", agentID, "error", err)
	if w.metrics != nil {
		w.metrics.RecordPersistenceFailure(ctx, target)
	}
}
