package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/bridge"
	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/port/completion"
	"github.com/Strob0t/agentbridge/internal/port/messagequeue"
)

var errStoreDown = errors.New("store unavailable")

// recordStore is an in-memory database.Store. Setting an *Err field makes
// the corresponding method fail.
type recordStore struct {
	mu        sync.Mutex
	memories  []record.Memory
	decisions []record.Decision
	statuses  []record.StatusLog
	tasks     []record.AutonomousTask

	memoryErr   error
	decisionErr error
	statusErr   error
	tasksErr    error
	listErr     error
}

func (s *recordStore) InsertMemory(_ context.Context, m *record.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memoryErr != nil {
		return s.memoryErr
	}
	s.memories = append(s.memories, *m)
	return nil
}

func (s *recordStore) InsertDecision(_ context.Context, d *record.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decisionErr != nil {
		return s.decisionErr
	}
	s.decisions = append(s.decisions, *d)
	return nil
}

func (s *recordStore) InsertStatusLog(_ context.Context, l *record.StatusLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statuses = append(s.statuses, *l)
	return nil
}

func (s *recordStore) InsertStatusLogs(_ context.Context, rows []record.StatusLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statuses = append(s.statuses, rows...)
	return nil
}

func (s *recordStore) InsertAutonomousTasks(_ context.Context, tasks []record.AutonomousTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasksErr != nil {
		return s.tasksErr
	}
	s.tasks = append(s.tasks, tasks...)
	return nil
}

func (s *recordStore) ListPendingTasks(_ context.Context, page bridge.Page) ([]record.AutonomousTask, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var pending []record.AutonomousTask
	for _, t := range s.tasks {
		if t.Status == record.TaskStatusPending {
			pending = append(pending, t)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return window(pending, page), len(pending), nil
}

func (s *recordStore) ListActiveAgents(_ context.Context, page bridge.Page) ([]record.StatusLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var active []record.StatusLog
	for _, l := range s.statuses {
		if l.Status == record.StatusActive {
			active = append(active, l)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Timestamp.After(active[j].Timestamp) })
	return window(active, page), len(active), nil
}

func (s *recordStore) Ping(context.Context) error { return nil }

func (s *recordStore) statusesWith(status string) []record.StatusLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []record.StatusLog
	for _, l := range s.statuses {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

func window[T any](items []T, page bridge.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// memLedger is an in-memory ledger.Ledger honouring the ErrConflict contract.
type memLedger struct {
	mu      sync.Mutex
	batches map[string]bool
	hasErr  error
	hasHits int
}

func (l *memLedger) HasBatch(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasHits++
	if l.hasErr != nil {
		return false, l.hasErr
	}
	return l.batches[id], nil
}

func (l *memLedger) MarkBatch(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.batches == nil {
		l.batches = map[string]bool{}
	}
	if l.batches[id] {
		return domain.ErrConflict
	}
	l.batches[id] = true
	return nil
}

// stubProvider is a completion.Provider returning a fixed result.
type stubProvider struct {
	result completion.Result
	err    error
	calls  int
}

func (p *stubProvider) Complete(context.Context, string, string) (completion.Result, error) {
	p.calls++
	return p.result, p.err
}

func (p *stubProvider) Configured() bool { return !p.result.IsMock }

// recordingHub captures broadcast events.
type recordingHub struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHub) BroadcastEvent(_ context.Context, eventType string, _ any) {
	h.mu.Lock()
	h.events = append(h.events, eventType)
	h.mu.Unlock()
}

func (h *recordingHub) count(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e == eventType {
			n++
		}
	}
	return n
}

// mockQueue implements messagequeue.Queue for testing.
type mockQueue struct {
	mu         sync.Mutex
	published  []string
	publishErr error
	connected  bool
}

func (q *mockQueue) Publish(_ context.Context, subject string, _ []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, subject)
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return q.connected }
