// Package database defines the record store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/agentbridge/internal/domain/bridge"
	"github.com/Strob0t/agentbridge/internal/domain/record"
)

// Store is the append-only record sink behind both HTTP surfaces.
type Store interface {
	// Task router writes
	InsertMemory(ctx context.Context, m *record.Memory) error
	InsertDecision(ctx context.Context, d *record.Decision) error
	InsertStatusLog(ctx context.Context, s *record.StatusLog) error

	// Bridge writes
	InsertStatusLogs(ctx context.Context, rows []record.StatusLog) error
	InsertAutonomousTasks(ctx context.Context, tasks []record.AutonomousTask) error

	// Bridge reads
	ListPendingTasks(ctx context.Context, page bridge.Page) ([]record.AutonomousTask, int, error)
	ListActiveAgents(ctx context.Context, page bridge.Page) ([]record.StatusLog, int, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
