package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/port/database"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ database.Store = (*Store)(nil)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// --- Task router writes ---

func (s *Store) InsertMemory(ctx context.Context, m *record.Memory) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO agent_memory (agent_id, goal, prompt, response, context, confidence, action_taken, outcome, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
		 RETURNING id::text, created_at`,
		m.AgentID, m.Goal, m.Prompt, m.Response, jsonbArg(m.Context), m.Confidence,
		m.ActionTaken, m.Outcome, nullTime(m.CreatedAt),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert memory for agent %s: %w", m.AgentID, err)
	}
	return nil
}

func (s *Store) InsertDecision(ctx context.Context, d *record.Decision) error {
	decision, err := json.Marshal(d.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO ai_decisions (decision_type, context, decision, confidence_score, implemented, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		 RETURNING id::text, created_at`,
		d.DecisionType, jsonbArg(d.Context), decision, d.ConfidenceScore, d.Implemented, nullTime(d.CreatedAt),
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert decision %s: %w", d.DecisionType, err)
	}
	return nil
}

const insertStatusLog = `INSERT INTO agent_status_logs (agent_id, agent_type, status, message, response_time, timestamp)
	 VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	 RETURNING id::text, timestamp`

func (s *Store) InsertStatusLog(ctx context.Context, l *record.StatusLog) error {
	err := s.pool.QueryRow(ctx, insertStatusLog,
		l.AgentID, l.AgentType, l.Status, l.Message, l.ResponseTimeMS, nullTime(l.Timestamp),
	).Scan(&l.ID, &l.Timestamp)
	if err != nil {
		return fmt.Errorf("insert status log %s/%s: %w", l.AgentID, l.Status, err)
	}
	return nil
}

// --- Bridge writes ---

// InsertStatusLogs writes all rows in one transaction. IDs and timestamps
// are filled in on the passed slice.
func (s *Store) InsertStatusLogs(ctx context.Context, rows []record.StatusLog) error {
	if len(rows) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range rows {
			l := &rows[i]
			batch.Queue(insertStatusLog,
				l.AgentID, l.AgentType, l.Status, l.Message, l.ResponseTimeMS, nullTime(l.Timestamp),
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&l.ID, &l.Timestamp)
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %d status logs: %w", len(rows), err)
		}
		return nil
	})
}

// InsertAutonomousTasks writes all tasks in one transaction.
func (s *Store) InsertAutonomousTasks(ctx context.Context, tasks []record.AutonomousTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range tasks {
			t := &tasks[i]
			batch.Queue(
				`INSERT INTO autonomous_tasks (task_id, task_name, agent_type, portal, priority, status, description,
				                               estimated_duration_minutes, dependencies, result, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
				 RETURNING id::text, created_at`,
				t.TaskID, t.TaskName, t.AgentType, t.Portal, t.Priority, t.Status, t.Description,
				t.EstimatedDurationMinutes, pgTextArray(t.Dependencies), jsonbArg(t.Result), nullTime(t.CreatedAt),
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&t.ID, &t.CreatedAt)
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %d autonomous tasks: %w", len(tasks), err)
		}
		return nil
	})
}
