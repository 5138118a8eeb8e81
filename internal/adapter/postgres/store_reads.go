package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/agentbridge/internal/domain/bridge"
	"github.com/Strob0t/agentbridge/internal/domain/record"
)

// ListPendingTasks returns one page of pending autonomous tasks ordered by
// priority (highest first) then age (oldest first), plus the total count.
func (s *Store) ListPendingTasks(ctx context.Context, page bridge.Page) ([]record.AutonomousTask, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM autonomous_tasks WHERE status = $1`, record.TaskStatusPending,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pending tasks: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, task_id, task_name, agent_type, portal, priority, status, description,
		        estimated_duration_minutes, dependencies, result, created_at
		 FROM autonomous_tasks WHERE status = $1
		 ORDER BY priority DESC, created_at ASC
		 LIMIT $2 OFFSET $3`,
		record.TaskStatusPending, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []record.AutonomousTask
	for rows.Next() {
		t, err := scanAutonomousTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan pending task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list pending tasks: %w", err)
	}
	return orEmpty(tasks), total, nil
}

// ListActiveAgents returns one page of "active" status rows, newest first,
// plus the total count.
func (s *Store) ListActiveAgents(ctx context.Context, page bridge.Page) ([]record.StatusLog, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM agent_status_logs WHERE status = $1`, record.StatusActive,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count active agents: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, agent_id, agent_type, status, message, response_time, timestamp
		 FROM agent_status_logs WHERE status = $1
		 ORDER BY timestamp DESC
		 LIMIT $2 OFFSET $3`,
		record.StatusActive, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list active agents: %w", err)
	}
	defer rows.Close()

	var logs []record.StatusLog
	for rows.Next() {
		l, err := scanStatusLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan active agent: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list active agents: %w", err)
	}
	return orEmpty(logs), total, nil
}

func scanAutonomousTask(row scannable) (record.AutonomousTask, error) {
	var t record.AutonomousTask
	var result []byte
	err := row.Scan(&t.ID, &t.TaskID, &t.TaskName, &t.AgentType, &t.Portal, &t.Priority, &t.Status,
		&t.Description, &t.EstimatedDurationMinutes, &t.Dependencies, &result, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.Result = result
	return t, nil
}

func scanStatusLog(row scannable) (record.StatusLog, error) {
	var l record.StatusLog
	err := row.Scan(&l.ID, &l.AgentID, &l.AgentType, &l.Status, &l.Message, &l.ResponseTimeMS, &l.Timestamp)
	return l, err
}
