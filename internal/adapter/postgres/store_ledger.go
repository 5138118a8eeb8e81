package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/port/ledger"
)

var _ ledger.Ledger = (*Store)(nil)

// HasBatch reports whether batchID has already been marked.
func (s *Store) HasBatch(ctx context.Context, batchID string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM n8n_processed_batches WHERE batch_id = $1)`, batchID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("has batch %s: %w", batchID, err)
	}
	return exists, nil
}

// MarkBatch records batchID. A second mark of the same id fails with
// domain.ErrConflict via the primary key.
func (s *Store) MarkBatch(ctx context.Context, batchID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO n8n_processed_batches (batch_id) VALUES ($1)`, batchID)
	if isUniqueViolation(err) {
		return fmt.Errorf("mark batch %s: %w", batchID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("mark batch %s: %w", batchID, err)
	}
	return nil
}
