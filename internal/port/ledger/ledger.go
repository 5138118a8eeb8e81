// Package ledger defines the idempotency ledger port for webhook batches.
package ledger

import "context"

// Ledger records which batch ids have already been applied.
//
// MarkBatch must fail with domain.ErrConflict when the batch id is already
// recorded, so a concurrent duplicate delivery surfaces loudly instead of
// being silently re-applied.
type Ledger interface {
	HasBatch(ctx context.Context, batchID string) (bool, error)
	MarkBatch(ctx context.Context, batchID string) error
}
