package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/port/cache"
	"github.com/Strob0t/agentbridge/internal/port/ledger"
)

const batchKeyPrefix = "batch:"

var batchMarker = []byte{1}

// CachedLedger memoises positive HasBatch answers. Markers are never
// deleted, so a cached "seen" never goes stale; misses always reach the
// underlying ledger.
type CachedLedger struct {
	inner ledger.Ledger
	cache cache.Cache
}

var _ ledger.Ledger = (*CachedLedger)(nil)

// NewCachedLedger wraps inner with cache.
func NewCachedLedger(inner ledger.Ledger, c cache.Cache) *CachedLedger {
	return &CachedLedger{inner: inner, cache: c}
}

// HasBatch consults the cache, then the underlying ledger.
func (l *CachedLedger) HasBatch(ctx context.Context, batchID string) (bool, error) {
	key := batchKeyPrefix + batchID
	_, ok, err := l.cache.Get(ctx, key)
	switch {
	case err != nil:
		slog.Warn("batch cache get failed", "batch_id", batchID, "error", err)
	case ok:
		return true, nil
	}

	seen, err := l.inner.HasBatch(ctx, batchID)
	if err != nil {
		return false, err
	}
	if seen {
		l.remember(ctx, key)
	}
	return seen, nil
}

// MarkBatch marks the batch in the underlying ledger and caches the marker.
// A conflict still caches the marker since the batch is known to exist.
func (l *CachedLedger) MarkBatch(ctx context.Context, batchID string) error {
	err := l.inner.MarkBatch(ctx, batchID)
	if err == nil || errors.Is(err, domain.ErrConflict) {
		l.remember(ctx, batchKeyPrefix+batchID)
	}
	return err
}

func (l *CachedLedger) remember(ctx context.Context, key string) {
	if err := l.cache.Set(ctx, key, batchMarker, 0); err != nil {
		slog.Warn("batch cache set failed", "key", key, "error", err)
	}
}
