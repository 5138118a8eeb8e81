package natskv_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Strob0t/agentbridge/internal/adapter/nats"
	"github.com/Strob0t/agentbridge/internal/adapter/natskv"
	"github.com/Strob0t/agentbridge/internal/port/cache/cachetest"
)

func TestCacheCompliance(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	ctx := context.Background()
	q, err := nats.Connect(ctx, url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })

	kv, err := q.KeyValue(ctx, "AGENTBRIDGE_TEST_BATCHES", time.Minute)
	if err != nil {
		t.Fatalf("KeyValue: %v", err)
	}

	cachetest.RunComplianceTests(t, natskv.New(kv))
}
