package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type captureHandler struct {
	mu    sync.Mutex
	msgs  []string
	attrs []slog.Attr
	delay time.Duration
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	time.Sleep(h.delay)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, rec.Message)
	return nil
}

func (h *captureHandler) WithAttrs(a []slog.Attr) slog.Handler {
	h.mu.Lock()
	h.attrs = append(h.attrs, a...)
	h.mu.Unlock()
	return h
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.msgs {
		if m == msg {
			n++
		}
	}
	return n
}

func emit(h slog.Handler, level slog.Level, msg string) {
	_ = h.Handle(context.Background(), slog.NewRecord(time.Now(), level, msg, 0))
}

func TestAsyncHandlerFlushesOnClose(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 512, 3)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				emit(ah, slog.LevelInfo, "task routed")
			}
		}()
	}
	wg.Wait()
	ah.Close()

	if got := inner.count("task routed"); got != 400 {
		t.Fatalf("flushed %d records, want 400", got)
	}
}

func TestAsyncHandlerDropsOnlyLowLevels(t *testing.T) {
	inner := &captureHandler{delay: 5 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 20 {
		emit(ah, slog.LevelDebug, "noise")
		emit(ah, slog.LevelError, "store write failed")
	}
	ah.Close()

	if got := inner.count("store write failed"); got != 20 {
		t.Errorf("errors written = %d, want 20", got)
	}
	if ah.DroppedCount() == 0 {
		t.Error("expected debug records to be dropped")
	}
	if inner.count("async logger dropped records") != 1 {
		t.Error("expected a drop summary after close")
	}
}

func TestAsyncHandlerAfterCloseWritesInline(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 4, 1)
	ah.Close()
	ah.Close()

	emit(ah, slog.LevelInfo, "late")
	if inner.count("late") != 1 {
		t.Error("record after close was not written")
	}
}

func TestAsyncHandlerDerivedSharesQueue(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 16, 1)
	child := ah.WithAttrs([]slog.Attr{slog.String("component", "bridge")}).WithGroup("g")

	emit(child, slog.LevelInfo, "from child")
	ah.Close()

	if inner.count("from child") != 1 {
		t.Error("derived handler record lost on parent close")
	}
	if len(inner.attrs) != 1 || inner.attrs[0].Key != "component" {
		t.Errorf("attrs = %v", inner.attrs)
	}
}
