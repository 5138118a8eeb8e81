package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/port/broadcast"
	"github.com/Strob0t/agentbridge/internal/port/messagequeue"
)

// StatusNotifier fans status events out to realtime clients. With a
// connected queue, events go through NATS and every instance's hub relays
// them; otherwise they are pushed to the local hub directly. Delivery is
// best effort and never fails the caller. Both dependencies may be nil.
type StatusNotifier struct {
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewStatusNotifier creates a StatusNotifier.
func NewStatusNotifier(queue messagequeue.Queue, hub broadcast.Broadcaster) *StatusNotifier {
	return &StatusNotifier{queue: queue, hub: hub}
}

// AgentStatus announces a written status row.
func (n *StatusNotifier) AgentStatus(ctx context.Context, l *record.StatusLog) {
	if n == nil {
		return
	}
	n.emit(ctx, messagequeue.SubjectAgentStatus, broadcast.EventAgentStatus, messagequeue.AgentStatusPayload{
		AgentID:        l.AgentID,
		AgentType:      l.AgentType,
		Status:         l.Status,
		Message:        l.Message,
		ResponseTimeMS: l.ResponseTimeMS,
		Timestamp:      l.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// AutonomousCreated announces an inserted autonomous task.
func (n *StatusNotifier) AutonomousCreated(ctx context.Context, t *record.AutonomousTask, source string) {
	if n == nil {
		return
	}
	n.emit(ctx, messagequeue.SubjectAutonomousCreated, broadcast.EventAutonomousTask, messagequeue.AutonomousCreatedPayload{
		TaskID:    t.TaskID,
		TaskName:  t.TaskName,
		AgentType: t.AgentType,
		Priority:  t.Priority,
		Source:    source,
	})
}

// Local pushes an event to the local hub only.
func (n *StatusNotifier) Local(ctx context.Context, eventType string, payload any) {
	if n == nil || n.hub == nil {
		return
	}
	n.hub.BroadcastEvent(ctx, eventType, payload)
}

func (n *StatusNotifier) emit(ctx context.Context, subject, eventType string, payload any) {
	if n.queue != nil && n.queue.IsConnected() {
		data, err := json.Marshal(payload)
		if err != nil {
			slog.Error("marshal status event", "subject", subject, "error", err)
			return
		}
		err = n.queue.Publish(ctx, subject, data)
		if err == nil {
			return
		}
		slog.Warn("status publish failed, broadcasting locally", "subject", subject, "error", err)
	}
	n.Local(ctx, eventType, payload)
}
