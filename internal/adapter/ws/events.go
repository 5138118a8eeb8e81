package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/agentbridge/internal/port/broadcast"
	"github.com/Strob0t/agentbridge/internal/port/messagequeue"
)

// BroadcastEvent marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// relaySubjects maps queue subjects onto client event types.
var relaySubjects = map[string]string{
	messagequeue.SubjectAgentStatus:       broadcast.EventAgentStatus,
	messagequeue.SubjectAutonomousCreated: broadcast.EventAutonomousTask,
}

// Relay subscribes the hub to the status subjects so every instance behind
// a load balancer pushes events published by any instance. The returned
// function stops all subscriptions.
func (h *Hub) Relay(ctx context.Context, q messagequeue.Queue) (func(), error) {
	var stops []func()
	stopAll := func() {
		for _, s := range stops {
			s()
		}
	}
	for subject, eventType := range relaySubjects {
		stop, err := q.Subscribe(ctx, subject, func(ctx context.Context, _ string, data []byte) error {
			h.Broadcast(ctx, Message{Type: eventType, Payload: json.RawMessage(data)})
			return nil
		})
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("relay %s: %w", subject, err)
		}
		stops = append(stops, stop)
	}
	return stopAll, nil
}
