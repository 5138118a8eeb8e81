package a2a

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/go-chi/chi/v5"
)

// Handler serves the agent card.
type Handler struct {
	card *a2a.AgentCard
}

// NewHandler creates a Handler. The card is built once.
func NewHandler(baseURL, version string) *Handler {
	return &Handler{card: BuildAgentCard(baseURL, version)}
}

// MountRoutes registers the discovery route at the root level.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(WellKnownPath, h.handleAgentCard)
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if err := json.NewEncoder(w).Encode(h.card); err != nil {
		slog.Error("failed to write agent card", "error", err)
	}
}
