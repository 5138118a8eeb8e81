package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/agentbridge/internal/middleware"
	"github.com/Strob0t/agentbridge/internal/secrets"
)

// MountRoutes registers the health endpoint and both API surfaces on the
// given chi router. Bridge POSTs pass through signature verification.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/agent-task-router", func(r chi.Router) {
			r.Get("/", h.TaskRouterInfo)
			r.Post("/", h.RouteTask)
			r.Options("/", preflight)
		})

		r.Route("/n8n-bridge", func(r chi.Router) {
			r.Get("/", h.BridgeInfo)
			r.With(middleware.WebhookSignature(
				h.Secrets,
				secrets.KeyBridgeWebhookSecret,
				h.Webhook.SignatureHeader,
				h.Limits.MaxRequestBodySize,
			)).Post("/", h.BridgeAction)
			r.Options("/", preflight)
		})
	})
}

// preflight answers OPTIONS when the CORS middleware is not in the chain.
func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
