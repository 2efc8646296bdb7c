package quotes

import (
	"github.com/go-chi/chi/v5"

	"github.com/acero-crm/acero-crm/internal/rbac"
	"github.com/acero-crm/acero-crm/internal/shared"
)

// MountRoutes registers the quotation endpoints guarded per operation.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.With(guard.RequireAny(shared.PermQuoteView)).Get("/", h.handleList)
	r.With(guard.RequireAny(shared.PermQuoteView)).Get("/{id}", h.handleGet)
	r.With(guard.RequireAny(shared.PermQuoteView)).Get("/{id}/versions", h.handleHistory)
	r.With(guard.RequireAny(shared.PermQuoteCreate)).Post("/", h.handleCreate)
	r.With(guard.RequireAny(shared.PermQuoteEdit)).Put("/{id}", h.handleUpdate)
	r.With(guard.RequireAny(shared.PermQuoteTransition)).Post("/{id}/transition", h.handleTransition)
}
