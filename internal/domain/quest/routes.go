package quest

import (
	"github.com/go-chi/chi/v5"
)

// RegisterQuestRoutes adds quest routes to r. r is expected to be
// authenticated already; approval routes are registered by treasury.
func (h *Handler) RegisterQuestRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Post("/{id}/submit", h.Submit)
	r.Post("/{id}/archive", h.Archive)
	r.Post("/{id}/answers", h.SubmitAnswer)
}

// RegisterSubmissionRoutes adds reviewer routes to r.
func (h *Handler) RegisterSubmissionRoutes(r chi.Router) {
	r.Post("/{id}/review", h.Review)
}
