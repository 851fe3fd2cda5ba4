package treasury

import (
	"github.com/go-chi/chi/v5"
)

// RegisterQuestRoutes adds the approval routes under /quests.
func (h *Handler) RegisterQuestRoutes(r chi.Router) {
	r.Post("/{id}/approve", h.ApproveQuest)
	r.Post("/{id}/reject", h.RejectQuest)
}

// AdminRoutes returns the platform admin router. Roles are checked in the
// service, so the router only needs authentication.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/platform", h.PlatformWallet)
	r.Post("/platform/topup", h.TopUp)
	r.Post("/organizations/{id}/allocate", h.AllocateOrg)
	r.Post("/users/allocate", h.AllocateUser)

	r.Route("/ledger/{tier}/{owner}", func(r chi.Router) {
		r.Get("/", h.OwnerLedger)
		r.Get("/reconcile", h.Reconcile)
	})

	return r
}
