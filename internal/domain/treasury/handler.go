package treasury

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/questboard/questboard-api/internal/domain/ledger"
	"github.com/questboard/questboard-api/internal/middleware"
	"github.com/questboard/questboard-api/internal/pkg/errorhandler"
	"github.com/questboard/questboard-api/internal/pkg/response"
	"github.com/questboard/questboard-api/internal/pkg/validator"
)

// Handler handles approval and admin money endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ApproveQuest handles POST /quests/{id}/approve
// @Summary Approve a submitted quest and debit its reward from the platform
// @Tags Treasury
// @Security BearerAuth
// @Success 200 {object} response.Response{data=ApproveResult}
// @Failure 403,404,409,500 {object} response.Response
// @Router /quests/{id}/approve [post]
func (h *Handler) ApproveQuest(w http.ResponseWriter, r *http.Request) {
	questID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid quest ID")
		return
	}

	result, err := h.service.ApproveQuest(r.Context(), questID, middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, result)
}

// RejectQuest handles POST /quests/{id}/reject
func (h *Handler) RejectQuest(w http.ResponseWriter, r *http.Request) {
	questID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid quest ID")
		return
	}

	var req RejectRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		errorhandler.LogValidationError(r.Context(), errors)
		response.ValidationError(w, errors)
		return
	}

	result, err := h.service.RejectQuest(r.Context(), questID, middleware.GetUserID(r.Context()), req.Reason)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, result)
}

// AllocateOrg handles POST /admin/organizations/{id}/allocate
func (h *Handler) AllocateOrg(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid organization ID")
		return
	}

	var req AllocateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.AllocateOrgCoins(r.Context(), orgID, req.Amount, req.Reason, middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, result)
}

// AllocateUser handles POST /admin/users/allocate
func (h *Handler) AllocateUser(w http.ResponseWriter, r *http.Request) {
	var req AllocateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.AllocateUserCoins(r.Context(), req.User, req.Amount, req.Reason, middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, result)
}

// TopUp handles POST /admin/platform/topup
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.TopUpPlatformBalance(r.Context(), req.Amount, req.Reason, middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, result)
}

// PlatformWallet handles GET /admin/platform
func (h *Handler) PlatformWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.service.PlatformWallet(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, wallet)
}

// OwnerLedger handles GET /admin/ledger/{tier}/{owner}
func (h *Handler) OwnerLedger(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromPath(w, r)
	if !ok {
		return
	}

	limit, offset := ledger.PageFromQuery(r)
	entries, err := h.service.OwnerLedger(r.Context(), middleware.GetUserID(r.Context()), owner, limit, offset)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.WithMeta(w, entries, response.Meta{Limit: limit, Offset: offset, Count: len(entries)})
}

// Reconcile handles GET /admin/ledger/{tier}/{owner}/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromPath(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Reconcile(r.Context(), middleware.GetUserID(r.Context()), owner)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, rec)
}

func ownerFromPath(w http.ResponseWriter, r *http.Request) (ledger.Owner, bool) {
	path := OwnerPath{Tier: chi.URLParam(r, "tier"), Owner: chi.URLParam(r, "owner")}
	if errors := validator.Validate(&path); errors != nil {
		errorhandler.LogValidationError(r.Context(), errors)
		response.ValidationError(w, errors)
		return ledger.Owner{}, false
	}

	owner, err := ledger.ParseOwner(path.Tier, path.Owner)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return ledger.Owner{}, false
	}
	return owner, true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := response.DecodeJSON(r.Body, req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	if errors := validator.Validate(req); errors != nil {
		errorhandler.LogValidationError(r.Context(), errors)
		response.ValidationError(w, errors)
		return false
	}
	return true
}
