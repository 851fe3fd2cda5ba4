package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/questboard/questboard-api/internal/middleware"
	"github.com/questboard/questboard-api/internal/pkg/errorhandler"
	"github.com/questboard/questboard-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetMyWallet handles GET /wallet
func (h *Handler) GetMyWallet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	wallet, err := h.svc.GetMyWallet(r.Context(), userID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, wallet)
}

// GetMyLedger handles GET /wallet/ledger
func (h *Handler) GetMyLedger(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, offset := PageFromQuery(r)
	entries, err := h.svc.GetMyLedger(r.Context(), userID, limit, offset)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.WithMeta(w, entries, response.Meta{Limit: limit, Offset: offset, Count: len(entries)})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.GetMyWallet)
	r.Get("/ledger", h.GetMyLedger)
	return r
}

// PageFromQuery reads limit/offset query params, normalized to the page bounds.
func PageFromQuery(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return NormalizePage(limit, offset)
}
