package quest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/questboard/questboard-api/internal/middleware"
	"github.com/questboard/questboard-api/internal/pkg/errorhandler"
	"github.com/questboard/questboard-api/internal/pkg/response"
	"github.com/questboard/questboard-api/internal/pkg/validator"
)

// Handler handles quest and submission HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates quest handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /quests
// @Summary Create a draft quest
// @Tags Quest
// @Security BearerAuth
// @Param request body CreateQuestRequest true "Quest definition"
// @Success 201 {object} response.Response{data=QuestResponse}
// @Failure 400,403,422,500 {object} response.Response
// @Router /quests [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		errorhandler.LogValidationError(r.Context(), errors)
		response.ValidationError(w, errors)
		return
	}

	q, err := h.service.CreateQuest(r.Context(), middleware.GetUserID(r.Context()), req.Input())
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.Created(w, QuestResponseFromEntity(q, true))
}

// Update handles PATCH /quests/{id}
// @Summary Edit a draft or rejected quest
// @Tags Quest
// @Security BearerAuth
// @Router /quests/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid quest ID")
	if !ok {
		return
	}

	var req UpdateQuestRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		errorhandler.LogValidationError(r.Context(), errors)
		response.ValidationError(w, errors)
		return
	}

	q, err := h.service.UpdateQuest(r.Context(), middleware.GetUserID(r.Context()), id, req.Input())
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, QuestResponseFromEntity(q, true))
}

// Get handles GET /quests/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid quest ID")
	if !ok {
		return
	}

	q, withAnswerKey, err := h.service.GetQuest(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, QuestResponseFromEntity(q, withAnswerKey))
}

// Submit handles POST /quests/{id}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid quest ID")
	if !ok {
		return
	}

	q, err := h.service.SubmitForApproval(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, QuestResponseFromEntity(q, true))
}

// Archive handles POST /quests/{id}/archive
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid quest ID")
	if !ok {
		return
	}

	q, err := h.service.ArchiveQuest(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, QuestResponseFromEntity(q, true))
}

// SubmitAnswer handles POST /quests/{id}/answers
// @Summary Submit an answer; MCQ answers are graded immediately
// @Tags Quest
// @Security BearerAuth
// @Param request body AnswerRequest true "One of choice_id, text or media_ref"
// @Success 200 {object} response.Response{data=SubmissionResult}
// @Failure 400,404,409,422,500 {object} response.Response
// @Router /quests/{id}/answers [post]
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid quest ID")
	if !ok {
		return
	}

	var req AnswerRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	answer := Answer{ChoiceID: req.ChoiceID, Text: req.Text, MediaRef: req.MediaRef}
	result, err := h.service.SubmitAnswer(r.Context(), id, middleware.GetUserID(r.Context()), answer)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, result)
}

// Review handles POST /submissions/{id}/review
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid submission ID")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	sub, err := h.service.ReviewSubmission(r.Context(), id, middleware.GetUserID(r.Context()), Decision(req.Decision), req.Score)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, SubmissionResponseFromEntity(sub))
}

func pathID(w http.ResponseWriter, r *http.Request, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, msg)
		return uuid.Nil, false
	}
	return id, true
}
