package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"healthpulse/internal/apperr"
	"healthpulse/internal/logger"
	"healthpulse/internal/model"
	"healthpulse/internal/service"
	"healthpulse/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// AssessmentAPI is the part of the assessment service the handlers use.
type AssessmentAPI interface {
	Generate(ctx context.Context, userID, healthConcernID string) (*model.Assessment, error)
	CanGenerate(ctx context.Context, userID, healthConcernID string) (service.CooldownDecision, error)
	GetByID(ctx context.Context, userID, id string) (*model.Assessment, error)
	Deactivate(ctx context.Context, userID, id string) error
	History(ctx context.Context, userID string, q service.HistoryQuery) (*service.HistoryPage, error)
}

// AssessmentHandler handles assessment endpoints
type AssessmentHandler struct {
	assessments AssessmentAPI
	log         *logger.Logger
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(assessments AssessmentAPI, log *logger.Logger) *AssessmentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AssessmentHandler{assessments: assessments, log: log}
}

// GenerateRequest is the body of POST /assessment/generate.
type GenerateRequest struct {
	HealthConcernID string `json:"healthConcernId" validate:"required"`
}

// Generate handles POST /api/v1/assessment/generate
func (h *AssessmentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	a, err := h.assessments.Generate(r.Context(), middleware.GetUserID(r.Context()), req.HealthConcernID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// CanGenerate handles GET /api/v1/assessment/can-generate/{healthConcernId}
func (h *AssessmentHandler) CanGenerate(w http.ResponseWriter, r *http.Request) {
	hcID := mux.Vars(r)["healthConcernId"]
	decision, err := h.assessments.CanGenerate(r.Context(), middleware.GetUserID(r.Context()), hcID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// Get handles GET /api/v1/assessment/{assessmentId}
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["assessmentId"]
	a, err := h.assessments.GetByID(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/v1/assessment/{assessmentId}
func (h *AssessmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["assessmentId"]
	if err := h.assessments.Deactivate(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/v1/assessment/history
func (h *AssessmentHandler) History(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	page, err := h.assessments.History(r.Context(), middleware.GetUserID(r.Context()), q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseHistoryQuery(r *http.Request) (service.HistoryQuery, error) {
	values := r.URL.Query()
	q := service.HistoryQuery{HealthConcernID: strings.TrimSpace(values.Get("healthConcernId"))}
	var details []string

	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			details = append(details, "page must be a positive integer")
		}
		q.Page = n
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			details = append(details, "limit must be a positive integer")
		}
		q.Limit = n
	}
	if raw := values.Get("includeResponses"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			details = append(details, "includeResponses must be true or false")
		}
		q.IncludeResponses = b
	}
	if len(details) > 0 {
		return service.HistoryQuery{}, apperr.Validation("invalid query", details)
	}
	return q, nil
}
