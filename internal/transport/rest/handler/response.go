package handler

import (
	"context"
	"net/http"

	"healthpulse/internal/logger"
	"healthpulse/internal/model"
	"healthpulse/internal/service"
	"healthpulse/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// ResponseAPI is the part of the response service the handlers use.
type ResponseAPI interface {
	Submit(ctx context.Context, userID string, in service.SubmitInput) (*model.AssessmentResponse, error)
	GetByID(ctx context.Context, userID, id string) (*model.AssessmentResponse, error)
}

// ResponseHandler handles assessment response endpoints
type ResponseHandler struct {
	responses ResponseAPI
	log       *logger.Logger
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responses ResponseAPI, log *logger.Logger) *ResponseHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ResponseHandler{responses: responses, log: log}
}

// AnswerInput is one answer in a submission body. Answer values are checked
// against their questions by the service, not here.
type AnswerInput struct {
	QuestionID   string             `json:"questionId" validate:"required"`
	QuestionType model.QuestionType `json:"questionType" validate:"required"`
	Value        model.Value        `json:"value"`
}

// SubmitRequest is the body of POST /assessment/response.
type SubmitRequest struct {
	AssessmentID string        `json:"assessmentId" validate:"required"`
	Answers      []AnswerInput `json:"answers" validate:"required,dive"`
	Notes        string        `json:"notes" validate:"max=5000"`
}

// Submit handles POST /api/v1/assessment/response
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	answers := make([]model.Answer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = model.Answer{QuestionID: a.QuestionID, QuestionType: a.QuestionType, Value: a.Value}
	}

	resp, err := h.responses.Submit(r.Context(), middleware.GetUserID(r.Context()), service.SubmitInput{
		AssessmentID: req.AssessmentID,
		Answers:      answers,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/v1/assessment/response/{responseId}
func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["responseId"]
	resp, err := h.responses.GetByID(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
