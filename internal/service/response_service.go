package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"healthpulse/internal/apperr"
	"healthpulse/internal/logger"
	"healthpulse/internal/metrics"
	"healthpulse/internal/model"
	"healthpulse/internal/repository"
)

const defaultTriggerTimeout = 10 * time.Second

// AssessmentLookup returns an active assessment owned by a user, or a
// NotFound apperr.
type AssessmentLookup interface {
	GetByID(ctx context.Context, userID, id string) (*model.Assessment, error)
}

// ReportTrigger is notified once a response is stored.
type ReportTrigger interface {
	Trigger(ctx context.Context, resp *model.AssessmentResponse) error
}

// SubmitInput is one submission.
type SubmitInput struct {
	AssessmentID string
	Answers      []model.Answer
	Notes        string
}

// ResponseService stores the single response of an assessment.
type ResponseService struct {
	assessments    AssessmentLookup
	responses      repository.ResponseRepo
	trigger        ReportTrigger
	triggerTimeout time.Duration
	log            *logger.Logger
	inflight       sync.WaitGroup
}

func NewResponseService(
	assessments AssessmentLookup,
	responses repository.ResponseRepo,
	trigger ReportTrigger,
	log *logger.Logger,
) *ResponseService {
	if log == nil {
		log = logger.Nop()
	}
	return &ResponseService{
		assessments:    assessments,
		responses:      responses,
		trigger:        trigger,
		triggerTimeout: defaultTriggerTimeout,
		log:            log.With("service", "ResponseService"),
	}
}

func alreadySubmitted() *apperr.Error {
	return apperr.Conflict("ALREADY_SUBMITTED", "This assessment has already been completed")
}

// Submit validates and stores a response. The unique index on the
// assessment reference decides concurrent submissions; the read before
// it only gives the common case an early answer.
func (s *ResponseService) Submit(ctx context.Context, userID string, in SubmitInput) (*model.AssessmentResponse, error) {
	a, err := s.assessments.GetByID(ctx, userID, in.AssessmentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.responses.GetByAssessmentID(ctx, a.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		metrics.RecordResponseSubmission("conflict")
		return nil, alreadySubmitted()
	}

	result := ValidateAnswers(in.Answers, a.Questions)
	if !result.Valid {
		metrics.RecordResponseSubmission("invalid")
		s.log.Debug("response rejected", "assessment_id", a.ID, "issues", len(result.Issues))
		return nil, apperr.Validation("Answer validation failed", result.Messages()).
			WithMeta("issues", result.Issues)
	}

	resp := &model.AssessmentResponse{
		AssessmentID:    a.ID,
		UserID:          userID,
		HealthConcernID: a.HealthConcernID,
		Answers:         in.Answers,
		Notes:           in.Notes,
		ReportStatus:    model.ReportPending,
	}
	if err := s.responses.Create(ctx, resp); err != nil {
		if errors.Is(err, repository.ErrDuplicateResponse) {
			metrics.RecordResponseSubmission("conflict")
			return nil, alreadySubmitted()
		}
		return nil, apperr.Internal(err)
	}

	metrics.RecordResponseSubmission("accepted")
	s.log.Info("response submitted", "response_id", resp.ID, "assessment_id", a.ID, "user_id", userID)
	s.notify(ctx, resp)
	return resp, nil
}

// notify fires the report trigger without waiting for it. Its outcome
// never reaches the caller.
func (s *ResponseService) notify(ctx context.Context, resp *model.AssessmentResponse) {
	if s.trigger == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	snapshot := *resp

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		tctx, cancel := context.WithTimeout(detached, s.triggerTimeout)
		defer cancel()

		if err := s.trigger.Trigger(tctx, &snapshot); err != nil {
			metrics.RecordReportJob("enqueue_failed")
			s.log.Error("report trigger failed", "response_id", snapshot.ID, "error", err)
		}
	}()
}

// Wait blocks until in-flight report triggers finish.
func (s *ResponseService) Wait() {
	s.inflight.Wait()
}

// GetByID returns a response owned by userID.
func (s *ResponseService) GetByID(ctx context.Context, userID, id string) (*model.AssessmentResponse, error) {
	resp, err := s.responses.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if resp == nil || resp.UserID != userID {
		return nil, apperr.NotFound("assessment response")
	}
	return resp, nil
}
