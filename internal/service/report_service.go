package service

import (
	"context"
	"fmt"
	"time"

	"healthpulse/internal/cache"
	"healthpulse/internal/logger"
	"healthpulse/internal/metrics"
	"healthpulse/internal/model"
	"healthpulse/internal/repository"

	"github.com/google/uuid"
)

// ReportService queues report jobs and runs the worker that builds them.
type ReportService struct {
	queue       cache.ReportQueue
	responses   repository.ResponseRepo
	assessments repository.AssessmentRepo
	log         *logger.Logger
	pollWait    time.Duration
	errorPause  time.Duration
}

// NewReportService creates a new report service
func NewReportService(
	queue cache.ReportQueue,
	responses repository.ResponseRepo,
	assessments repository.AssessmentRepo,
	log *logger.Logger,
) *ReportService {
	if log == nil {
		log = logger.Nop()
	}
	return &ReportService{
		queue:       queue,
		responses:   responses,
		assessments: assessments,
		log:         log.With("service", "ReportService"),
		pollWait:    5 * time.Second,
		errorPause:  time.Second,
	}
}

// Trigger enqueues a report job for a stored response.
func (s *ReportService) Trigger(ctx context.Context, resp *model.AssessmentResponse) error {
	job := &model.ReportJob{
		ID:           uuid.NewString(),
		ResponseID:   resp.ID,
		AssessmentID: resp.AssessmentID,
		UserID:       resp.UserID,
		EnqueuedAt:   time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue report job: %w", err)
	}
	metrics.RecordReportJob("enqueued")
	s.log.Debug("report job enqueued", "job_id", job.ID, "response_id", job.ResponseID)
	return nil
}

// Run processes jobs until ctx is cancelled.
func (s *ReportService) Run(ctx context.Context) error {
	s.log.Info("report worker started")
	defer s.log.Info("report worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := s.queue.Dequeue(ctx, s.pollWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("report queue read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.errorPause):
			}
			continue
		}
		if job == nil {
			continue
		}
		s.Process(ctx, job)
	}
}

// Process builds the report for one job and records the final status.
func (s *ReportService) Process(ctx context.Context, job *model.ReportJob) {
	log := s.log.With("job_id", job.ID, "response_id", job.ResponseID)

	resp, err := s.responses.GetByID(ctx, job.ResponseID)
	if err != nil {
		log.Error("load response failed", "error", err)
		metrics.RecordReportJob("failed")
		return
	}
	if resp == nil {
		log.Warn("response for report job not found")
		metrics.RecordReportJob("skipped")
		return
	}

	if err := s.responses.UpdateReport(ctx, resp.ID, model.ReportProcessing, nil); err != nil {
		log.Error("mark report processing failed", "error", err)
		metrics.RecordReportJob("failed")
		return
	}

	report, err := s.build(ctx, resp)
	if err != nil {
		log.Error("report build failed", "error", err)
		metrics.RecordReportJob("failed")
		if uerr := s.responses.UpdateReport(ctx, resp.ID, model.ReportFailed, nil); uerr != nil {
			log.Error("mark report failed failed", "error", uerr)
		}
		return
	}

	if err := s.responses.UpdateReport(ctx, resp.ID, model.ReportCompleted, report); err != nil {
		log.Error("store report failed", "error", err)
		metrics.RecordReportJob("failed")
		return
	}
	metrics.RecordReportJob("completed")
	log.Info("report completed")
}

func (s *ReportService) build(ctx context.Context, resp *model.AssessmentResponse) (map[string]interface{}, error) {
	a, err := s.assessments.GetByID(ctx, resp.AssessmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("assessment %s not found", resp.AssessmentID)
	}
	return BuildPlaceholderReport(a, resp, time.Now().UTC()), nil
}

// BuildPlaceholderReport summarizes a response without interpreting it.
func BuildPlaceholderReport(a *model.Assessment, resp *model.AssessmentResponse, now time.Time) map[string]interface{} {
	answered := make(map[string]bool, len(resp.Answers))
	for _, ans := range resp.Answers {
		answered[ans.QuestionID] = true
	}

	required, answeredRequired := 0, 0
	byType := map[string]int{}
	for _, q := range a.Questions {
		byType[string(q.Type())]++
		if q.Required() {
			required++
			if answered[q.ID()] {
				answeredRequired++
			}
		}
	}

	return map[string]interface{}{
		"generatedAt":      now,
		"severity":         string(a.Severity),
		"questionCount":    len(a.Questions),
		"answeredCount":    len(resp.Answers),
		"requiredCount":    required,
		"answeredRequired": answeredRequired,
		"questionTypes":    byType,
		"hasNotes":         resp.Notes != "",
		"summary":          "Automated report pending clinical review",
	}
}
