package service

import (
	"context"
	"fmt"
	"time"

	"healthpulse/internal/apperr"
	"healthpulse/internal/cache"
	"healthpulse/internal/config"
	"healthpulse/internal/llm"
	"healthpulse/internal/logger"
	"healthpulse/internal/metrics"
	"healthpulse/internal/model"
	"healthpulse/internal/repository"
)

// Generation stages, in order.
const (
	StageCooldownCheck    = "cooldown_check"
	StageContextBuild     = "context_build"
	StageContextBudget    = "context_budget"
	StageLLMCall          = "llm_call"
	StageResponseValidate = "response_validate"
	StagePersist          = "persist"
)

const (
	maxHistoryLimit = 50
	maxHistoryPage  = 100000
)

// Generator produces structured output from a prompt pair.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Result, error)
}

// AssessmentService runs assessment generation and serves reads.
type AssessmentService struct {
	assessments repository.AssessmentRepo
	responses   repository.ResponseRepo
	concerns    repository.HealthConcernRepo
	cache       cache.AssessmentCache
	gate        *CooldownGate
	assembler   *ContextAssembler
	budgeter    *ContextBudgeter
	generator   Generator
	cfg         config.LLMConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewAssessmentService wires the generation pipeline. cache may be nil.
func NewAssessmentService(
	assessments repository.AssessmentRepo,
	responses repository.ResponseRepo,
	concerns repository.HealthConcernRepo,
	patients repository.PatientRepo,
	assessmentCache cache.AssessmentCache,
	generator Generator,
	counter TokenCounter,
	cfg config.LLMConfig,
	log *logger.Logger,
) *AssessmentService {
	if log == nil {
		log = logger.Nop()
	}
	budget := cfg.ContextTokenBudget
	if budget > 0 {
		budget = cfg.EffectiveContextBudget(counter.Count(AssessmentSystemPrompt, cfg.Model))
		if budget < 1 {
			budget = 1
		}
	}
	return &AssessmentService{
		assessments: assessments,
		responses:   responses,
		concerns:    concerns,
		cache:       assessmentCache,
		gate:        NewCooldownGate(assessments, nil),
		assembler:   NewContextAssembler(patients, assessments, responses, nil),
		budgeter:    NewContextBudgeter(counter, cfg.Model, budget),
		generator:   generator,
		cfg:         cfg,
		log:         log.With("service", "AssessmentService"),
		now:         time.Now,
	}
}

// ownedConcern loads a health concern; absent and foreign both read as not found.
func (s *AssessmentService) ownedConcern(ctx context.Context, userID, healthConcernID string) (*model.HealthConcern, error) {
	hc, err := s.concerns.GetByID(ctx, healthConcernID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !hc.OwnedBy(userID) {
		return nil, apperr.NotFound("health concern")
	}
	return hc, nil
}

// CanGenerate reports the cooldown decision for a health concern.
func (s *AssessmentService) CanGenerate(ctx context.Context, userID, healthConcernID string) (CooldownDecision, error) {
	if _, err := s.ownedConcern(ctx, userID, healthConcernID); err != nil {
		return CooldownDecision{}, err
	}
	decision, err := s.gate.Check(ctx, userID, healthConcernID)
	if err != nil {
		return CooldownDecision{}, apperr.Internal(err)
	}
	return decision, nil
}

func (s *AssessmentService) fail(stage, userID, healthConcernID string, err error) {
	metrics.RecordGenerationFailure(stage)
	s.log.Warn("assessment generation failed",
		"stage", stage,
		"user_id", userID,
		"health_concern_id", healthConcernID,
		"error", err,
	)
}

// Generate runs cooldown check, context build, context budget, LLM call,
// output validation and persistence, in that order. Nothing is written
// unless every earlier stage succeeded.
func (s *AssessmentService) Generate(ctx context.Context, userID, healthConcernID string) (*model.Assessment, error) {
	hc, err := s.ownedConcern(ctx, userID, healthConcernID)
	if err != nil {
		return nil, err
	}
	log := s.log.With("user_id", userID, "health_concern_id", healthConcernID)

	log.Debug("generation stage", "stage", StageCooldownCheck)
	decision, err := s.gate.Check(ctx, userID, healthConcernID)
	if err != nil {
		s.fail(StageCooldownCheck, userID, healthConcernID, err)
		return nil, apperr.Internal(err)
	}
	if !decision.Allowed {
		s.fail(StageCooldownCheck, userID, healthConcernID, errCooldown)
		e := apperr.Conflict("COOLDOWN_ACTIVE", decision.Reason).
			WithMeta("daysRemaining", decision.DaysRemaining)
		if decision.LastAssessmentDate != nil {
			e.WithMeta("lastAssessmentDate", decision.LastAssessmentDate)
		}
		return nil, e
	}

	log.Debug("generation stage", "stage", StageContextBuild)
	gc, err := s.assembler.Build(ctx, userID, hc)
	if err != nil {
		s.fail(StageContextBuild, userID, healthConcernID, err)
		return nil, apperr.Internal(err)
	}

	log.Debug("generation stage", "stage", StageContextBudget)
	budgeted, err := s.budgeter.Fit(gc)
	if err != nil {
		s.fail(StageContextBudget, userID, healthConcernID, err)
		return nil, apperr.Internal(err)
	}
	if budgeted.Truncated {
		metrics.RecordContextTruncated()
		log.Info("generation context truncated",
			"original_tokens", budgeted.OriginalTokens,
			"tokens", budgeted.Tokens,
		)
	}

	log.Debug("generation stage", "stage", StageLLMCall, "context_tokens", budgeted.Tokens)
	res, err := s.generator.Generate(ctx, llm.Request{
		SystemPrompt:        AssessmentSystemPrompt,
		UserPrompt:          BuildAssessmentUserPrompt(budgeted.Text),
		Model:               s.cfg.Model,
		MaxCompletionTokens: s.cfg.MaxCompletionTokens,
		Temperature:         s.cfg.Temperature,
		JSONMode:            true,
	})
	if err != nil {
		s.fail(StageLLMCall, userID, healthConcernID, err)
		return nil, apperr.Upstream("assessment generation failed", err)
	}

	log.Debug("generation stage", "stage", StageResponseValidate)
	generated, err := ParseGeneratedAssessment(res.Content)
	if err != nil {
		s.fail(StageResponseValidate, userID, healthConcernID, err)
		return nil, apperr.Upstream("assessment generation returned an invalid questionnaire", err)
	}

	log.Debug("generation stage", "stage", StagePersist)
	a := &model.Assessment{
		UserID:                      userID,
		HealthConcernID:             healthConcernID,
		Severity:                    generated.Severity,
		MinDaysBeforeNextAssessment: generated.MinDays,
		Questions:                   generated.Questions,
		Metadata: model.GenerationMetadata{
			Model:         res.Model,
			PromptVersion: s.cfg.PromptVersion,
			Usage: model.TokenUsage{
				PromptTokens:     res.Usage.PromptTokens,
				CompletionTokens: res.Usage.CompletionTokens,
				TotalTokens:      res.Usage.TotalTokens,
			},
			LatencyMS:        res.Latency.Milliseconds(),
			ContextTokens:    budgeted.Tokens,
			ContextTruncated: budgeted.Truncated,
		},
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.assessments.Create(ctx, a); err != nil {
		s.fail(StagePersist, userID, healthConcernID, err)
		return nil, apperr.Internal(err)
	}

	s.cachePut(ctx, a)
	metrics.RecordAssessmentGenerated(string(a.Severity))
	log.Info("assessment generated",
		"assessment_id", a.ID,
		"severity", a.Severity,
		"questions", len(a.Questions),
		"latency_ms", a.Metadata.LatencyMS,
	)
	return a, nil
}

func (s *AssessmentService) cachePut(ctx context.Context, a *model.Assessment) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, a); err != nil {
		s.log.Warn("assessment cache write failed", "assessment_id", a.ID, "error", err)
	}
}

func (s *AssessmentService) load(ctx context.Context, id string) (*model.Assessment, error) {
	if s.cache != nil {
		a, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn("assessment cache read failed", "assessment_id", id, "error", err)
		} else if a != nil {
			return a, nil
		}
	}
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a != nil && a.IsActive {
		s.cachePut(ctx, a)
	}
	return a, nil
}

// GetByID returns an active assessment owned by userID.
func (s *AssessmentService) GetByID(ctx context.Context, userID, id string) (*model.Assessment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !a.OwnedBy(userID) || !a.IsActive {
		return nil, apperr.NotFound("assessment")
	}
	return a, nil
}

// Deactivate soft-deletes an assessment owned by userID.
func (s *AssessmentService) Deactivate(ctx context.Context, userID, id string) error {
	if _, err := s.GetByID(ctx, userID, id); err != nil {
		return err
	}
	changed, err := s.assessments.Deactivate(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.log.Warn("assessment cache evict failed", "assessment_id", id, "error", err)
		}
	}
	if !changed {
		return apperr.NotFound("assessment")
	}
	s.log.Info("assessment deactivated", "assessment_id", id, "user_id", userID)
	return nil
}

// HistoryQuery selects one page of history.
type HistoryQuery struct {
	HealthConcernID  string
	Page             int
	Limit            int
	IncludeResponses bool
}

type HistoryPage struct {
	Items      []model.AssessmentWithResponse `json:"items"`
	Page       int                            `json:"page"`
	Limit      int                            `json:"limit"`
	Total      int64                          `json:"total"`
	TotalPages int                            `json:"totalPages"`
}

// History lists active assessments newest first, optionally joined with
// their responses in one lookup.
func (s *AssessmentService) History(ctx context.Context, userID string, q HistoryQuery) (*HistoryPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > maxHistoryLimit {
		q.Limit = maxHistoryLimit
	}
	if q.Page > maxHistoryPage {
		return nil, apperr.Validation("invalid query", []string{fmt.Sprintf("page must be at most %d", maxHistoryPage)})
	}
	if q.HealthConcernID != "" {
		if _, err := s.ownedConcern(ctx, userID, q.HealthConcernID); err != nil {
			return nil, err
		}
	}

	list, total, err := s.assessments.History(ctx, repository.HistoryFilter{
		UserID:          userID,
		HealthConcernID: q.HealthConcernID,
		Skip:            int64(q.Page-1) * int64(q.Limit),
		Limit:           int64(q.Limit),
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	byAssessment := map[string]*model.AssessmentResponse{}
	if q.IncludeResponses && len(list) > 0 {
		ids := make([]string, len(list))
		for i, a := range list {
			ids[i] = a.ID
		}
		responses, err := s.responses.ListByAssessmentIDs(ctx, ids)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, r := range responses {
			byAssessment[r.AssessmentID] = r
		}
	}

	items := make([]model.AssessmentWithResponse, 0, len(list))
	for _, a := range list {
		items = append(items, model.AssessmentWithResponse{Assessment: a, Response: byAssessment[a.ID]})
	}
	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return &HistoryPage{Items: items, Page: q.Page, Limit: q.Limit, Total: total, TotalPages: pages}, nil
}
