package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"healthpulse/internal/model"
	"healthpulse/internal/repository"
)

const day = 24 * time.Hour

// CooldownDecision says whether a new assessment may be generated.
type CooldownDecision struct {
	Allowed            bool       `json:"allowed"`
	Reason             string     `json:"reason,omitempty"`
	DaysRemaining      int        `json:"daysRemaining,omitempty"`
	LastAssessmentDate *time.Time `json:"lastAssessmentDate,omitempty"`
}

// EvaluateCooldown applies the cooldown of the latest active assessment.
// Elapsed time is counted in whole 24h days, rounded down.
func EvaluateCooldown(last *model.Assessment, now time.Time) CooldownDecision {
	if last == nil {
		return CooldownDecision{Allowed: true}
	}
	created := last.CreatedAt
	elapsed := int(math.Floor(float64(now.Sub(created)) / float64(day)))
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= last.MinDaysBeforeNextAssessment {
		return CooldownDecision{Allowed: true, LastAssessmentDate: &created}
	}

	remaining := last.MinDaysBeforeNextAssessment - elapsed
	return CooldownDecision{
		Allowed:            false,
		Reason:             fmt.Sprintf("A new assessment for this health concern can be generated in %d day(s)", remaining),
		DaysRemaining:      remaining,
		LastAssessmentDate: &created,
	}
}

// CooldownGate reads the latest assessment on every call. Two concurrent
// requests for the same pair can both pass; no lock is taken.
type CooldownGate struct {
	assessments repository.AssessmentRepo
	now         func() time.Time
}

func NewCooldownGate(assessments repository.AssessmentRepo, now func() time.Time) *CooldownGate {
	if now == nil {
		now = time.Now
	}
	return &CooldownGate{assessments: assessments, now: now}
}

func (g *CooldownGate) Check(ctx context.Context, userID, healthConcernID string) (CooldownDecision, error) {
	last, err := g.assessments.LatestActive(ctx, userID, healthConcernID)
	if err != nil {
		return CooldownDecision{}, err
	}
	return EvaluateCooldown(last, g.now()), nil
}
