package service

import (
	"context"
	"time"

	"healthpulse/internal/model"
	"healthpulse/internal/repository"
)

// priorAssessmentLimit caps how many earlier assessments are summarized.
const priorAssessmentLimit = 3

// ContextAssembler gathers the patient state sent to the generator. It
// copies whitelisted fields into model.GenerationContext so nothing else
// (credentials, revision counters, prior answers or reports) can leak.
type ContextAssembler struct {
	patients    repository.PatientRepo
	assessments repository.AssessmentRepo
	responses   repository.ResponseRepo
	now         func() time.Time
}

func NewContextAssembler(
	patients repository.PatientRepo,
	assessments repository.AssessmentRepo,
	responses repository.ResponseRepo,
	now func() time.Time,
) *ContextAssembler {
	if now == nil {
		now = time.Now
	}
	return &ContextAssembler{
		patients:    patients,
		assessments: assessments,
		responses:   responses,
		now:         now,
	}
}

func (a *ContextAssembler) Build(ctx context.Context, userID string, hc *model.HealthConcern) (*model.GenerationContext, error) {
	gc := &model.GenerationContext{
		HealthConcern: model.ConcernContext{
			Title:          hc.Title,
			ChiefComplaint: hc.ChiefComplaint,
			Symptoms:       hc.Symptoms,
			Onset:          hc.Onset,
			Severity:       hc.Severity,
			Status:         string(hc.Status),
			Notes:          hc.Notes,
		},
	}

	profile, err := a.patients.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		if profile.BirthDate != nil {
			age := ageOn(*profile.BirthDate, a.now())
			gc.Patient.Age = &age
		}
		gc.Patient.Gender = profile.Gender
		if len(profile.MedicalHistory) > 0 {
			gc.MedicalHistory = profile.MedicalHistory
		}
	}

	prior, err := a.priorAssessments(ctx, userID, hc.ID)
	if err != nil {
		return nil, err
	}
	gc.PreviousAssessments = prior

	conditions, err := a.patients.ActiveChronicConditions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range conditions {
		gc.ChronicConditions = append(gc.ChronicConditions, model.ConditionContext{
			Name:        c.Name,
			Status:      c.Status,
			Medications: c.Medications,
		})
	}

	allergies, err := a.patients.ActiveAllergies(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, al := range allergies {
		gc.Allergies = append(gc.Allergies, model.AllergyContext{
			Allergen: al.Allergen,
			Reaction: al.Reaction,
			Severity: al.Severity,
		})
	}

	return gc, nil
}

func (a *ContextAssembler) priorAssessments(ctx context.Context, userID, healthConcernID string) ([]model.PriorAssessment, error) {
	recent, err := a.assessments.Recent(ctx, userID, healthConcernID, priorAssessmentLimit)
	if err != nil || len(recent) == 0 {
		return nil, err
	}

	ids := make([]string, len(recent))
	for i, as := range recent {
		ids[i] = as.ID
	}
	responses, err := a.responses.ListByAssessmentIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	answered := make(map[string]bool, len(responses))
	for _, r := range responses {
		answered[r.AssessmentID] = true
	}

	out := make([]model.PriorAssessment, 0, len(recent))
	for _, as := range recent {
		out = append(out, model.PriorAssessment{
			CreatedAt:     as.CreatedAt,
			Severity:      as.Severity,
			QuestionCount: len(as.Questions),
			Answered:      answered[as.ID],
		})
	}
	return out, nil
}

// ageOn returns whole years between birth and now.
func ageOn(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
