package model

import "time"

// GenerationContext is the projection of patient state sent to the LLM.
// Only whitelisted fields are copied in; credentials, revision counters
// and prior answers or reports never appear here.
type GenerationContext struct {
	Patient             PatientContext     `json:"patient"`
	HealthConcern       ConcernContext     `json:"healthConcern"`
	PreviousAssessments []PriorAssessment  `json:"previousAssessments,omitempty"`
	ChronicConditions   []ConditionContext `json:"chronicConditions,omitempty"`
	Allergies           []AllergyContext   `json:"allergies,omitempty"`
	MedicalHistory      []string           `json:"medicalHistory,omitempty"`
}

type PatientContext struct {
	Age    *int   `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

type ConcernContext struct {
	Title          string   `json:"title"`
	ChiefComplaint string   `json:"chiefComplaint,omitempty"`
	Symptoms       []string `json:"symptoms,omitempty"`
	Onset          string   `json:"onset,omitempty"`
	Severity       string   `json:"severity,omitempty"`
	Status         string   `json:"status,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

// PriorAssessment summarizes an earlier assessment without its answers.
type PriorAssessment struct {
	CreatedAt     time.Time `json:"createdAt"`
	Severity      Severity  `json:"severity"`
	QuestionCount int       `json:"questionCount"`
	Answered      bool      `json:"answered"`
}

type ConditionContext struct {
	Name        string   `json:"name"`
	Status      string   `json:"status,omitempty"`
	Medications []string `json:"medications,omitempty"`
}

type AllergyContext struct {
	Allergen string `json:"allergen"`
	Reaction string `json:"reaction,omitempty"`
	Severity string `json:"severity,omitempty"`
}
