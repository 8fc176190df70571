package model

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh:
		return true
	}
	return false
}

type TokenUsage struct {
	PromptTokens     int `json:"promptTokens" bson:"promptTokens"`
	CompletionTokens int `json:"completionTokens" bson:"completionTokens"`
	TotalTokens      int `json:"totalTokens" bson:"totalTokens"`
}

// GenerationMetadata is informational only.
type GenerationMetadata struct {
	Model            string     `json:"model" bson:"model"`
	PromptVersion    string     `json:"promptVersion" bson:"promptVersion"`
	Usage            TokenUsage `json:"usage" bson:"usage"`
	LatencyMS        int64      `json:"latencyMs" bson:"latencyMs"`
	ContextTokens    int        `json:"contextTokens" bson:"contextTokens"`
	ContextTruncated bool       `json:"contextTruncated" bson:"contextTruncated"`
}

// Assessment is a generated questionnaire. It is immutable once persisted
// apart from IsActive.
type Assessment struct {
	ID                          string             `json:"id" bson:"_id"`
	UserID                      string             `json:"userId" bson:"userId"`
	HealthConcernID             string             `json:"healthConcernId" bson:"healthConcernId"`
	Severity                    Severity           `json:"severity" bson:"severity"`
	MinDaysBeforeNextAssessment int                `json:"minDaysBeforeNextAssessment" bson:"minDaysBeforeNextAssessment"`
	Questions                   []Question         `json:"questions" bson:"questions"`
	Metadata                    GenerationMetadata `json:"metadata" bson:"metadata"`
	IsActive                    bool               `json:"isActive" bson:"isActive"`
	CreatedAt                   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt                   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// QuestionByID returns the question with the given id.
func (a *Assessment) QuestionByID(id string) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID() == id {
			return q, true
		}
	}
	return Question{}, false
}

// OwnedBy reports whether userID owns the assessment.
func (a *Assessment) OwnedBy(userID string) bool {
	return a != nil && userID != "" && a.UserID == userID
}

// AssessmentWithResponse is a history entry, optionally joined with its response.
type AssessmentWithResponse struct {
	*Assessment
	Response *AssessmentResponse `json:"response,omitempty"`
}
