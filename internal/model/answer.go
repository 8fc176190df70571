package model

import "time"

// ReportStatus tracks the report generated from a response.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportProcessing ReportStatus = "processing"
	ReportCompleted  ReportStatus = "completed"
	ReportFailed     ReportStatus = "failed"
)

// Answer is one submitted answer. QuestionType is declared by the caller and
// must match the question it answers.
type Answer struct {
	QuestionID   string       `json:"questionId" bson:"questionId"`
	QuestionType QuestionType `json:"questionType" bson:"questionType"`
	Value        Value        `json:"value" bson:"value"`
}

// AssessmentResponse is the single response to an assessment.
type AssessmentResponse struct {
	ID              string                 `json:"id" bson:"_id"`
	AssessmentID    string                 `json:"assessmentId" bson:"assessmentId"` // unique
	UserID          string                 `json:"userId" bson:"userId"`
	HealthConcernID string                 `json:"healthConcernId" bson:"healthConcernId"`
	Answers         []Answer               `json:"answers" bson:"answers"`
	Notes           string                 `json:"notes,omitempty" bson:"notes,omitempty"`
	ReportStatus    ReportStatus           `json:"reportStatus" bson:"reportStatus"`
	Report          map[string]interface{} `json:"report,omitempty" bson:"report,omitempty"`
	CompletedAt     time.Time              `json:"completedAt" bson:"completedAt"`
	UpdatedAt       time.Time              `json:"updatedAt" bson:"updatedAt"`
}
