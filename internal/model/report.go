package model

import "time"

// ReportJob asks the report worker to build the report for one response.
type ReportJob struct {
	ID           string    `json:"id"`
	ResponseID   string    `json:"responseId"`
	AssessmentID string    `json:"assessmentId"`
	UserID       string    `json:"userId"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
}
