// internal/models/record.go
package models

import "time"

// SubmissionRecord is the persisted form of a submission.
type SubmissionRecord struct {
	ID         string            `json:"id"`
	Submission CleanSubmission   `json:"submission"`
	Score      ScoreBreakdown    `json:"score"`
	Projection Projection        `json:"projection"`
	ClientIP   string            `json:"client_ip"`
	Flags      NotificationFlags `json:"flags"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
