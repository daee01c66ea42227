package storage

import "interview-coach/internal/api"

// InterviewResult - архивная копия завершенного интервью
type InterviewResult struct {
	InterviewID string `json:"interview_id"`
	// Timestamp - момент сохранения в RFC 3339
	Timestamp string               `json:"timestamp"`
	Interview api.Interview        `json:"interview"`
	Feedback  *api.FeedbackSummary `json:"feedback,omitempty"`
}
