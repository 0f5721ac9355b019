package domain

import (
	"errors"
	"time"
)

// Exam validation errors
var (
	ErrEmptyExamName    = errors.New("exam name cannot be empty")
	ErrMissingStartTime = errors.New("exam start time must be set")
	ErrInvalidDuration  = errors.New("exam duration must be greater than zero")
)

// ExamConfig describes the single scheduled assessment: when it opens and
// how long it runs once opened.
type ExamConfig struct {
	ExamName        string    `json:"exam_name"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Validate checks if the ExamConfig can drive a session.
func (c *ExamConfig) Validate() error {
	if c.ExamName == "" {
		return ErrEmptyExamName
	}
	if c.StartTime.IsZero() {
		return ErrMissingStartTime
	}
	if c.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// Duration returns the configured exam length.
func (c *ExamConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// Question is one exam question; Number orders the set.
type Question struct {
	Number  int      `json:"number"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
}
