package store

import (
	"context"

	"github.com/phrazzld/lingua-api/internal/domain"
)

// ExamStore provides read access to the configured assessment.
type ExamStore interface {
	// GetConfig returns the current exam configuration.
	// Returns ErrExamConfigNotFound if no exam is configured.
	GetConfig(ctx context.Context) (*domain.ExamConfig, error)

	// ListQuestions returns the exam questions ordered by number.
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}
