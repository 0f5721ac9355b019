package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/store"
)

// PostgresExamStore implements store.ExamStore.
// The most recently inserted exam_config row is the active exam.
type PostgresExamStore struct {
	db store.DBTX
}

// NewPostgresExamStore creates a new PostgreSQL implementation of the ExamStore interface.
func NewPostgresExamStore(db store.DBTX) *PostgresExamStore {
	return &PostgresExamStore{db: db}
}

var _ store.ExamStore = (*PostgresExamStore)(nil)

// GetConfig implements store.ExamStore.GetConfig
func (s *PostgresExamStore) GetConfig(ctx context.Context) (*domain.ExamConfig, error) {
	var cfg domain.ExamConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT exam_name, start_time, duration_minutes
		FROM exam_config
		ORDER BY id DESC
		LIMIT 1`,
	).Scan(&cfg.ExamName, &cfg.StartTime, &cfg.DurationMinutes)
	if err != nil {
		return nil, mapNotFound(err, store.ErrExamConfigNotFound)
	}
	return &cfg, nil
}

// ListQuestions implements store.ExamStore.ListQuestions.
// Options are stored as a JSON array.
func (s *PostgresExamStore) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, prompt, options
		FROM exam_questions
		ORDER BY number ASC`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q       domain.Question
			options []byte
		)
		if err := rows.Scan(&q.Number, &q.Prompt, &options); err != nil {
			return nil, MapError(err)
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("decode options for question %d: %w", q.Number, err)
			}
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return questions, nil
}
