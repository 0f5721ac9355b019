// Package assessment serves the scheduled exam: its configuration and
// questions, stamped with the server clock so clients can correct skew.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/platform/logger"
	"github.com/phrazzld/lingua-api/internal/redact"
	"github.com/phrazzld/lingua-api/internal/store"
	"golang.org/x/sync/errgroup"
)

const bundleKey = "exam:bundle"

// Bundle is everything a client needs to run an exam session.
type Bundle struct {
	Config     domain.ExamConfig `json:"config"`
	Questions  []domain.Question `json:"questions"`
	ServerTime time.Time         `json:"server_time"`
}

// Service fetches the exam bundle.
type Service interface {
	// GetExam returns the exam configuration and questions.
	// Returns store.ErrExamConfigNotFound if no exam is configured.
	GetExam(ctx context.Context) (*Bundle, error)
}

type serviceImpl struct {
	exams  store.ExamStore
	cache  store.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

var _ Service = (*serviceImpl)(nil)

// NewService creates an assessment Service. A nil cache disables caching.
func NewService(exams store.ExamStore, cache store.Cache, ttl time.Duration, logger *slog.Logger) Service {
	if exams == nil {
		panic("exams cannot be nil")
	}
	if cache == nil {
		cache = store.NopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &serviceImpl{
		exams:  exams,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With(slog.String("component", "assessment_service")),
	}
}

// cachedBundle is the cached part of a Bundle; ServerTime is always fresh.
type cachedBundle struct {
	Config    domain.ExamConfig `json:"config"`
	Questions []domain.Question `json:"questions"`
}

// GetExam implements Service.GetExam.
// Config and questions are loaded concurrently.
func (s *serviceImpl) GetExam(ctx context.Context) (*Bundle, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var cached cachedBundle
	err := s.cache.GetJSON(ctx, bundleKey, &cached)
	if err == nil {
		return &Bundle{Config: cached.Config, Questions: cached.Questions, ServerTime: s.now().UTC()}, nil
	}
	if !errors.Is(err, store.ErrCacheMiss) {
		log.Warn("exam cache read failed", slog.String("error", redact.Error(err)))
	}

	var (
		cfg       *domain.ExamConfig
		questions []domain.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cfg, err = s.exams.GetConfig(gctx)
		if err != nil {
			return fmt.Errorf("failed to load exam config: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		questions, err = s.exams.ListQuestions(gctx)
		if err != nil {
			return fmt.Errorf("failed to load exam questions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		log.Error("stored exam config is invalid", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if err := s.cache.SetJSON(ctx, bundleKey, cachedBundle{Config: *cfg, Questions: questions}, s.ttl); err != nil {
		log.Warn("exam cache write failed", slog.String("error", redact.Error(err)))
	}

	return &Bundle{Config: *cfg, Questions: questions, ServerTime: s.now().UTC()}, nil
}
