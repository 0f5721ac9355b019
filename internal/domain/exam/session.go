// Package exam implements the timed assessment session: a state machine that
// keeps an exam locked until its configured start time and then counts down
// the exam duration one tick at a time.
//
// The session never reads the clock itself. Every transition is driven by the
// time value carried by a tick, which keeps the machine deterministic under
// test and lets callers substitute a server-corrected clock.
package exam

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phrazzld/lingua-api/internal/domain"
)

// State is a lifecycle state of a Session.
type State string

// Session states
const (
	StateAwaitingConfig State = "awaiting_config"
	StateScheduled      State = "scheduled"
	StateInProgress     State = "in_progress"
	StateFinished       State = "finished"
	StateErrored        State = "errored"
)

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateErrored
}

// Session errors
var (
	// ErrInvalidTransition is returned when an event is not accepted in the
	// session's current state.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// View is a read-only snapshot of a session for display.
type View struct {
	State            State  `json:"state"`
	ExamName         string `json:"exam_name,omitempty"`
	QuestionCount    int    `json:"question_count"`
	RemainingSeconds int    `json:"remaining_seconds"`
	// Countdown is the time left until the exam opens, formatted HH:MM:SS.
	// It is only set while the session is scheduled.
	Countdown string `json:"countdown,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Session is the state machine for one assessment screen instance.
// Tick is meant to be called from a single goroutine; Complete and View are
// safe to call concurrently with it.
type Session struct {
	mu        sync.Mutex
	state     State
	config    domain.ExamConfig
	questions []domain.Question
	remaining int
	err       error
}

// NewSession returns a session awaiting its config.
func NewSession() *Session {
	return &Session{state: StateAwaitingConfig}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemainingSeconds returns the seconds left while in progress.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Questions returns the question set loaded into the session.
func (s *Session) Questions() []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Err returns the failure that moved the session to StateErrored.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Load accepts the fetched config and questions and schedules the exam.
// An invalid config is fatal to the session.
func (s *Session) Load(cfg domain.ExamConfig, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingConfig {
		return fmt.Errorf("%w: load in state %s", ErrInvalidTransition, s.state)
	}

	if err := cfg.Validate(); err != nil {
		s.state = StateErrored
		s.err = fmt.Errorf("invalid exam config: %w", err)
		return s.err
	}

	s.config = cfg
	s.questions = append([]domain.Question(nil), questions...)
	s.state = StateScheduled
	return nil
}

// Fail records a config or question fetch failure. The session is terminal
// afterwards and is never retried.
func (s *Session) Fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingConfig {
		return fmt.Errorf("%w: fail in state %s", ErrInvalidTransition, s.state)
	}
	if err == nil {
		err = errors.New("unknown fetch failure")
	}
	s.state = StateErrored
	s.err = err
	return nil
}

// Tick advances the session by one clock tick observed at now and reports
// whether the state changed.
//
// While scheduled, the first tick with now at or after the start time opens
// the exam with the full duration on the clock. While in progress, every tick
// takes one second off, never going below zero, and reaching zero finishes
// the exam. Ticks in any other state are ignored.
func (s *Session) Tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateScheduled:
		if now.Before(s.config.StartTime) {
			return false
		}
		s.state = StateInProgress
		s.remaining = s.config.DurationMinutes * 60
		return true

	case StateInProgress:
		if s.remaining > 0 {
			s.remaining--
		}
		if s.remaining == 0 {
			s.state = StateFinished
			return true
		}
		return false

	default:
		return false
	}
}

// Complete finishes an in-progress exam early, for example when the user
// submits their answers.
func (s *Session) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return fmt.Errorf("%w: complete in state %s", ErrInvalidTransition, s.state)
	}
	s.state = StateFinished
	return nil
}

// View returns a display snapshot at now.
func (s *Session) View(now time.Time) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:            s.state,
		ExamName:         s.config.ExamName,
		QuestionCount:    len(s.questions),
		RemainingSeconds: s.remaining,
	}
	if s.state == StateScheduled {
		v.Countdown = FormatCountdown(s.config.StartTime.Sub(now))
	}
	if s.err != nil {
		v.Error = s.err.Error()
	}
	return v
}

// FormatCountdown renders d as HH:MM:SS, clamping negative values to zero.
// Hours are not wrapped at 24.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
