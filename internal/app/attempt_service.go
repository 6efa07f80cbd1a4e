package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizdesk-service/internal/config"
	"quizdesk-service/internal/domain"
)

// AttemptService starts and tracks live attempts. Each attempt owns its own
// countdown; the service only routes lookups and makes sure abandoned
// attempts have their timers cancelled.
type AttemptService struct {
	quizzes  QuizReader
	sink     ResultSink
	registry AttemptRegistry
	policy   config.SavePolicy
	retries  int

	now      func() time.Time
	tickUnit time.Duration
}

func NewAttemptService(quizzes QuizReader, sink ResultSink, registry AttemptRegistry, policy config.SavePolicy, retries int) *AttemptService {
	return &AttemptService{
		quizzes:  quizzes,
		sink:     sink,
		registry: registry,
		policy:   policy,
		retries:  retries,
		now:      time.Now,
		tickUnit: time.Second,
	}
}

// NewAttemptServiceWithClock is test-only: it injects the clock and the
// countdown tick unit so timeouts can be exercised without real seconds.
func NewAttemptServiceWithClock(quizzes QuizReader, sink ResultSink, registry AttemptRegistry, policy config.SavePolicy, retries int, now func() time.Time, tickUnit time.Duration) *AttemptService {
	s := NewAttemptService(quizzes, sink, registry, policy, retries)
	s.now = now
	if tickUnit > 0 {
		s.tickUnit = tickUnit
	}
	return s
}

// Start begins an attempt on a quiz for the actor. A quiz with no questions
// cannot be started.
func (s *AttemptService) Start(ctx context.Context, actor Actor, quizID string) (*Attempt, error) {
	if actor.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	attempt := newAttempt(uuid.NewString(), quiz, actor, s.sink, s.policy, s.retries, s.now, s.tickUnit)
	s.registry.Put(attempt)
	return attempt, nil
}

// Get looks up a live attempt by id.
func (s *AttemptService) Get(id string) (*Attempt, bool) {
	return s.registry.Get(id)
}

// Abandon stops an attempt's countdown and removes it from the registry.
// Called when the student navigates away or the connection drops.
func (s *AttemptService) Abandon(id string) {
	attempt, ok := s.registry.Get(id)
	if !ok {
		return
	}
	attempt.Close()
	s.registry.Remove(id)
}
