package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizdesk-service/internal/domain"
)

const (
	optionsPerQuestion      = 4
	defaultTimeLimitMinutes = 30
)

// QuizService implements quiz authoring: create, list, delete.
type QuizService struct {
	quizzes QuizStore
	users   UserStore
	cache   QuizReader
	now     func() time.Time
}

func NewQuizService(quizzes QuizStore, users UserStore, cache QuizReader) *QuizService {
	return &QuizService{quizzes: quizzes, users: users, cache: cache, now: time.Now}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(quizzes QuizStore, users UserStore, cache QuizReader, now func() time.Time) *QuizService {
	s := NewQuizService(quizzes, users, cache)
	s.now = now
	return s
}

// CreateQuiz validates the draft and persists it owned by the actor. The
// client UI pre-validates, but this path is the authority. Question ids are
// generated here, once, and never derived from array position later.
func (s *QuizService) CreateQuiz(ctx context.Context, actor Actor, draft domain.QuizDraft) (domain.QuizSummary, error) {
	if !actor.IsAdmin() {
		return domain.QuizSummary{}, domain.ErrForbidden
	}
	if err := validateDraft(draft); err != nil {
		return domain.QuizSummary{}, err
	}

	difficulty := draft.Difficulty
	switch difficulty {
	case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
	case "":
		difficulty = domain.DifficultyMedium
	default:
		return domain.QuizSummary{}, fmt.Errorf("%w: unknown difficulty %q", domain.ErrValidation, draft.Difficulty)
	}

	timerEnabled := true
	if draft.TimerEnabled != nil {
		timerEnabled = *draft.TimerEnabled
	}
	timeLimit := draft.TimeLimitMinutes
	if timeLimit <= 0 {
		timeLimit = defaultTimeLimitMinutes
	}

	questions := make([]domain.Question, 0, len(draft.Questions))
	for _, q := range draft.Questions {
		questions = append(questions, domain.Question{
			ID:            uuid.NewString(),
			Text:          strings.TrimSpace(q.Text),
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
		})
	}

	quiz := domain.Quiz{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(draft.Title),
		Description:      strings.TrimSpace(draft.Description),
		Category:         strings.TrimSpace(draft.Category),
		Difficulty:       difficulty,
		TimerEnabled:     timerEnabled,
		TimeLimitMinutes: timeLimit,
		Questions:        questions,
		CreatedBy:        actor.ID,
		IsActive:         true,
		CreatedAt:        s.now(),
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return domain.QuizSummary{}, err
	}
	return domain.QuizSummary{Quiz: quiz, CreatorName: actor.Name, CreatorUsername: actor.Username}, nil
}

// DeleteQuiz hard-deletes a quiz the actor owns. A quiz owned by another
// admin produces the same ErrNotFound as a missing id, so existence is not
// leaked to non-owners. The cached document is evicted so new attempts cannot
// start on the deleted quiz for the remainder of its TTL.
func (s *QuizService) DeleteQuiz(ctx context.Context, actor Actor, quizID string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	if err := s.quizzes.DeleteQuizOwnedBy(ctx, quizID, actor.ID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, quizID)
	return nil
}

// ListQuizzes returns active quizzes newest-first with creators resolved.
// This is a public read; no actor is required.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	quizzes, err := s.quizzes.ListActiveQuizzes(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(quizzes))
	seen := make(map[string]struct{}, len(quizzes))
	for _, q := range quizzes {
		if _, ok := seen[q.CreatedBy]; !ok {
			seen[q.CreatedBy] = struct{}{}
			ids = append(ids, q.CreatedBy)
		}
	}
	creators, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		summary := domain.QuizSummary{Quiz: q}
		if creator, ok := creators[q.CreatedBy]; ok {
			summary.CreatorName = creator.Name
			summary.CreatorUsername = creator.Username
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func validateDraft(draft domain.QuizDraft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(draft.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", domain.ErrValidation)
	}
	for i, q := range draft.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question %d has no text", domain.ErrValidation, i+1)
		}
		if len(q.Options) != optionsPerQuestion {
			return fmt.Errorf("%w: question %d must have exactly %d options", domain.ErrValidation, i+1, optionsPerQuestion)
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("%w: question %d has a blank option", domain.ErrValidation, i+1)
			}
		}
		if q.CorrectOption < 0 || q.CorrectOption >= optionsPerQuestion {
			return fmt.Errorf("%w: question %d correct option out of range", domain.ErrValidation, i+1)
		}
	}
	return nil
}
