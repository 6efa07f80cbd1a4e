package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizdesk-service/internal/domain"
)

// ResultService implements results reporting: recording completed attempts
// and role-scoped listing.
type ResultService struct {
	results ResultStore
	quizzes QuizStore
	users   UserStore
	now     func() time.Time
}

func NewResultService(results ResultStore, quizzes QuizStore, users UserStore) *ResultService {
	return &ResultService{results: results, quizzes: quizzes, users: users, now: time.Now}
}

// NewResultServiceWithClock is test-only for deterministic timestamps.
func NewResultServiceWithClock(results ResultStore, quizzes QuizStore, users UserStore, now func() time.Time) *ResultService {
	s := NewResultService(results, quizzes, users)
	s.now = now
	return s
}

// RecordResult stores a completed attempt. The owning user is always the
// authenticated actor, never the submission, so a result cannot be spoofed
// for someone else.
func (s *ResultService) RecordResult(ctx context.Context, actor Actor, sub domain.ResultSubmission) (domain.ResultView, error) {
	if actor.ID == "" {
		return domain.ResultView{}, domain.ErrUnauthorized
	}
	if sub.QuizID == "" {
		return domain.ResultView{}, fmt.Errorf("%w: quiz id is required", domain.ErrValidation)
	}
	if sub.Score < 0 || sub.Score > 100 {
		return domain.ResultView{}, fmt.Errorf("%w: score must be between 0 and 100", domain.ErrValidation)
	}
	if sub.TotalQuestions < 0 || sub.CorrectAnswers < 0 || sub.CorrectAnswers > sub.TotalQuestions {
		return domain.ResultView{}, fmt.Errorf("%w: inconsistent answer counts", domain.ErrValidation)
	}

	result := domain.Result{
		ID:               uuid.NewString(),
		QuizID:           sub.QuizID,
		UserID:           actor.ID,
		Answers:          sub.Answers,
		Score:            sub.Score,
		TotalQuestions:   sub.TotalQuestions,
		CorrectAnswers:   sub.CorrectAnswers,
		TimeTakenSeconds: sub.TimeTakenSeconds,
		CompletedAt:      s.now(),
	}
	if err := s.results.CreateResult(ctx, result); err != nil {
		return domain.ResultView{}, err
	}

	view := domain.ResultView{Result: result, StudentName: actor.Name, StudentUsername: actor.Username}
	// A dangling quiz reference is tolerated: the quiz may have been deleted
	// after the attempt started.
	if quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizID); err == nil {
		view.QuizTitle = quiz.Title
	}
	return view, nil
}

// ListResults returns results newest-first. Admins see every result with the
// student identity resolved; students see only their own.
func (s *ResultService) ListResults(ctx context.Context, actor Actor) ([]domain.ResultView, error) {
	if actor.ID == "" {
		return nil, domain.ErrUnauthorized
	}

	var (
		results []domain.Result
		err     error
	)
	if actor.IsAdmin() {
		results, err = s.results.ListResults(ctx)
	} else {
		results, err = s.results.ListResultsByUser(ctx, actor.ID)
	}
	if err != nil {
		return nil, err
	}

	views := make([]domain.ResultView, 0, len(results))
	titles := make(map[string]string)
	var students map[string]domain.User
	if actor.IsAdmin() {
		ids := make([]string, 0, len(results))
		seen := make(map[string]struct{}, len(results))
		for _, r := range results {
			if _, ok := seen[r.UserID]; !ok {
				seen[r.UserID] = struct{}{}
				ids = append(ids, r.UserID)
			}
		}
		if students, err = s.users.GetUsers(ctx, ids); err != nil {
			return nil, err
		}
	}

	for _, r := range results {
		view := domain.ResultView{Result: r}
		title, ok := titles[r.QuizID]
		if !ok {
			if quiz, qerr := s.quizzes.GetQuiz(ctx, r.QuizID); qerr == nil {
				title = quiz.Title
			}
			titles[r.QuizID] = title
		}
		view.QuizTitle = title
		if actor.IsAdmin() {
			if student, ok := students[r.UserID]; ok {
				view.StudentName = student.Name
				view.StudentUsername = student.Username
			}
		}
		views = append(views, view)
	}
	return views, nil
}
