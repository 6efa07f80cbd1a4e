package app

import (
	"context"

	"quizdesk-service/internal/domain"
)

// Actor identifies the authenticated caller of a use case. Transport builds
// it from verified session claims; services never trust client-supplied ids.
type Actor struct {
	ID       string
	Username string
	Name     string
	Role     domain.Role
}

// IsAdmin reports whether the actor may author quizzes.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// UserStore abstracts how user documents are stored (in-memory, Postgres, etc).
// CreateUser must enforce username and email uniqueness and return
// domain.ErrConflict on a duplicate.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error)
}

// QuizStore persists quiz documents. DeleteQuizOwnedBy checks existence and
// ownership in the same lookup so a non-owner gets domain.ErrNotFound.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, id string) (domain.Quiz, error)
	ListActiveQuizzes(ctx context.Context) ([]domain.Quiz, error)
	DeleteQuizOwnedBy(ctx context.Context, quizID, ownerID string) error
}

// ResultStore persists result documents. Listings are newest-first by
// completion time.
type ResultStore interface {
	CreateResult(ctx context.Context, result domain.Result) error
	ListResults(ctx context.Context) ([]domain.Result, error)
	ListResultsByUser(ctx context.Context, userID string) ([]domain.Result, error)
}

// QuizReader is the cached quiz read path used by live attempts. Invalidate
// drops any cached copy so a deleted quiz cannot be served until its TTL runs out.
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// AttemptRegistry tracks live attempts by id.
type AttemptRegistry interface {
	Put(attempt *Attempt)
	Get(id string) (*Attempt, bool)
	Remove(id string)
}

// ResultSink is where a finished attempt delivers its result.
type ResultSink interface {
	RecordResult(ctx context.Context, actor Actor, submission domain.ResultSubmission) (domain.ResultView, error)
}
