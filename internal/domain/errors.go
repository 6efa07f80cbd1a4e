package domain

import "errors"

var (
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("invalid input")
	// ErrUnauthorized is returned when no valid session accompanies a request.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when the actor's role does not permit the operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrNotFound is returned when the referenced document does not exist.
	// Quiz deletion also returns it for quizzes owned by someone else, so a
	// non-owner cannot tell "missing" from "not yours".
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredentials covers unknown user, deactivated account, and
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNoQuestions is returned when an attempt is started on a quiz with no questions.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrAttemptFinished is returned when submitting an attempt that is no
	// longer in progress.
	ErrAttemptFinished = errors.New("attempt already finished")
)
