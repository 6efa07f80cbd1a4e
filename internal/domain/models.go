package domain

import "time"

// Role distinguishes quiz authors from quiz takers.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Difficulty is the advertised difficulty of a quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// User is a registered account. PasswordHash never leaves the backend.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the view of a user safe to return to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Public strips credential material from a user record.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Question is embedded in a quiz; order is significant. Every question has
// exactly four options and CorrectOption indexes into them.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// Quiz is an authored set of questions. Quizzes are immutable after creation;
// the owning admin may hard-delete them.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Category         string     `json:"category"`
	Difficulty       Difficulty `json:"difficulty"`
	TimerEnabled     bool       `json:"timerEnabled"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	Questions        []Question `json:"questions"`
	CreatedBy        string     `json:"createdBy"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// QuizSummary is a listing view with the creator resolved.
type QuizSummary struct {
	Quiz
	CreatorName     string `json:"creatorName"`
	CreatorUsername string `json:"creatorUsername"`
}

// AnswerRecord is one scored answer inside a result. SelectedOption is -1
// when the question was left unanswered (or forfeited on timeout).
type AnswerRecord struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

// Result is the immutable record of one completed attempt.
type Result struct {
	ID               string         `json:"id"`
	QuizID           string         `json:"quizId"`
	UserID           string         `json:"userId"`
	Answers          []AnswerRecord `json:"answers"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"totalQuestions"`
	CorrectAnswers   int            `json:"correctAnswers"`
	TimeTakenSeconds int            `json:"timeTakenSeconds"`
	CompletedAt      time.Time      `json:"completedAt"`
}

// ResultView decorates a result with the resolved quiz title and, for admin
// listings, the student identity.
type ResultView struct {
	Result
	QuizTitle       string `json:"quizTitle"`
	StudentName     string `json:"studentName,omitempty"`
	StudentUsername string `json:"studentUsername,omitempty"`
}

// QuizDraft is the authoring input for a new quiz.
type QuizDraft struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Difficulty       Difficulty      `json:"difficulty"`
	TimerEnabled     *bool           `json:"timerEnabled"`
	TimeLimitMinutes int             `json:"timeLimit"`
	Questions        []QuestionDraft `json:"questions"`
}

// QuestionDraft is the authoring input for one question.
type QuestionDraft struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// ResultSubmission is what a client posts when recording a completed attempt.
// The user is never taken from the submission; it is forced to the
// authenticated actor.
type ResultSubmission struct {
	QuizID           string         `json:"quizId"`
	Answers          []AnswerRecord `json:"answers"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"totalQuestions"`
	CorrectAnswers   int            `json:"correctAnswers"`
	TimeTakenSeconds int            `json:"timeTaken"`
}
