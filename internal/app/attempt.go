package app

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"quizdesk-service/internal/config"
	"quizdesk-service/internal/domain"
)

// AttemptState is the lifecycle phase of a live attempt.
type AttemptState string

const (
	AttemptInProgress AttemptState = "in_progress"
	AttemptSubmitting AttemptState = "submitting"
	AttemptCompleted  AttemptState = "completed"
)

// AttemptSnapshot is a point-in-time view pushed to subscribers on every
// countdown tick and state transition.
type AttemptSnapshot struct {
	AttemptID            string         `json:"attemptId"`
	QuizID               string         `json:"quizId"`
	State                AttemptState   `json:"state"`
	QuestionIndex        int            `json:"questionIndex"`
	Answered             int            `json:"answered"`
	TimeRemainingSeconds *int           `json:"timeRemainingSeconds,omitempty"`
	Expired              bool           `json:"expired"`
	Result               *domain.Result `json:"result,omitempty"`
}

// Attempt is one student's run through one quiz. All answer handling and the
// countdown share a single mutex, so no two transitions are ever in flight
// concurrently; the submitting flag makes submission exactly-once across the
// manual and forced paths.
type Attempt struct {
	id    string
	quiz  domain.Quiz
	actor Actor

	sink    ResultSink
	policy  config.SavePolicy
	retries int

	now      func() time.Time
	tickUnit time.Duration

	mu          sync.Mutex
	state       AttemptState
	index       int
	answers     map[string]int
	questionIDs map[string]struct{}
	startedAt   time.Time
	hasTimer    bool
	remaining   int
	expired     bool
	submitting  bool
	result      *domain.Result
	subscribers map[chan AttemptSnapshot]struct{}

	stop      chan struct{}
	stopOnce  sync.Once
	timerDone chan struct{}
}

func newAttempt(id string, quiz domain.Quiz, actor Actor, sink ResultSink, policy config.SavePolicy, retries int, now func() time.Time, tickUnit time.Duration) *Attempt {
	ids := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		ids[q.ID] = struct{}{}
	}
	a := &Attempt{
		id:          id,
		quiz:        quiz,
		actor:       actor,
		sink:        sink,
		policy:      policy,
		retries:     retries,
		now:         now,
		tickUnit:    tickUnit,
		state:       AttemptInProgress,
		answers:     make(map[string]int),
		questionIDs: ids,
		startedAt:   now(),
		subscribers: make(map[chan AttemptSnapshot]struct{}),
		stop:        make(chan struct{}),
		timerDone:   make(chan struct{}),
	}
	if quiz.TimerEnabled && quiz.TimeLimitMinutes > 0 {
		a.hasTimer = true
		a.remaining = quiz.TimeLimitMinutes * 60
		go a.runCountdown()
	} else {
		close(a.timerDone)
	}
	return a
}

// ID returns the attempt identifier.
func (a *Attempt) ID() string { return a.id }

// Quiz returns the quiz being taken.
func (a *Attempt) Quiz() domain.Quiz { return a.quiz }

// runCountdown decrements the remaining time once per tick unit and triggers
// the forced submission exactly once when it reaches zero. The goroutine
// exits on expiry, manual submission, or abandonment.
func (a *Attempt) runCountdown() {
	defer close(a.timerDone)
	ticker := time.NewTicker(a.tickUnit)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			if a.tick() {
				a.forceSubmit()
				return
			}
		}
	}
}

// tick advances the countdown by one second and reports whether time just ran out.
func (a *Attempt) tick() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptInProgress || a.expired {
		return false
	}
	a.remaining--
	if a.remaining <= 0 {
		a.remaining = 0
		a.expired = true
		a.broadcastLocked()
		return true
	}
	a.broadcastLocked()
	return false
}

// Answer records or overwrites the selected option for a question. It is a
// silent no-op once the attempt is submitting, completed, or expired, for
// question ids the quiz does not contain, and for option indexes outside the
// valid range, so a persisted result never carries an index the quiz could
// not have offered.
func (a *Attempt) Answer(questionID string, option int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptInProgress || a.expired || a.submitting {
		return
	}
	if _, ok := a.questionIDs[questionID]; !ok {
		return
	}
	if option < 0 || option >= optionsPerQuestion {
		return
	}
	a.answers[questionID] = option
	a.broadcastLocked()
}

// Next moves to the following question, clamped at the last one.
func (a *Attempt) Next() {
	a.step(1)
}

// Prev moves to the preceding question, clamped at the first one.
func (a *Attempt) Prev() {
	a.step(-1)
}

func (a *Attempt) step(delta int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptInProgress || a.expired || a.submitting {
		return
	}
	next := a.index + delta
	if next < 0 {
		next = 0
	}
	if last := len(a.quiz.Questions) - 1; next > last {
		next = last
	}
	if next != a.index {
		a.index = next
		a.broadcastLocked()
	}
}

// Submit is the manual submission path. It scores the collected answers,
// persists the result, and completes the attempt. A second call while the
// first is still in flight, or after expiry, returns ErrAttemptFinished.
func (a *Attempt) Submit(ctx context.Context) (domain.Result, error) {
	a.mu.Lock()
	if a.state != AttemptInProgress || a.expired || a.submitting {
		a.mu.Unlock()
		return domain.Result{}, domain.ErrAttemptFinished
	}
	a.submitting = true
	a.state = AttemptSubmitting
	correct, records := scoreAnswers(a.quiz.Questions, a.answers)
	timeTaken := int(a.now().Sub(a.startedAt).Seconds())
	a.broadcastLocked()
	a.mu.Unlock()

	a.stopCountdown()

	total := len(a.quiz.Questions)
	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}
	result := a.persist(ctx, domain.ResultSubmission{
		QuizID:           a.quiz.ID,
		Answers:          records,
		Score:            score,
		TotalQuestions:   total,
		CorrectAnswers:   correct,
		TimeTakenSeconds: timeTaken,
	})
	a.complete(result)
	return result, nil
}

// forceSubmit is the timeout path. The collected answers are discarded:
// timeout means total forfeiture, score 0 and every answer recorded as
// unanswered and incorrect.
func (a *Attempt) forceSubmit() {
	a.mu.Lock()
	if a.submitting || a.state != AttemptInProgress {
		a.mu.Unlock()
		return
	}
	a.submitting = true
	a.state = AttemptSubmitting
	timeTaken := int(a.now().Sub(a.startedAt).Seconds())
	a.broadcastLocked()
	a.mu.Unlock()

	records := make([]domain.AnswerRecord, 0, len(a.quiz.Questions))
	for _, q := range a.quiz.Questions {
		records = append(records, domain.AnswerRecord{QuestionID: q.ID, SelectedOption: -1, IsCorrect: false})
	}
	result := a.persist(context.Background(), domain.ResultSubmission{
		QuizID:           a.quiz.ID,
		Answers:          records,
		Score:            0,
		TotalQuestions:   len(a.quiz.Questions),
		CorrectAnswers:   0,
		TimeTakenSeconds: timeTaken,
	})
	a.complete(result)
}

// persist delivers the submission to the sink under the configured save
// policy. On failure the locally computed result is still returned so the
// student sees their score; the loss is logged.
func (a *Attempt) persist(ctx context.Context, sub domain.ResultSubmission) domain.Result {
	attempts := 1
	if a.policy == config.SaveRetry && a.retries > 0 {
		attempts += a.retries
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		view, err := a.sink.RecordResult(ctx, a.actor, sub)
		if err == nil {
			return view.Result
		}
		lastErr = err
	}
	log.Printf("attempt %s: result not recorded after %d attempt(s): %v", a.id, attempts, lastErr)
	return domain.Result{
		QuizID:           sub.QuizID,
		UserID:           a.actor.ID,
		Answers:          sub.Answers,
		Score:            sub.Score,
		TotalQuestions:   sub.TotalQuestions,
		CorrectAnswers:   sub.CorrectAnswers,
		TimeTakenSeconds: sub.TimeTakenSeconds,
		CompletedAt:      a.now(),
	}
}

func (a *Attempt) complete(result domain.Result) {
	a.mu.Lock()
	a.state = AttemptCompleted
	a.submitting = false
	a.result = &result
	a.broadcastLocked()
	a.mu.Unlock()
}

// Close cancels the countdown and waits for it to stop firing. Safe to call
// multiple times and in any state; abandonment must never leak a timer.
func (a *Attempt) Close() {
	a.stopCountdown()
	<-a.timerDone
}

func (a *Attempt) stopCountdown() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// Subscribe returns a channel of state snapshots, starting with the current
// one. The caller must invoke the returned cancel function to avoid leaks.
func (a *Attempt) Subscribe() (<-chan AttemptSnapshot, func()) {
	ch := make(chan AttemptSnapshot, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	initial := a.snapshotLocked()
	a.mu.Unlock()

	ch <- initial

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the current state view.
func (a *Attempt) Snapshot() AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Attempt) broadcastLocked() {
	snap := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow consumer never blocks a tick.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (a *Attempt) snapshotLocked() AttemptSnapshot {
	snap := AttemptSnapshot{
		AttemptID:     a.id,
		QuizID:        a.quiz.ID,
		State:         a.state,
		QuestionIndex: a.index,
		Answered:      len(a.answers),
		Expired:       a.expired,
		Result:        a.result,
	}
	if a.hasTimer {
		remaining := a.remaining
		snap.TimeRemainingSeconds = &remaining
	}
	return snap
}

// scoreAnswers walks the questions in order and grades each against the
// answer map. Unanswered questions record selected option -1.
func scoreAnswers(questions []domain.Question, answers map[string]int) (int, []domain.AnswerRecord) {
	correct := 0
	records := make([]domain.AnswerRecord, 0, len(questions))
	for _, q := range questions {
		selected, answered := answers[q.ID]
		isCorrect := answered && selected == q.CorrectOption
		if isCorrect {
			correct++
		}
		if !answered {
			selected = -1
		}
		records = append(records, domain.AnswerRecord{
			QuestionID:     q.ID,
			SelectedOption: selected,
			IsCorrect:      isCorrect,
		})
	}
	return correct, records
}
