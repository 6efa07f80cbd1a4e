package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     int    `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// attemptQuestion is the question view sent to the taker: the correct option
// never crosses the wire.
type attemptQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type startedPayload struct {
	AttemptID        string              `json:"attemptId"`
	QuizID           string              `json:"quizId"`
	Title            string              `json:"title"`
	TimerEnabled     bool                `json:"timerEnabled"`
	TimeLimitMinutes int                 `json:"timeLimitMinutes"`
	Questions        []attemptQuestion   `json:"questions"`
	Snapshot         app.AttemptSnapshot `json:"snapshot"`
}

// serveAttemptWS upgrades the connection and drives one live attempt over it.
// The attempt is abandoned, and its countdown cancelled, when the socket
// closes for any reason.
func (h *Handler) serveAttemptWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	actor, err := h.auth.VerifySession(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		writeError(w, http.StatusBadRequest, "missing quizId")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	attempt, err := h.attempts.Start(r.Context(), actor, quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.attempts.Abandon(attempt.ID())

	updates, cancel := attempt.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				msgType := "state"
				if snap.State == app.AttemptCompleted {
					msgType = "completed"
				}
				select {
				case send <- outboundMessage[any]{Type: msgType, Payload: snap}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			case <-writerDone:
				return
			}
		}
	}()

	// enqueue never blocks on a dead writer: once the write half has exited,
	// outbound messages are discarded and the read loop keeps draining until
	// it too fails.
	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	enqueue(outboundMessage[any]{Type: "started", Payload: startedMessage(attempt)})

readLoop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			attempt.Answer(payload.QuestionID, payload.Option)
		case "next":
			attempt.Next()
		case "prev":
			attempt.Prev()
		case "submit":
			if _, err := attempt.Submit(r.Context()); err != nil {
				if !errors.Is(err, domain.ErrAttemptFinished) {
					enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				}
			}
		case "quit":
			break readLoop
		default:
			enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func startedMessage(attempt *app.Attempt) startedPayload {
	quiz := attempt.Quiz()
	questions := make([]attemptQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, attemptQuestion{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	return startedPayload{
		AttemptID:        attempt.ID(),
		QuizID:           quiz.ID,
		Title:            quiz.Title,
		TimerEnabled:     quiz.TimerEnabled,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		Questions:        questions,
		Snapshot:         attempt.Snapshot(),
	}
}
