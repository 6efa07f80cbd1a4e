package http

import (
	"encoding/json"
	"net/http"

	"quizdesk-service/internal/domain"
)

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var draft domain.QuizDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quiz, err := h.quizzes.CreateQuiz(r.Context(), actor, draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"quiz": quiz})
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.quizzes.DeleteQuiz(r.Context(), actor, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
