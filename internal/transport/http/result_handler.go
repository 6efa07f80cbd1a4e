package http

import (
	"encoding/json"
	"net/http"

	"quizdesk-service/internal/domain"
)

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	results, err := h.results.ListResults(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var sub domain.ResultSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.results.RecordResult(r.Context(), actor, sub)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"result": result})
}
