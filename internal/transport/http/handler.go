package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"studygroup-quiz-service/internal/app"
	"studygroup-quiz-service/internal/domain"
)

// Handler exposes the attempt lifecycle over JSON.
type Handler struct {
	service *app.AttemptService
}

func NewHandler(service *app.AttemptService) *Handler {
	return &Handler{service: service}
}

// Register mounts the attempt routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/attempts", h.startAttempt)
	mux.HandleFunc("POST /api/attempts/{id}/submit", h.submitAttempt)
	mux.HandleFunc("GET /api/attempts/{id}", h.getAttempt)
}

type startRequest struct {
	QuizID string `json:"quizId"`
	UserID string `json:"userId"`
}

type submitRequest struct {
	Responses []domain.ResponseInput `json:"responses"`
	// ElapsedSeconds is what the client countdown showed. Advisory only;
	// the server clock decides.
	ElapsedSeconds int `json:"elapsedSeconds"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "quizId and userId are required")
		return
	}

	result, err := h.service.Start(r.Context(), req.QuizID, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := r.PathValue("id")
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "malformed submission payload")
		return
	}

	result, err := h.service.Submit(r.Context(), attemptID, req.Responses, req.ElapsedSeconds)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// writeDomainError maps sentinel errors onto the HTTP surface. Anything
// unrecognized is a storage-layer failure: logged server-side, opaque to the
// client.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, "not_found", "quiz not found")
	case errors.Is(err, domain.ErrAttemptNotFound):
		writeError(w, http.StatusNotFound, "not_found", "attempt not found")
	case errors.Is(err, domain.ErrAttemptInProgress):
		writeError(w, http.StatusConflict, "attempt_in_progress", "an attempt is already in progress for this quiz")
	case errors.Is(err, domain.ErrAttemptLimitReached):
		writeError(w, http.StatusConflict, "attempt_limit_reached", "no attempts remaining for this quiz")
	case errors.Is(err, domain.ErrAttemptCompleted):
		writeError(w, http.StatusConflict, "already_completed", "attempt was already submitted; fetch the stored result")
	case errors.Is(err, domain.ErrUnknownQuestion), errors.Is(err, domain.ErrDuplicateResponse):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
