package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reto-anonimo/apiserver/internal/contest"
)

// SubmissionHandler provides HTTP handlers for challenge entries.
type SubmissionHandler struct {
	coordinator *contest.Coordinator
}

// NewSubmissionHandler constructs a handler around the coordinator.
func NewSubmissionHandler(coordinator *contest.Coordinator) *SubmissionHandler {
	return &SubmissionHandler{coordinator: coordinator}
}

// SubmissionRouter registers submission routes on the given router.
func SubmissionRouter(r chi.Router, coordinator *contest.Coordinator, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSubmissionHandler(coordinator)

	r.With(authMiddleware).Get("/", handler.List)
	r.With(authMiddleware).Post("/", handler.Create)
}

// List returns every entry of the current challenge.
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coordinator.Submissions(r.Context()))
}

// Create adds the session user's entry. The participant name is taken from
// the session, never from the request body, so nobody submits on another's
// behalf.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	submission, err := h.coordinator.Submit(r.Context(), user, strings.TrimSpace(req.TextContent), req.ImageData)
	if err != nil {
		writeContestError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submission)
}

type CreateSubmissionRequest struct {
	TextContent string `json:"textContent"`
	ImageData   string `json:"imageBase64"`
}
