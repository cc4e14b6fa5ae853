package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reto-anonimo/apiserver/internal/contest"
)

// VoteHandler provides HTTP handlers for casting and listing votes.
type VoteHandler struct {
	coordinator *contest.Coordinator
}

// NewVoteHandler constructs a handler around the coordinator.
func NewVoteHandler(coordinator *contest.Coordinator) *VoteHandler {
	return &VoteHandler{coordinator: coordinator}
}

// VoteRouter registers vote routes on the given router.
func VoteRouter(r chi.Router, coordinator *contest.Coordinator, authMiddleware func(http.Handler) http.Handler) {
	handler := NewVoteHandler(coordinator)

	r.With(authMiddleware).Get("/", handler.List)
	r.With(authMiddleware).Post("/", handler.Cast)
}

// List returns every vote cast in the current challenge. Clients use it to
// pre-fill and freeze the star widgets for submissions the user already
// rated.
func (h *VoteHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coordinator.Votes(r.Context()))
}

// Cast records the session user's ratings for one submission. Incomplete
// votes are rejected locally before any backend call; a repeat vote for the
// same submission replaces the earlier one.
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.SubmissionID == "" {
		writeError(w, http.StatusBadRequest, "submissionId is required")
		return
	}

	vote, err := h.coordinator.CastVote(r.Context(), user, req.SubmissionID, req.Ratings)
	if err != nil {
		writeContestError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

type CastVoteRequest struct {
	SubmissionID string         `json:"submissionId"`
	Ratings      map[string]int `json:"ratings"`
}
