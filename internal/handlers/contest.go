package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reto-anonimo/apiserver/internal/contest"
	"github.com/reto-anonimo/apiserver/types"
)

// ContestHandler provides HTTP handlers for contest state and admin actions.
type ContestHandler struct {
	coordinator *contest.Coordinator
}

// NewContestHandler constructs a handler around the coordinator.
func NewContestHandler(coordinator *contest.Coordinator) *ContestHandler {
	return &ContestHandler{coordinator: coordinator}
}

// ContestRouter registers contest routes on the given router. Reads are
// public; the phase, title, and criteria controls are admin-only.
func ContestRouter(r chi.Router, coordinator *contest.Coordinator, authMiddleware func(http.Handler) http.Handler) {
	handler := NewContestHandler(coordinator)

	r.Get("/", handler.GetState)
	r.Get("/winner", handler.GetWinner)
	r.With(authMiddleware).Get("/bootstrap", handler.Bootstrap)
	r.With(authMiddleware, RequireAdmin).Post("/phase", handler.ChangePhase)
	r.With(authMiddleware, RequireAdmin).Put("/title", handler.SetTitle)
	r.With(authMiddleware, RequireAdmin).Put("/criteria", handler.SetCriteria)
}

// GetState returns the canonical contest state. A backend read failure is
// absorbed into defaults, so this never fails.
func (h *ContestHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coordinator.State(r.Context()))
}

// Bootstrap returns the aggregate initial payload. A submissions/votes read
// failure rides along as an error string instead of failing the request, so
// the admin controls stay reachable.
func (h *ContestHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coordinator.Load(r.Context()))
}

// GetWinner returns the winner wrapper; winner is null outside REVEALED or
// when no winner could be determined.
func (h *ContestHandler) GetWinner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, WinnerResponse{Winner: h.coordinator.Winner(r.Context())})
}

// ChangePhase performs a validated phase transition. The REVEALED to
// SUBMISSION reset deletes every entry and vote, so it is refused unless the
// request carries confirm:true.
func (h *ContestHandler) ChangePhase(w http.ResponseWriter, r *http.Request) {
	var req PhaseChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	state, winner, err := h.coordinator.ChangePhase(r.Context(), req.Phase, req.Confirm)
	if err != nil {
		writeContestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PhaseChangeResponse{State: state, Winner: winner})
}

// SetTitle updates the challenge title.
func (h *ContestHandler) SetTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	state, err := h.coordinator.SetTitle(r.Context(), strings.TrimSpace(req.ChallengeTitle))
	if err != nil {
		writeContestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SetCriteria replaces the rating criteria; only legal while submissions are
// open.
func (h *ContestHandler) SetCriteria(w http.ResponseWriter, r *http.Request) {
	var req CriteriaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	for _, criterion := range req.RatingCriteria {
		if strings.TrimSpace(criterion.Label) == "" {
			writeError(w, http.StatusBadRequest, "criterion label cannot be empty")
			return
		}
	}

	state, err := h.coordinator.SetCriteria(r.Context(), req.RatingCriteria)
	if err != nil {
		writeContestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type PhaseChangeRequest struct {
	Phase   types.Phase `json:"phase"`
	Confirm bool        `json:"confirm"`
}

type PhaseChangeResponse struct {
	State  types.ContestState `json:"contestState"`
	Winner *types.Winner      `json:"winner,omitempty"`
}

type TitleRequest struct {
	ChallengeTitle string `json:"challengeTitle"`
}

type CriteriaRequest struct {
	RatingCriteria []types.RatingCriterion `json:"ratingCriteria"`
}

type WinnerResponse struct {
	Winner *types.Winner `json:"winner"`
}
