package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/reto-anonimo/apiserver/internal/contest"
	"github.com/reto-anonimo/apiserver/internal/gateway"
	"github.com/reto-anonimo/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func userFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok || user.ID == "" {
		return types.User{}, errors.New("missing user")
	}
	return user, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeContestError maps coordinator and gateway failures onto statuses.
// Server-reported application errors pass their message through verbatim;
// transport and payload failures surface as a bad gateway with the
// diagnostic, since those messages are what operators need to see.
func writeContestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contest.ErrIllegalTransition),
		errors.Is(err, contest.ErrEmptyTitle),
		errors.Is(err, contest.ErrEmptySubmission),
		errors.Is(err, contest.ErrIncompleteVote):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contest.ErrConfirmationRequired),
		errors.Is(err, contest.ErrPhaseClosed),
		errors.Is(err, contest.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, contest.ErrSelfVote):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, contest.ErrUnknownSubmission):
		writeError(w, http.StatusNotFound, err.Error())
	case gateway.IsApplication(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("handlers: backend failure: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
