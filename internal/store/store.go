// Package store defines the persistence operations behind the contest and its
// two interchangeable backends: the canonical spreadsheet gateway and a
// Postgres implementation for self-hosted deployments.
package store

import (
	"context"
	"errors"

	"github.com/reto-anonimo/apiserver/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned when a login fails. The gateway signals
// this with a null payload rather than an error envelope.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUserExists is returned when registering a name that is already taken.
var ErrUserExists = errors.New("user already exists")

// Store is the persistence surface the contest coordinator runs against.
// ContestState and UpdateContestState return raw, possibly partial state;
// the coordinator owns normalizing it into canonical form.
type Store interface {
	ContestState(ctx context.Context) (*types.RawContestState, error)
	UpdateContestState(ctx context.Context, state types.ContestState) (*types.RawContestState, error)

	Users(ctx context.Context) ([]types.User, error)
	AddUser(ctx context.Context, name, password string) (types.User, error)
	LoginUser(ctx context.Context, name, password string) (types.User, error)

	Submissions(ctx context.Context) ([]types.Submission, error)
	AddSubmission(ctx context.Context, submission types.Submission) (types.Submission, error)

	Votes(ctx context.Context) ([]types.Vote, error)
	CastVote(ctx context.Context, vote types.Vote) (types.Vote, error)

	// Winner returns the aggregate winner, or nil when none is
	// determinable. A nil winner is not an error.
	Winner(ctx context.Context) (*types.Winner, error)

	// ClearEntries removes every submission and vote. Invoked only on the
	// explicit REVEALED to SUBMISSION reset.
	ClearEntries(ctx context.Context) error
}
