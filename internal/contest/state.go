// Package contest implements the contest coordinator: phase transition rules,
// reconciliation of partial backend state into canonical form, and the
// eligibility checks that gate submissions and votes.
package contest

import (
	"errors"

	"github.com/reto-anonimo/apiserver/types"
)

// ErrIllegalTransition is returned for any phase change outside the five
// legal edges of the contest lifecycle.
var ErrIllegalTransition = errors.New("illegal phase transition")

// ErrConfirmationRequired is returned when the destructive reset transition
// is requested without an explicit confirmation.
var ErrConfirmationRequired = errors.New("reset requires confirmation")

// NormalizeMode selects how an absent criteria field is reconciled.
type NormalizeMode int

const (
	// NormalizeLoad treats missing criteria as "never set": the fallback's
	// criteria are kept. Used for initial reads.
	NormalizeLoad NormalizeMode = iota

	// NormalizeUpdate treats missing criteria as "criteria cleared": the
	// result gets an empty sequence. Used for update responses, where the
	// backend echoing no criteria means there are none left.
	NormalizeUpdate
)

// Normalize reconciles a possibly nil, possibly partial backend state with
// the last known-good state into a fully populated one. It never fails and
// never returns a state with a missing phase, criteria sequence, or title.
func Normalize(raw *types.RawContestState, fallback types.ContestState, mode NormalizeMode) types.ContestState {
	result := types.ContestState{
		Phase:          fallback.Phase,
		RatingCriteria: fallback.RatingCriteria,
		ChallengeTitle: fallback.ChallengeTitle,
	}
	if mode == NormalizeUpdate {
		result.RatingCriteria = []types.RatingCriterion{}
	}
	if !result.Phase.Valid() {
		result.Phase = types.PhaseSubmission
	}
	if result.RatingCriteria == nil {
		result.RatingCriteria = []types.RatingCriterion{}
	}
	if result.ChallengeTitle == "" {
		result.ChallengeTitle = types.DefaultChallengeTitle
	}

	if raw == nil {
		return result
	}
	if raw.Phase.Valid() {
		result.Phase = raw.Phase
	}
	if raw.RatingCriteria != nil {
		result.RatingCriteria = raw.RatingCriteria
	}
	if raw.ChallengeTitle != "" {
		result.ChallengeTitle = raw.ChallengeTitle
	}
	return result
}

// legalTransitions is the validated transition table. The original control
// surface only ever offered these five edges but left the field itself
// unconstrained; here the table is enforced.
var legalTransitions = map[types.Phase]map[types.Phase]bool{
	types.PhaseSubmission: {
		types.PhaseVoting: true,
	},
	types.PhaseVoting: {
		types.PhaseRevealed:   true,
		types.PhaseSubmission: true,
	},
	types.PhaseRevealed: {
		types.PhaseVoting:     true,
		types.PhaseSubmission: true,
	},
}

// CanTransition reports whether the edge from current to target is legal.
func CanTransition(current, target types.Phase) bool {
	return legalTransitions[current][target]
}

// IsReset reports whether the edge is the destructive new-challenge reset,
// which clears every submission and vote and must be explicitly confirmed.
func IsReset(current, target types.Phase) bool {
	return current == types.PhaseRevealed && target == types.PhaseSubmission
}
