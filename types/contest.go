package types

import "encoding/json"

// Phase gates which contest actions are legal and what the client renders.
type Phase string

// Contest phases, in their forward order.
const (
	// PhaseSubmission accepts entries and criteria edits.
	PhaseSubmission Phase = "SUBMISSION"

	// PhaseVoting accepts votes; entries are shown anonymously.
	PhaseVoting Phase = "VOTING"

	// PhaseRevealed publishes the aggregate winner; nothing is writable.
	PhaseRevealed Phase = "REVEALED"
)

// Valid reports whether p is a member of the phase enum. The persistence
// backend is free to return arbitrary strings; everything else is treated as
// an absent phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseSubmission, PhaseVoting, PhaseRevealed:
		return true
	default:
		return false
	}
}

// RatingCriterion is a named axis on which every submission is rated from
// one to five stars. Criteria order is insertion order and is meaningful.
type RatingCriterion struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DefaultChallengeTitle is the placeholder shown until an admin sets a title.
const DefaultChallengeTitle = "Configura el Título del Reto"

// ContestState is the singleton contest configuration. In its canonical form
// no field is ever absent: missing data is filled from the previous
// known-good state or from defaults.
type ContestState struct {
	// Phase is the current contest phase.
	Phase Phase `json:"phase"`

	// RatingCriteria is the ordered set of axes votes must cover. Always
	// non-nil in canonical state.
	RatingCriteria []RatingCriterion `json:"ratingCriteria"`

	// ChallengeTitle is the display title of the current challenge.
	ChallengeTitle string `json:"challengeTitle"`
}

// DefaultContestState returns the hard defaults used before any state has
// been persisted.
func DefaultContestState() ContestState {
	return ContestState{
		Phase:          PhaseSubmission,
		RatingCriteria: []RatingCriterion{},
		ChallengeTitle: DefaultChallengeTitle,
	}
}

// RawContestState is a possibly partial contest state as returned by the
// persistence backend. Decoding never fails on malformed fields: a phase
// outside the enum stays as-is for the normalizer to reject, and a
// ratingCriteria value that is not a JSON array decodes as absent (nil).
type RawContestState struct {
	Phase          Phase             `json:"phase"`
	RatingCriteria []RatingCriterion `json:"ratingCriteria"`
	ChallengeTitle string            `json:"challengeTitle"`
}

func (r *RawContestState) UnmarshalJSON(data []byte) error {
	var aux struct {
		Phase          Phase           `json:"phase"`
		RatingCriteria json.RawMessage `json:"ratingCriteria"`
		ChallengeTitle string          `json:"challengeTitle"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Phase = aux.Phase
	r.ChallengeTitle = aux.ChallengeTitle
	r.RatingCriteria = nil
	if len(aux.RatingCriteria) > 0 {
		var criteria []RatingCriterion
		if err := json.Unmarshal(aux.RatingCriteria, &criteria); err == nil && criteria != nil {
			r.RatingCriteria = criteria
		}
	}
	return nil
}

// Winner pairs the winning submission with its aggregate score in [0,5].
// It is computed by the persistence backend and only fetched while the
// contest is REVEALED; it may be absent even then.
type Winner struct {
	Submission Submission `json:"submission"`
	Score      float64    `json:"score"`
}
