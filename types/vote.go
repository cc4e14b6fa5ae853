package types

// Vote represents one voter's ratings for one submission. Its identity is the
// (UserID, SubmissionID) pair: casting again for the same pair replaces the
// earlier vote.
type Vote struct {
	// UserID identifies the voter.
	UserID string `json:"userId"`

	// SubmissionID identifies the submission being rated.
	SubmissionID string `json:"submissionId"`

	// Ratings maps a criterion id to a star value in [1,5]. A value of 0
	// means "unrated" and is never persisted as part of a final vote.
	Ratings map[string]int `json:"ratings"`
}
