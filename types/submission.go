package types

// Submission represents one participant's entry to the current challenge.
// Entries are anonymous while voting is open: ParticipantName is stored but
// deliberately hidden from voters until the winner is revealed.
type Submission struct {
	// ID is the unique identifier of the submission.
	ID string `json:"id"`

	// ParticipantName is the real identity of the author. It is only shown
	// once the contest reaches the REVEALED phase.
	ParticipantName string `json:"participantName"`

	// UserID identifies the account that owns this submission. At most one
	// submission per user is meaningful; the control surface enforces it.
	UserID string `json:"userId"`

	// TextContent is the written part of the entry. It may be empty when
	// ImageURL is set; at least one of the two must be non-empty.
	TextContent string `json:"textContent"`

	// ImageURL points at the entry's image, either an object-storage URL or
	// a data URL passed through from the client.
	ImageURL string `json:"imageUrl,omitempty"`

	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}
