package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/reto-anonimo/apiserver/types"
)

// Event channels.
const (
	ChannelPhaseChanged      = "contest.phase.changed"
	ChannelSubmissionCreated = "contest.submission.created"
	ChannelVoteCast          = "contest.vote.cast"
)

// PhaseChangedEvent is published after a successful phase transition.
type PhaseChangedEvent struct {
	EventID   string      `json:"eventId"`
	Type      string      `json:"type"` // "phase.changed"
	From      types.Phase `json:"from"`
	To        types.Phase `json:"to"`
	Reset     bool        `json:"reset"`
	Timestamp time.Time   `json:"timestamp"`
}

// SubmissionCreatedEvent is published after an entry is persisted.
type SubmissionCreatedEvent struct {
	EventID      string    `json:"eventId"`
	Type         string    `json:"type"` // "submission.created"
	SubmissionID string    `json:"submissionId"`
	UserID       string    `json:"userId"`
	HasImage     bool      `json:"hasImage"`
	Timestamp    time.Time `json:"timestamp"`
}

// VoteCastEvent is published after a vote is persisted, including replaced
// votes for the same (user, submission) pair.
type VoteCastEvent struct {
	EventID      string    `json:"eventId"`
	Type         string    `json:"type"` // "vote.cast"
	UserID       string    `json:"userId"`
	SubmissionID string    `json:"submissionId"`
	Criteria     int       `json:"criteria"`
	Timestamp    time.Time `json:"timestamp"`
}

// PublishEvent marshals the event and sends it on the channel. A nil MQ is a
// no-op so callers never need to branch on whether events are configured.
func (m *MQ) PublishEvent(ctx context.Context, channel string, event any) error {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = m.Publish(ctx, channel, data, map[string]string{"content-type": "application/json"})
	return err
}

// NewEventID generates a random identifier for an event.
func NewEventID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
