package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reto-anonimo/apiserver/internal/gateway"
	"github.com/reto-anonimo/apiserver/types"
)

// Gateway action names, shared with the script backend.
const (
	actionGetContestState    = "getContestState"
	actionUpdateContestState = "updateContestState"
	actionGetUsers           = "getUsers"
	actionAddUser            = "addUser"
	actionLoginUser          = "loginUser"
	actionGetSubmissions     = "getSubmissions"
	actionAddSubmission      = "addSubmission"
	actionGetVotes           = "getVotes"
	actionCastVote           = "castVote"
	actionGetWinner          = "getWinner"
)

// SheetsStore persists everything through the spreadsheet gateway. It holds
// no state of its own; every call is one round trip.
type SheetsStore struct {
	client *gateway.Client
}

// NewSheetsStore constructs a SheetsStore on top of the given gateway client.
func NewSheetsStore(client *gateway.Client) *SheetsStore {
	return &SheetsStore{client: client}
}

func (s *SheetsStore) ContestState(ctx context.Context) (*types.RawContestState, error) {
	data, err := s.client.Get(ctx, actionGetContestState)
	if err != nil {
		return nil, err
	}
	return decodeRawState(data)
}

func (s *SheetsStore) UpdateContestState(ctx context.Context, state types.ContestState) (*types.RawContestState, error) {
	data, err := s.client.Post(ctx, actionUpdateContestState, state)
	if err != nil {
		return nil, err
	}
	return decodeRawState(data)
}

func (s *SheetsStore) Users(ctx context.Context) ([]types.User, error) {
	data, err := s.client.Get(ctx, actionGetUsers)
	if err != nil {
		return nil, err
	}
	var users []types.User
	if err := decodeList(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *SheetsStore) AddUser(ctx context.Context, name, password string) (types.User, error) {
	payload := map[string]string{"name": name, "password": password}
	data, err := s.client.Post(ctx, actionAddUser, payload)
	if err != nil {
		return types.User{}, err
	}
	var user types.User
	if err := json.Unmarshal(data, &user); err != nil {
		return types.User{}, fmt.Errorf("decode addUser response: %w", err)
	}
	return user, nil
}

// LoginUser authenticates against the gateway. The backend compares the
// password as a plain value and answers a successful envelope with a null
// payload when the credentials are wrong, so null maps to
// ErrInvalidCredentials rather than an empty success.
func (s *SheetsStore) LoginUser(ctx context.Context, name, password string) (types.User, error) {
	payload := map[string]string{"name": name, "password": password}
	data, err := s.client.Post(ctx, actionLoginUser, payload)
	if err != nil {
		return types.User{}, err
	}
	if gateway.IsNull(data) {
		return types.User{}, ErrInvalidCredentials
	}
	var user types.User
	if err := json.Unmarshal(data, &user); err != nil {
		return types.User{}, fmt.Errorf("decode loginUser response: %w", err)
	}
	return user, nil
}

func (s *SheetsStore) Submissions(ctx context.Context) ([]types.Submission, error) {
	data, err := s.client.Get(ctx, actionGetSubmissions)
	if err != nil {
		return nil, err
	}
	var submissions []types.Submission
	if err := decodeList(data, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (s *SheetsStore) AddSubmission(ctx context.Context, submission types.Submission) (types.Submission, error) {
	// The image travels in the imageBase64 field regardless of whether it
	// is still a data URL or was already offloaded to object storage; the
	// script stores the string as-is and echoes it back as imageUrl.
	payload := map[string]any{
		"id":              submission.ID,
		"participantName": submission.ParticipantName,
		"userId":          submission.UserID,
		"textContent":     submission.TextContent,
		"imageBase64":     submission.ImageURL,
		"timestamp":       submission.Timestamp,
	}
	data, err := s.client.Post(ctx, actionAddSubmission, payload)
	if err != nil {
		return types.Submission{}, err
	}
	var created types.Submission
	if err := json.Unmarshal(data, &created); err != nil {
		return types.Submission{}, fmt.Errorf("decode addSubmission response: %w", err)
	}
	return created, nil
}

func (s *SheetsStore) Votes(ctx context.Context) ([]types.Vote, error) {
	data, err := s.client.Get(ctx, actionGetVotes)
	if err != nil {
		return nil, err
	}
	var votes []types.Vote
	if err := decodeList(data, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

func (s *SheetsStore) CastVote(ctx context.Context, vote types.Vote) (types.Vote, error) {
	data, err := s.client.Post(ctx, actionCastVote, vote)
	if err != nil {
		return types.Vote{}, err
	}
	if gateway.IsNull(data) {
		// Older script revisions echo nothing back; the vote we sent is
		// the canonical one in that case.
		return vote, nil
	}
	var cast types.Vote
	if err := json.Unmarshal(data, &cast); err != nil {
		return types.Vote{}, fmt.Errorf("decode castVote response: %w", err)
	}
	return cast, nil
}

func (s *SheetsStore) Winner(ctx context.Context) (*types.Winner, error) {
	data, err := s.client.Get(ctx, actionGetWinner)
	if err != nil {
		return nil, err
	}
	if gateway.IsNull(data) {
		return nil, nil
	}
	var winner types.Winner
	if err := json.Unmarshal(data, &winner); err != nil {
		return nil, fmt.Errorf("decode getWinner response: %w", err)
	}
	return &winner, nil
}

// ClearEntries is a no-op for the sheets backend: the script clears its
// submission and vote tabs itself when the state update moves the phase back
// to SUBMISSION.
func (s *SheetsStore) ClearEntries(ctx context.Context) error {
	return nil
}

func decodeRawState(data json.RawMessage) (*types.RawContestState, error) {
	if gateway.IsNull(data) {
		return nil, nil
	}
	var raw types.RawContestState
	if err := json.Unmarshal(data, &raw); err != nil {
		// A state payload of the wrong shape is the same as no state at
		// all; the normalizer fills in the rest.
		return nil, nil
	}
	return &raw, nil
}

func decodeList(data json.RawMessage, out any) error {
	if gateway.IsNull(data) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode gateway list: %w", err)
	}
	return nil
}
