package contest

import (
	"context"
	"errors"
	"testing"

	"github.com/reto-anonimo/apiserver/internal/store"
	"github.com/reto-anonimo/apiserver/types"
)

// fakeStore is an in-memory Store with per-call failure switches.
type fakeStore struct {
	state       *types.RawContestState
	submissions []types.Submission
	votes       []types.Vote
	winner      *types.Winner

	stateErr  error
	listErr   error
	updateErr error
	winnerErr error

	updates []types.ContestState
	cleared int
}

func (f *fakeStore) ContestState(ctx context.Context) (*types.RawContestState, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return f.state, nil
}

func (f *fakeStore) UpdateContestState(ctx context.Context, state types.ContestState) (*types.RawContestState, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, state)
	echoed := &types.RawContestState{
		Phase:          state.Phase,
		RatingCriteria: state.RatingCriteria,
		ChallengeTitle: state.ChallengeTitle,
	}
	f.state = echoed
	return echoed, nil
}

func (f *fakeStore) Users(ctx context.Context) ([]types.User, error) {
	return nil, nil
}

func (f *fakeStore) AddUser(ctx context.Context, name, password string) (types.User, error) {
	return types.User{ID: "u-new", Name: name}, nil
}

func (f *fakeStore) LoginUser(ctx context.Context, name, password string) (types.User, error) {
	return types.User{}, store.ErrInvalidCredentials
}

func (f *fakeStore) Submissions(ctx context.Context) ([]types.Submission, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.submissions, nil
}

func (f *fakeStore) AddSubmission(ctx context.Context, submission types.Submission) (types.Submission, error) {
	f.submissions = append(f.submissions, submission)
	return submission, nil
}

func (f *fakeStore) Votes(ctx context.Context) ([]types.Vote, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.votes, nil
}

func (f *fakeStore) CastVote(ctx context.Context, vote types.Vote) (types.Vote, error) {
	f.votes = UpsertVote(f.votes, vote)
	return vote, nil
}

func (f *fakeStore) Winner(ctx context.Context) (*types.Winner, error) {
	if f.winnerErr != nil {
		return nil, f.winnerErr
	}
	return f.winner, nil
}

func (f *fakeStore) ClearEntries(ctx context.Context) error {
	f.cleared++
	f.submissions = nil
	f.votes = nil
	return nil
}

func newTestCoordinator(fs *fakeStore) *Coordinator {
	return NewCoordinator(fs, nil, nil, nil)
}

func TestLoadAbsorbsStateFailure(t *testing.T) {
	fs := &fakeStore{stateErr: errors.New("gateway down")}
	c := newTestCoordinator(fs)

	boot := c.Load(context.Background())

	if boot.State.Phase != types.PhaseSubmission {
		t.Fatalf("expected default phase, got %q", boot.State.Phase)
	}
	if boot.State.ChallengeTitle != types.DefaultChallengeTitle {
		t.Fatalf("expected default title, got %q", boot.State.ChallengeTitle)
	}
	if boot.ListError != "" {
		t.Fatalf("state failure must not surface as a list error: %q", boot.ListError)
	}
}

func TestLoadSurfacesListFailure(t *testing.T) {
	fs := &fakeStore{
		state:   &types.RawContestState{Phase: types.PhaseVoting},
		listErr: errors.New("sheet unreachable"),
	}
	c := newTestCoordinator(fs)

	boot := c.Load(context.Background())

	if boot.ListError == "" {
		t.Fatalf("expected a list error")
	}
	if boot.State.Phase != types.PhaseVoting {
		t.Fatalf("state must stay usable despite list failure, got %q", boot.State.Phase)
	}
	if boot.Submissions == nil || boot.Votes == nil {
		t.Fatalf("lists must render as empty, not null")
	}
}

func TestChangePhaseRejectsIllegalEdge(t *testing.T) {
	fs := &fakeStore{state: &types.RawContestState{Phase: types.PhaseSubmission}}
	c := newTestCoordinator(fs)

	_, _, err := c.ChangePhase(context.Background(), types.PhaseRevealed, false)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if len(fs.updates) != 0 {
		t.Fatalf("illegal transition must not reach the backend")
	}
}

func TestChangePhaseFetchesWinnerOnReveal(t *testing.T) {
	fs := &fakeStore{
		state: &types.RawContestState{Phase: types.PhaseVoting},
		winner: &types.Winner{
			Submission: types.Submission{ID: "s1", ParticipantName: "Ana"},
			Score:      4.5,
		},
	}
	c := newTestCoordinator(fs)

	state, winner, err := c.ChangePhase(context.Background(), types.PhaseRevealed, false)
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if state.Phase != types.PhaseRevealed {
		t.Fatalf("unexpected phase: %q", state.Phase)
	}
	if winner == nil || winner.Submission.ID != "s1" {
		t.Fatalf("expected winner s1, got %+v", winner)
	}
}

func TestChangePhaseRevealWithoutWinner(t *testing.T) {
	fs := &fakeStore{state: &types.RawContestState{Phase: types.PhaseVoting}}
	c := newTestCoordinator(fs)

	state, winner, err := c.ChangePhase(context.Background(), types.PhaseRevealed, false)
	if err != nil {
		t.Fatalf("a missing winner must not fail the transition: %v", err)
	}
	if state.Phase != types.PhaseRevealed {
		t.Fatalf("unexpected phase: %q", state.Phase)
	}
	if winner != nil {
		t.Fatalf("expected no winner, got %+v", winner)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	fs := &fakeStore{state: &types.RawContestState{Phase: types.PhaseRevealed}}
	c := newTestCoordinator(fs)

	_, _, err := c.ChangePhase(context.Background(), types.PhaseSubmission, false)
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if fs.cleared != 0 {
		t.Fatalf("unconfirmed reset must not clear entries")
	}
}

func TestResetClearsEntriesAndKeepsCriteria(t *testing.T) {
	criteria := []types.RatingCriterion{{ID: "c1", Label: "Humor"}}
	fs := &fakeStore{
		state: &types.RawContestState{
			Phase:          types.PhaseRevealed,
			RatingCriteria: criteria,
			ChallengeTitle: "Reto viejo",
		},
		submissions: []types.Submission{{ID: "s1", UserID: "u1"}},
		votes:       []types.Vote{{UserID: "u2", SubmissionID: "s1"}},
	}
	c := newTestCoordinator(fs)

	state, _, err := c.ChangePhase(context.Background(), types.PhaseSubmission, true)
	if err != nil {
		t.Fatalf("confirmed reset failed: %v", err)
	}
	if state.Phase != types.PhaseSubmission {
		t.Fatalf("unexpected phase: %q", state.Phase)
	}
	if fs.cleared != 1 {
		t.Fatalf("expected entries to be cleared once, got %d", fs.cleared)
	}
	if got := c.Submissions(context.Background()); len(got) != 0 {
		t.Fatalf("expected no submissions after reset, got %+v", got)
	}
	if got := c.Votes(context.Background()); len(got) != 0 {
		t.Fatalf("expected no votes after reset, got %+v", got)
	}
	if len(state.RatingCriteria) != 1 || state.RatingCriteria[0].ID != "c1" {
		t.Fatalf("reset must keep criteria, got %+v", state.RatingCriteria)
	}
}

func TestSetTitleRejectsEmpty(t *testing.T) {
	fs := &fakeStore{}
	c := newTestCoordinator(fs)

	_, err := c.SetTitle(context.Background(), "")
	if !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestSetCriteriaOnlyDuringSubmission(t *testing.T) {
	fs := &fakeStore{state: &types.RawContestState{Phase: types.PhaseVoting}}
	c := newTestCoordinator(fs)

	_, err := c.SetCriteria(context.Background(), []types.RatingCriterion{{Label: "Humor"}})
	if !errors.Is(err, ErrPhaseClosed) {
		t.Fatalf("expected ErrPhaseClosed, got %v", err)
	}
}

func TestSetCriteriaAssignsIDs(t *testing.T) {
	fs := &fakeStore{state: &types.RawContestState{Phase: types.PhaseSubmission}}
	c := newTestCoordinator(fs)

	state, err := c.SetCriteria(context.Background(), []types.RatingCriterion{{Label: "Humor"}})
	if err != nil {
		t.Fatalf("set criteria failed: %v", err)
	}
	if len(state.RatingCriteria) != 1 {
		t.Fatalf("unexpected criteria: %+v", state.RatingCriteria)
	}
	if state.RatingCriteria[0].ID == "" {
		t.Fatalf("expected an id to be assigned")
	}
}

func TestSubmitGatedByPhase(t *testing.T) {
	fs := &fakeStore{state: &types.RawContestState{Phase: types.PhaseVoting}}
	c := newTestCoordinator(fs)

	_, err := c.Submit(context.Background(), types.User{ID: "u1", Name: "Ana"}, "hola", "")
	if !errors.Is(err, ErrPhaseClosed) {
		t.Fatalf("expected ErrPhaseClosed, got %v", err)
	}
}

func TestSubmitRejectsEmptyAndDuplicate(t *testing.T) {
	fs := &fakeStore{state: &types.RawContestState{Phase: types.PhaseSubmission}}
	c := newTestCoordinator(fs)
	user := types.User{ID: "u1", Name: "Ana"}

	if _, err := c.Submit(context.Background(), user, "", ""); !errors.Is(err, ErrEmptySubmission) {
		t.Fatalf("expected ErrEmptySubmission, got %v", err)
	}

	created, err := c.Submit(context.Background(), user, "mi entrada", "")
	if err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if created.ID == "" || created.Timestamp == 0 {
		t.Fatalf("expected id and timestamp to be assigned: %+v", created)
	}
	if created.ParticipantName != "Ana" || created.UserID != "u1" {
		t.Fatalf("identity must come from the session user: %+v", created)
	}

	if _, err := c.Submit(context.Background(), user, "otra", ""); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestCastVoteValidations(t *testing.T) {
	fs := &fakeStore{
		state: &types.RawContestState{
			Phase:          types.PhaseVoting,
			RatingCriteria: []types.RatingCriterion{{ID: "c1"}, {ID: "c2"}},
		},
		submissions: []types.Submission{
			{ID: "s1", UserID: "u1"},
			{ID: "s2", UserID: "u2"},
		},
	}
	c := newTestCoordinator(fs)
	voter := types.User{ID: "u1", Name: "Ana"}

	if _, err := c.CastVote(context.Background(), voter, "missing", map[string]int{"c1": 3, "c2": 3}); !errors.Is(err, ErrUnknownSubmission) {
		t.Fatalf("expected ErrUnknownSubmission, got %v", err)
	}
	if _, err := c.CastVote(context.Background(), voter, "s1", map[string]int{"c1": 3, "c2": 3}); !errors.Is(err, ErrSelfVote) {
		t.Fatalf("expected ErrSelfVote, got %v", err)
	}
	if _, err := c.CastVote(context.Background(), voter, "s2", map[string]int{"c1": 3}); !errors.Is(err, ErrIncompleteVote) {
		t.Fatalf("expected ErrIncompleteVote, got %v", err)
	}
	if len(fs.votes) != 0 {
		t.Fatalf("rejected votes must never reach the backend")
	}

	vote, err := c.CastVote(context.Background(), voter, "s2", map[string]int{"c1": 4, "c2": 5})
	if err != nil {
		t.Fatalf("valid vote failed: %v", err)
	}
	if vote.UserID != "u1" || vote.SubmissionID != "s2" {
		t.Fatalf("unexpected vote: %+v", vote)
	}
}

func TestCastVoteReplacesPriorVote(t *testing.T) {
	fs := &fakeStore{
		state: &types.RawContestState{
			Phase:          types.PhaseVoting,
			RatingCriteria: []types.RatingCriterion{{ID: "c1"}},
		},
		submissions: []types.Submission{{ID: "s1", UserID: "u2"}},
	}
	c := newTestCoordinator(fs)
	voter := types.User{ID: "u1"}

	if _, err := c.CastVote(context.Background(), voter, "s1", map[string]int{"c1": 2}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if _, err := c.CastVote(context.Background(), voter, "s1", map[string]int{"c1": 5}); err != nil {
		t.Fatalf("second vote failed: %v", err)
	}

	votes := c.Votes(context.Background())
	if len(votes) != 1 {
		t.Fatalf("expected one vote per (user, submission) pair, got %d", len(votes))
	}
	if votes[0].Ratings["c1"] != 5 {
		t.Fatalf("expected the newer ratings, got %+v", votes[0].Ratings)
	}
}

func TestVoteGatedByPhase(t *testing.T) {
	fs := &fakeStore{
		state:       &types.RawContestState{Phase: types.PhaseSubmission},
		submissions: []types.Submission{{ID: "s1", UserID: "u2"}},
	}
	c := newTestCoordinator(fs)

	_, err := c.CastVote(context.Background(), types.User{ID: "u1"}, "s1", map[string]int{})
	if !errors.Is(err, ErrPhaseClosed) {
		t.Fatalf("expected ErrPhaseClosed, got %v", err)
	}
}

func TestWinnerIsNilOutsideRevealed(t *testing.T) {
	fs := &fakeStore{
		state:  &types.RawContestState{Phase: types.PhaseVoting},
		winner: &types.Winner{Submission: types.Submission{ID: "s1"}},
	}
	c := newTestCoordinator(fs)

	if winner := c.Winner(context.Background()); winner != nil {
		t.Fatalf("winner must be hidden outside REVEALED, got %+v", winner)
	}
}
