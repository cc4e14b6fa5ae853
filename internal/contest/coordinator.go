package contest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reto-anonimo/apiserver/internal/cache"
	"github.com/reto-anonimo/apiserver/internal/mq"
	"github.com/reto-anonimo/apiserver/internal/storage"
	"github.com/reto-anonimo/apiserver/internal/store"
	"github.com/reto-anonimo/apiserver/types"
)

// Control-surface errors. These map to 4xx responses; they are raised before
// any write reaches the persistence backend.
var (
	ErrPhaseClosed       = errors.New("action not available in the current phase")
	ErrAlreadySubmitted  = errors.New("user has already submitted an entry")
	ErrSelfVote          = errors.New("cannot vote for your own submission")
	ErrIncompleteVote    = errors.New("every criterion must be rated")
	ErrEmptySubmission   = errors.New("submission needs text or an image")
	ErrEmptyTitle        = errors.New("challenge title cannot be empty")
	ErrUnknownSubmission = errors.New("submission does not exist")
)

// Bootstrap is the aggregate initial payload: everything a client needs on
// first load. ListError carries a submissions/votes read failure without
// blocking the rest, so an already-authenticated admin still reaches the
// phase controls.
type Bootstrap struct {
	State       types.ContestState `json:"contestState"`
	Submissions []types.Submission `json:"submissions"`
	Votes       []types.Vote       `json:"votes"`
	Winner      *types.Winner      `json:"winner,omitempty"`
	ListError   string             `json:"error,omitempty"`
}

// Coordinator owns the in-memory contest state and mediates every mutation.
// The persistence backend is the source of truth; the coordinator's copy is
// the last known-good state used as the normalization fallback and for
// eligibility checks. Local lists are only updated after a successful round
// trip, never optimistically.
type Coordinator struct {
	store     store.Store
	events    *mq.MQ             // nil disables event publishing
	snapshots *cache.StateCache  // nil disables snapshotting
	images    *storage.ImageSink // nil passes data URLs through

	mu          sync.Mutex
	state       types.ContestState
	submissions []types.Submission
	votes       []types.Vote
	winner      *types.Winner
	loaded      bool
}

// NewCoordinator constructs a Coordinator. events, snapshots, and images may
// each be nil.
func NewCoordinator(st store.Store, events *mq.MQ, snapshots *cache.StateCache, images *storage.ImageSink) *Coordinator {
	return &Coordinator{
		store:     st,
		events:    events,
		snapshots: snapshots,
		images:    images,
		state:     types.DefaultContestState(),
	}
}

// Load fetches everything from the backend and reconciles it into canonical
// local state. A contest-state read failure is absorbed: the previous
// known-good state (seeded from the snapshot cache on a fresh process) keeps
// serving. A submissions/votes read failure is surfaced in the bootstrap but
// still leaves the state usable.
func (c *Coordinator) Load(ctx context.Context) Bootstrap {
	fallback := c.fallbackState(ctx)

	raw, err := c.store.ContestState(ctx)
	if err != nil {
		log.Printf("contest: state load failed, using defaults: %v", err)
		raw = nil
	}
	state := Normalize(raw, fallback, NormalizeLoad)

	var listErr string
	submissions, err := c.store.Submissions(ctx)
	if err != nil {
		listErr = "could not load submissions and votes"
		log.Printf("contest: submissions load failed: %v", err)
	}
	votes, votesErr := c.store.Votes(ctx)
	if votesErr != nil {
		listErr = "could not load submissions and votes"
		log.Printf("contest: votes load failed: %v", votesErr)
	}

	var winner *types.Winner
	if state.Phase == types.PhaseRevealed {
		winner, err = c.store.Winner(ctx)
		if err != nil {
			// No winner is a normal outcome, not a failure mode.
			log.Printf("contest: winner fetch failed: %v", err)
			winner = nil
		}
	}

	c.mu.Lock()
	c.state = state
	if listErr == "" {
		c.submissions = submissions
		c.votes = votes
	}
	c.winner = winner
	c.loaded = true
	c.mu.Unlock()

	c.snapshots.Save(ctx, state)

	return Bootstrap{
		State:       state,
		Submissions: emptyIfNil(submissions),
		Votes:       votesOrEmpty(votes),
		Winner:      winner,
		ListError:   listErr,
	}
}

// State returns the current canonical contest state, loading it first if this
// coordinator has never seen the backend.
func (c *Coordinator) State(ctx context.Context) types.ContestState {
	c.ensureLoaded(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChangePhase performs a validated phase transition and its side effects:
// entering REVEALED fetches the winner, any other target clears it, and the
// REVEALED to SUBMISSION reset clears every submission and vote. The reset is
// destructive and is refused without confirm.
func (c *Coordinator) ChangePhase(ctx context.Context, target types.Phase, confirm bool) (types.ContestState, *types.Winner, error) {
	c.ensureLoaded(ctx)

	c.mu.Lock()
	current := c.state
	c.mu.Unlock()

	if !target.Valid() || !CanTransition(current.Phase, target) {
		return current, nil, ErrIllegalTransition
	}
	reset := IsReset(current.Phase, target)
	if reset && !confirm {
		return current, nil, ErrConfirmationRequired
	}

	next := current
	next.Phase = target
	state, err := c.pushState(ctx, next, current)
	if err != nil {
		return current, nil, err
	}

	var winner *types.Winner
	if target == types.PhaseRevealed {
		winner, err = c.store.Winner(ctx)
		if err != nil {
			// Absent winner renders as "no winner", never as an error.
			log.Printf("contest: winner fetch failed: %v", err)
			winner = nil
		}
	}

	if reset {
		if err := c.store.ClearEntries(ctx); err != nil {
			log.Printf("contest: clearing entries failed: %v", err)
		}
	}

	c.mu.Lock()
	c.state = state
	c.winner = winner
	var orphaned []types.Submission
	if reset {
		orphaned = c.submissions
		c.submissions = nil
		c.votes = nil
	}
	c.mu.Unlock()

	if reset && c.images != nil {
		for _, submission := range orphaned {
			if submission.ImageURL == "" || storage.IsDataURL(submission.ImageURL) {
				continue
			}
			if err := c.images.Remove(ctx, submission.ImageURL); err != nil {
				log.Printf("contest: removing image for %s: %v", submission.ID, err)
			}
		}
	}

	c.publish(ctx, mq.ChannelPhaseChanged, mq.PhaseChangedEvent{
		EventID:   mq.NewEventID(),
		Type:      "phase.changed",
		From:      current.Phase,
		To:        target,
		Reset:     reset,
		Timestamp: time.Now(),
	})

	return state, winner, nil
}

// SetTitle updates the challenge title. Legal in any phase.
func (c *Coordinator) SetTitle(ctx context.Context, title string) (types.ContestState, error) {
	c.ensureLoaded(ctx)
	if title == "" {
		return c.State(ctx), ErrEmptyTitle
	}

	c.mu.Lock()
	current := c.state
	c.mu.Unlock()

	next := current
	next.ChallengeTitle = title
	state, err := c.pushState(ctx, next, current)
	if err != nil {
		return current, err
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	return state, nil
}

// SetCriteria replaces the rating criteria. Criteria are only editable while
// submissions are open; once voting starts the stored set is frozen.
func (c *Coordinator) SetCriteria(ctx context.Context, criteria []types.RatingCriterion) (types.ContestState, error) {
	c.ensureLoaded(ctx)

	c.mu.Lock()
	current := c.state
	c.mu.Unlock()

	if current.Phase != types.PhaseSubmission {
		return current, ErrPhaseClosed
	}

	if criteria == nil {
		criteria = []types.RatingCriterion{}
	}
	for i := range criteria {
		if criteria[i].ID == "" {
			criteria[i].ID = "crit-" + uuid.NewString()
		}
	}

	next := current
	next.RatingCriteria = criteria
	state, err := c.pushState(ctx, next, current)
	if err != nil {
		return current, err
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	return state, nil
}

// Submit creates the user's entry. One entry per user, only while the
// SUBMISSION phase is open, and never empty.
func (c *Coordinator) Submit(ctx context.Context, user types.User, text, imageData string) (types.Submission, error) {
	c.ensureLoaded(ctx)

	c.mu.Lock()
	phase := c.state.Phase
	submissions := c.submissions
	c.mu.Unlock()

	if phase != types.PhaseSubmission {
		return types.Submission{}, ErrPhaseClosed
	}
	if text == "" && imageData == "" {
		return types.Submission{}, ErrEmptySubmission
	}
	if HasSubmitted(user, submissions) {
		return types.Submission{}, ErrAlreadySubmitted
	}

	imageURL := imageData
	if c.images != nil && storage.IsDataURL(imageData) {
		stored, err := c.images.Store(ctx, imageData)
		if err != nil {
			log.Printf("contest: image offload failed, keeping data URL: %v", err)
		} else {
			imageURL = stored
		}
	}

	submission := types.Submission{
		ID:              uuid.NewString(),
		ParticipantName: user.Name,
		UserID:          user.ID,
		TextContent:     text,
		ImageURL:        imageURL,
		Timestamp:       time.Now().UnixMilli(),
	}

	created, err := c.store.AddSubmission(ctx, submission)
	if err != nil {
		return types.Submission{}, err
	}

	c.mu.Lock()
	c.submissions = append(c.submissions, created)
	c.mu.Unlock()

	c.publish(ctx, mq.ChannelSubmissionCreated, mq.SubmissionCreatedEvent{
		EventID:      mq.NewEventID(),
		Type:         "submission.created",
		SubmissionID: created.ID,
		UserID:       created.UserID,
		HasImage:     created.ImageURL != "",
		Timestamp:    time.Now(),
	})

	return created, nil
}

// Submissions returns the current entry list.
func (c *Coordinator) Submissions(ctx context.Context) []types.Submission {
	c.ensureLoaded(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return emptyIfNil(c.submissions)
}

// CastVote records the user's ratings for a submission. Votes are only legal
// during VOTING, never for the voter's own entry, and must cover every
// criterion; a repeat vote for the same submission replaces the prior one.
func (c *Coordinator) CastVote(ctx context.Context, user types.User, submissionID string, ratings map[string]int) (types.Vote, error) {
	c.ensureLoaded(ctx)

	c.mu.Lock()
	state := c.state
	submissions := c.submissions
	c.mu.Unlock()

	if state.Phase != types.PhaseVoting {
		return types.Vote{}, ErrPhaseClosed
	}

	var target *types.Submission
	for i := range submissions {
		if submissions[i].ID == submissionID {
			target = &submissions[i]
			break
		}
	}
	if target == nil {
		return types.Vote{}, ErrUnknownSubmission
	}
	if !CanVoteOn(user, *target) {
		return types.Vote{}, ErrSelfVote
	}
	if !VoteIsComplete(ratings, state.RatingCriteria) {
		return types.Vote{}, ErrIncompleteVote
	}

	vote := types.Vote{UserID: user.ID, SubmissionID: submissionID, Ratings: ratings}
	cast, err := c.store.CastVote(ctx, vote)
	if err != nil {
		return types.Vote{}, err
	}

	c.mu.Lock()
	c.votes = UpsertVote(c.votes, cast)
	c.mu.Unlock()

	c.publish(ctx, mq.ChannelVoteCast, mq.VoteCastEvent{
		EventID:      mq.NewEventID(),
		Type:         "vote.cast",
		UserID:       cast.UserID,
		SubmissionID: cast.SubmissionID,
		Criteria:     len(cast.Ratings),
		Timestamp:    time.Now(),
	})

	return cast, nil
}

// Votes returns the current vote list.
func (c *Coordinator) Votes(ctx context.Context) []types.Vote {
	c.ensureLoaded(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return votesOrEmpty(c.votes)
}

// Winner returns the computed winner while the contest is REVEALED, or nil
// in any other phase or when no winner is determinable.
func (c *Coordinator) Winner(ctx context.Context) *types.Winner {
	c.ensureLoaded(ctx)

	c.mu.Lock()
	phase := c.state.Phase
	cached := c.winner
	c.mu.Unlock()

	if phase != types.PhaseRevealed {
		return nil
	}
	if cached != nil {
		return cached
	}

	winner, err := c.store.Winner(ctx)
	if err != nil {
		log.Printf("contest: winner fetch failed: %v", err)
		return nil
	}
	c.mu.Lock()
	c.winner = winner
	c.mu.Unlock()
	return winner
}

// pushState sends the full next state to the backend and normalizes the
// echoed response in update mode: a missing criteria field in the answer
// means the criteria were cleared, not that the old ones survive. On failure
// the local state is left untouched.
func (c *Coordinator) pushState(ctx context.Context, next, fallback types.ContestState) (types.ContestState, error) {
	raw, err := c.store.UpdateContestState(ctx, next)
	if err != nil {
		return types.ContestState{}, err
	}
	state := Normalize(raw, fallback, NormalizeUpdate)
	c.snapshots.Save(ctx, state)
	return state, nil
}

func (c *Coordinator) fallbackState(ctx context.Context) types.ContestState {
	c.mu.Lock()
	loaded := c.loaded
	state := c.state
	c.mu.Unlock()

	if loaded {
		return state
	}
	if snapshot := c.snapshots.Load(ctx); snapshot != nil {
		return Normalize(nil, *snapshot, NormalizeLoad)
	}
	return types.DefaultContestState()
}

func (c *Coordinator) ensureLoaded(ctx context.Context) {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if !loaded {
		c.Load(ctx)
	}
}

func (c *Coordinator) publish(ctx context.Context, channel string, event any) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishEvent(ctx, channel, event); err != nil {
		log.Printf("contest: publish %s: %v", channel, err)
	}
}

func emptyIfNil(submissions []types.Submission) []types.Submission {
	if submissions == nil {
		return []types.Submission{}
	}
	return submissions
}

func votesOrEmpty(votes []types.Vote) []types.Vote {
	if votes == nil {
		return []types.Vote{}
	}
	return votes
}
