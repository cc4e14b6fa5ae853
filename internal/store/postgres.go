package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/reto-anonimo/apiserver/types"
)

const uniqueViolation = "23505"

// PostgresStore is the self-hosted backend. Unlike the sheets backend it owns
// credential hashing and winner aggregation itself.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgresStore on top of an open connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ContestState(ctx context.Context) (*types.RawContestState, error) {
	const query = `
		SELECT phase, rating_criteria, challenge_title
		FROM contest_state
		WHERE id = 1`
	var (
		raw          types.RawContestState
		criteriaJSON []byte
	)
	err := s.db.QueryRowContext(ctx, query).Scan(&raw.Phase, &criteriaJSON, &raw.ChallengeTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(criteriaJSON) > 0 {
		var criteria []types.RatingCriterion
		if err := json.Unmarshal(criteriaJSON, &criteria); err == nil {
			raw.RatingCriteria = criteria
		}
	}
	return &raw, nil
}

func (s *PostgresStore) UpdateContestState(ctx context.Context, state types.ContestState) (*types.RawContestState, error) {
	criteriaJSON, err := json.Marshal(state.RatingCriteria)
	if err != nil {
		return nil, err
	}

	const query = `
		INSERT INTO contest_state (id, phase, rating_criteria, challenge_title, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET phase = EXCLUDED.phase,
			rating_criteria = EXCLUDED.rating_criteria,
			challenge_title = EXCLUDED.challenge_title,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, string(state.Phase), criteriaJSON, state.ChallengeTitle, time.Now()); err != nil {
		return nil, err
	}
	return s.ContestState(ctx)
}

func (s *PostgresStore) Users(ctx context.Context) ([]types.User, error) {
	const query = `SELECT id, name, is_admin FROM users ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var user types.User
		if err := rows.Scan(&user.ID, &user.Name, &user.IsAdmin); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) AddUser(ctx context.Context, name, password string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user := types.User{ID: uuid.NewString(), Name: name}
	const query = `
		INSERT INTO users (id, name, is_admin, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Name, user.IsAdmin, string(hashed), time.Now()); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return types.User{}, ErrUserExists
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *PostgresStore) LoginUser(ctx context.Context, name, password string) (types.User, error) {
	const query = `SELECT id, name, is_admin, password_hash FROM users WHERE name = $1`
	var (
		user types.User
		hash string
	)
	err := s.db.QueryRowContext(ctx, query, name).Scan(&user.ID, &user.Name, &user.IsAdmin, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *PostgresStore) Submissions(ctx context.Context) ([]types.Submission, error) {
	const query = `
		SELECT id, participant_name, user_id, text_content, image_url, ts
		FROM submissions
		ORDER BY ts`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []types.Submission
	for rows.Next() {
		var submission types.Submission
		if err := rows.Scan(
			&submission.ID,
			&submission.ParticipantName,
			&submission.UserID,
			&submission.TextContent,
			&submission.ImageURL,
			&submission.Timestamp,
		); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, rows.Err()
}

func (s *PostgresStore) AddSubmission(ctx context.Context, submission types.Submission) (types.Submission, error) {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.Timestamp == 0 {
		submission.Timestamp = time.Now().UnixMilli()
	}

	const query = `
		INSERT INTO submissions (id, participant_name, user_id, text_content, image_url, ts)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(
		ctx,
		query,
		submission.ID,
		submission.ParticipantName,
		submission.UserID,
		submission.TextContent,
		submission.ImageURL,
		submission.Timestamp,
	); err != nil {
		return types.Submission{}, err
	}
	return submission, nil
}

func (s *PostgresStore) Votes(ctx context.Context) ([]types.Vote, error) {
	const query = `SELECT user_id, submission_id, ratings FROM votes`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []types.Vote
	for rows.Next() {
		var (
			vote        types.Vote
			ratingsJSON []byte
		)
		if err := rows.Scan(&vote.UserID, &vote.SubmissionID, &ratingsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ratingsJSON, &vote.Ratings); err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}

func (s *PostgresStore) CastVote(ctx context.Context, vote types.Vote) (types.Vote, error) {
	ratingsJSON, err := json.Marshal(vote.Ratings)
	if err != nil {
		return types.Vote{}, err
	}

	// Upsert on the (user, submission) pair: a second vote replaces the
	// first rather than adding a row.
	const query = `
		INSERT INTO votes (user_id, submission_id, ratings, cast_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, submission_id) DO UPDATE
		SET ratings = EXCLUDED.ratings,
			cast_at = EXCLUDED.cast_at`
	if _, err := s.db.ExecContext(ctx, query, vote.UserID, vote.SubmissionID, ratingsJSON, time.Now()); err != nil {
		return types.Vote{}, err
	}
	return vote, nil
}

// Winner aggregates every vote's star values per submission and returns the
// submission with the highest mean, or nil when there are no rated entries.
// Ties go to the earliest submission.
func (s *PostgresStore) Winner(ctx context.Context) (*types.Winner, error) {
	submissions, err := s.Submissions(ctx)
	if err != nil {
		return nil, err
	}
	votes, err := s.Votes(ctx)
	if err != nil {
		return nil, err
	}

	type tally struct {
		sum   int
		count int
	}
	tallies := make(map[string]*tally)
	for _, vote := range votes {
		t := tallies[vote.SubmissionID]
		if t == nil {
			t = &tally{}
			tallies[vote.SubmissionID] = t
		}
		for _, stars := range vote.Ratings {
			t.sum += stars
			t.count++
		}
	}

	var winner *types.Winner
	for _, submission := range submissions {
		t := tallies[submission.ID]
		if t == nil || t.count == 0 {
			continue
		}
		score := float64(t.sum) / float64(t.count)
		if winner == nil || score > winner.Score {
			winner = &types.Winner{Submission: submission, Score: score}
		}
	}
	return winner, nil
}

func (s *PostgresStore) ClearEntries(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM votes`); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions`); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
