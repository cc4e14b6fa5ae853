package contest

import "github.com/reto-anonimo/apiserver/types"

// HasSubmitted reports whether the user already owns an entry. Participants
// get one submission per challenge; the submit surface is replaced by a
// thank-you note once this is true.
func HasSubmitted(user types.User, submissions []types.Submission) bool {
	for _, submission := range submissions {
		if submission.UserID == user.ID {
			return true
		}
	}
	return false
}

// CanVoteOn reports whether the user may rate the submission. Self-voting is
// the only exclusion.
func CanVoteOn(user types.User, submission types.Submission) bool {
	return submission.UserID != user.ID
}

// ExistingVote finds the user's prior vote for the submission, if any.
func ExistingVote(user types.User, submissionID string, votes []types.Vote) (types.Vote, bool) {
	for _, vote := range votes {
		if vote.UserID == user.ID && vote.SubmissionID == submissionID {
			return vote, true
		}
	}
	return types.Vote{}, false
}

// VoteIsComplete reports whether every criterion has been rated with a star
// value in [1,5]. Zero means unrated; an incomplete vote is rejected before
// any network call is made.
func VoteIsComplete(ratings map[string]int, criteria []types.RatingCriterion) bool {
	for _, criterion := range criteria {
		stars := ratings[criterion.ID]
		if stars < 1 || stars > 5 {
			return false
		}
	}
	return true
}

// UpsertVote replaces any prior vote for the same (user, submission) pair and
// appends the new one, keeping exactly one entry per pair.
func UpsertVote(votes []types.Vote, vote types.Vote) []types.Vote {
	result := make([]types.Vote, 0, len(votes)+1)
	for _, existing := range votes {
		if existing.UserID == vote.UserID && existing.SubmissionID == vote.SubmissionID {
			continue
		}
		result = append(result, existing)
	}
	return append(result, vote)
}
