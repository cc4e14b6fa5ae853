package contest

import (
	"testing"

	"github.com/reto-anonimo/apiserver/types"
)

func TestNormalizeNilRawKeepsFallback(t *testing.T) {
	fallback := types.ContestState{
		Phase:          types.PhaseVoting,
		RatingCriteria: []types.RatingCriterion{{ID: "c1", Label: "Creatividad"}},
		ChallengeTitle: "Reto de agosto",
	}

	state := Normalize(nil, fallback, NormalizeLoad)

	if state.Phase != types.PhaseVoting {
		t.Fatalf("unexpected phase: %q", state.Phase)
	}
	if len(state.RatingCriteria) != 1 || state.RatingCriteria[0].ID != "c1" {
		t.Fatalf("unexpected criteria: %+v", state.RatingCriteria)
	}
	if state.ChallengeTitle != "Reto de agosto" {
		t.Fatalf("unexpected title: %q", state.ChallengeTitle)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	state := Normalize(nil, types.ContestState{}, NormalizeLoad)

	if state.Phase != types.PhaseSubmission {
		t.Fatalf("expected SUBMISSION, got %q", state.Phase)
	}
	if state.RatingCriteria == nil {
		t.Fatalf("expected non-nil criteria")
	}
	if len(state.RatingCriteria) != 0 {
		t.Fatalf("expected empty criteria, got %+v", state.RatingCriteria)
	}
	if state.ChallengeTitle != types.DefaultChallengeTitle {
		t.Fatalf("unexpected title: %q", state.ChallengeTitle)
	}
}

func TestNormalizeInvalidPhaseRejected(t *testing.T) {
	raw := &types.RawContestState{Phase: "PAUSED"}
	fallback := types.ContestState{Phase: types.PhaseVoting}

	state := Normalize(raw, fallback, NormalizeLoad)

	if state.Phase != types.PhaseVoting {
		t.Fatalf("invalid raw phase should keep fallback, got %q", state.Phase)
	}
}

func TestNormalizeLoadKeepsFallbackCriteriaOnAbsence(t *testing.T) {
	raw := &types.RawContestState{Phase: types.PhaseSubmission}
	fallback := types.ContestState{
		Phase:          types.PhaseSubmission,
		RatingCriteria: []types.RatingCriterion{{ID: "c1", Label: "Humor"}},
	}

	state := Normalize(raw, fallback, NormalizeLoad)

	if len(state.RatingCriteria) != 1 {
		t.Fatalf("load mode should keep fallback criteria, got %+v", state.RatingCriteria)
	}
}

func TestNormalizeUpdateTreatsAbsenceAsCleared(t *testing.T) {
	raw := &types.RawContestState{Phase: types.PhaseSubmission}
	fallback := types.ContestState{
		Phase:          types.PhaseSubmission,
		RatingCriteria: []types.RatingCriterion{{ID: "c1", Label: "Humor"}},
	}

	state := Normalize(raw, fallback, NormalizeUpdate)

	if state.RatingCriteria == nil {
		t.Fatalf("criteria must stay non-nil")
	}
	if len(state.RatingCriteria) != 0 {
		t.Fatalf("update mode should clear criteria, got %+v", state.RatingCriteria)
	}
}

func TestNormalizeRawOverridesFallback(t *testing.T) {
	raw := &types.RawContestState{
		Phase:          types.PhaseRevealed,
		RatingCriteria: []types.RatingCriterion{{ID: "c2", Label: "Originalidad"}},
		ChallengeTitle: "Nuevo reto",
	}
	fallback := types.DefaultContestState()

	state := Normalize(raw, fallback, NormalizeLoad)

	if state.Phase != types.PhaseRevealed {
		t.Fatalf("unexpected phase: %q", state.Phase)
	}
	if len(state.RatingCriteria) != 1 || state.RatingCriteria[0].ID != "c2" {
		t.Fatalf("unexpected criteria: %+v", state.RatingCriteria)
	}
	if state.ChallengeTitle != "Nuevo reto" {
		t.Fatalf("unexpected title: %q", state.ChallengeTitle)
	}
}

func TestCanTransition(t *testing.T) {
	legal := []struct {
		from, to types.Phase
	}{
		{types.PhaseSubmission, types.PhaseVoting},
		{types.PhaseVoting, types.PhaseRevealed},
		{types.PhaseVoting, types.PhaseSubmission},
		{types.PhaseRevealed, types.PhaseVoting},
		{types.PhaseRevealed, types.PhaseSubmission},
	}
	for _, edge := range legal {
		if !CanTransition(edge.from, edge.to) {
			t.Errorf("expected %s -> %s to be legal", edge.from, edge.to)
		}
	}

	illegal := []struct {
		from, to types.Phase
	}{
		{types.PhaseSubmission, types.PhaseRevealed},
		{types.PhaseSubmission, types.PhaseSubmission},
		{types.PhaseVoting, types.PhaseVoting},
		{types.PhaseRevealed, types.PhaseRevealed},
		{types.PhaseSubmission, "PAUSED"},
	}
	for _, edge := range illegal {
		if CanTransition(edge.from, edge.to) {
			t.Errorf("expected %s -> %s to be illegal", edge.from, edge.to)
		}
	}
}

func TestIsReset(t *testing.T) {
	if !IsReset(types.PhaseRevealed, types.PhaseSubmission) {
		t.Fatalf("REVEALED -> SUBMISSION is the reset edge")
	}
	if IsReset(types.PhaseVoting, types.PhaseSubmission) {
		t.Fatalf("VOTING -> SUBMISSION is not a reset")
	}
}
