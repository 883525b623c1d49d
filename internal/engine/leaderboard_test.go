package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardOrdering(t *testing.T) {
	board := map[string]Participant{
		"p1": {ID: "p1", Name: "ada", Score: 30},
		"p2": {ID: "p2", Name: "grace", Score: 50},
		"p3": {ID: "p3", Name: "alan", Score: 50},
	}

	entries := Leaderboard(board)
	require.Len(t, entries, 3)

	// Ties break on ascending participant id, ranks are dense 1-based.
	assert.Equal(t, []LeaderboardEntry{
		{ParticipantID: "p2", Name: "grace", Score: 50, Rank: 1},
		{ParticipantID: "p3", Name: "alan", Score: 50, Rank: 2},
		{ParticipantID: "p1", Name: "ada", Score: 30, Rank: 3},
	}, entries)
}

func TestLeaderboardDeterministic(t *testing.T) {
	board := map[string]Participant{}
	for _, p := range []Participant{
		{ID: "a", Score: 1}, {ID: "b", Score: 1}, {ID: "c", Score: 1},
		{ID: "d", Score: 2}, {ID: "e", Score: 0},
	} {
		board[p.ID] = p
	}

	first := Leaderboard(board)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Leaderboard(board), "map iteration order must not leak through")
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	assert.Empty(t, Leaderboard(nil))
	assert.Empty(t, Leaderboard(map[string]Participant{}))
}

func TestLeaderboardRecomputedFromScratch(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{},
		ScoreUpdate{Entries: []Participant{
			{ID: "p1", Name: "ada", Score: 10},
			{ID: "p2", Name: "grace", Score: 20},
		}},
	)
	first := s.Ranked()
	require.Equal(t, "p2", first[0].ParticipantID)

	// The next update flips the ordering entirely.
	s = apply(t, s, ScoreUpdate{Entries: []Participant{
		{ID: "p1", Name: "ada", Score: 30},
		{ID: "p2", Name: "grace", Score: 20},
	}})
	second := s.Ranked()
	assert.Equal(t, "p1", second[0].ParticipantID)
	assert.Equal(t, 1, second[0].Rank)
	assert.Equal(t, 2, second[1].Rank)
}
