package engine

import "sort"

type LeaderboardEntry struct {
	ParticipantID string
	Name          string
	Score         int
	Rank          int
}

// Leaderboard ranks the given participants by score descending, ties broken
// by ascending participant id. The ordering is fully deterministic because
// the server may resend the same scoreboard in a different order, and it is
// recomputed from scratch on every call rather than patched incrementally.
func Leaderboard(participants map[string]Participant) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, LeaderboardEntry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Score:         p.Score,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Ranked is a convenience view over the state's participant set.
func (s State) Ranked() []LeaderboardEntry {
	return Leaderboard(s.Participants)
}
