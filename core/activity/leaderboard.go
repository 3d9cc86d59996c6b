package activity

import "sort"

// DisplayLimit caps how many entries a leaderboard response carries.
const DisplayLimit = 20

type (
	// Entry is one leaderboard row.
	Entry struct {
		Rank   int    `json:"rank"`
		UserID string `json:"user_id"`
		Name   string `json:"name"`
		Points int    `json:"points"`
	}

	// Board is a school's leaderboard, truncated to DisplayLimit; MyRank is the
	// caller's 1-based position over the full (untruncated) ranking.
	Board struct {
		Entries      []Entry `json:"entries"`
		TotalMembers int     `json:"total_members"`
		MyRank       int     `json:"my_rank,omitempty"`
		MyPoints     int     `json:"my_points"`
	}
)

// Rank orders entries by points descending, ties broken by ascending user ID
// so repeated calls on identical input always yield the same order, and
// assigns 1-based ranks.
func Rank(entries []Entry) []Entry {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Points != ranked[j].Points {
			return ranked[i].Points > ranked[j].Points
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
