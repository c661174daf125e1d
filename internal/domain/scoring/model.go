package scoring

import "time"

// PlayerPoints is the externally supplied score for one player in one block.
// A player with no row did not play (DNP) in that block.
type PlayerPoints struct {
	BlockNumber int
	PlayerID    string
	Points      float64
}

// SlotResult explains one starting slot after substitution and multipliers.
type SlotResult struct {
	PlayerID     string
	SubbedInFor  string
	Played       bool
	Points       float64
	Multiplier   float64
	Contribution float64
}

// EntryScore is the scored outcome of one entry for one block.
type EntryScore struct {
	BlockNumber int
	UserID      string
	Total       float64
	Slots       []SlotResult
	BenchUsed   []string
}

// UserScore is one leaderboard row. Equal totals share a rank number; row
// order is still deterministic (total descending, then user id ascending).
type UserScore struct {
	Rank        int
	UserID      string
	BlockNumber int
	Total       float64
}

// SeasonScore is one season standings row, aggregated over scored blocks.
type SeasonScore struct {
	Rank         int
	UserID       string
	Total        float64
	ScoredBlocks int
}

// BlockHistory is one row of a user's per-block points history.
type BlockHistory struct {
	BlockNumber int
	Total       float64
	ScoredAt    time.Time
}

// PointsMap indexes point rows by player id.
func PointsMap(rows []PlayerPoints) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.PlayerID] = row.Points
	}
	return out
}
