package scoring

import (
	"sort"

	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
)

const (
	CaptainMultiplier     = 2.0
	ViceCaptainMultiplier = 1.5
)

// ScoreEntry computes one entry's block total. Starting slots are processed
// in their original order; a slot whose player has no points row is filled by
// the next bench player that does have one (bench1 before bench2, each
// consumed once), and contributes zero once the bench is exhausted. The
// captain and vice multipliers are bound to the player identity: they apply
// only when that exact player played, and are lost for the block when the
// player was substituted out.
func ScoreEntry(entry fantasy.Entry, points map[string]float64) EntryScore {
	benchQueue := make([]string, 0, 2)
	for _, id := range entry.Bench() {
		if id == "" {
			continue
		}
		if _, played := points[id]; played {
			benchQueue = append(benchQueue, id)
		}
	}

	result := EntryScore{
		BlockNumber: entry.BlockNumber,
		UserID:      entry.UserID,
		Slots:       make([]SlotResult, 0, len(entry.Starting)),
	}

	for _, starterID := range entry.Starting {
		slot := SlotResult{PlayerID: starterID, Multiplier: 1}

		value, played := points[starterID]
		if !played && len(benchQueue) > 0 {
			substitute := benchQueue[0]
			benchQueue = benchQueue[1:]
			slot.PlayerID = substitute
			slot.SubbedInFor = starterID
			value, played = points[substitute], true
			result.BenchUsed = append(result.BenchUsed, substitute)
		}

		if played {
			slot.Played = true
			slot.Points = value
			if slot.SubbedInFor == "" {
				switch slot.PlayerID {
				case entry.CaptainID:
					slot.Multiplier = CaptainMultiplier
				case entry.ViceCaptainID:
					slot.Multiplier = ViceCaptainMultiplier
				}
			}
			slot.Contribution = slot.Points * slot.Multiplier
		}

		result.Total += slot.Contribution
		result.Slots = append(result.Slots, slot)
	}

	return result
}

// RankByTotal orders leaderboard rows by total descending with user id as the
// explicit tie-break, then assigns rank numbers where equal totals share a
// rank.
func RankByTotal(rows []UserScore) []UserScore {
	out := append([]UserScore(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].UserID < out[j].UserID
	})

	lastTotal := 0.0
	rank := 0
	for idx := range out {
		if idx == 0 || out[idx].Total != lastTotal {
			rank++
			lastTotal = out[idx].Total
		}
		out[idx].Rank = rank
	}

	return out
}

// RankSeason applies the same ordering and rank sharing to season rows.
func RankSeason(rows []SeasonScore) []SeasonScore {
	out := append([]SeasonScore(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].UserID < out[j].UserID
	})

	lastTotal := 0.0
	rank := 0
	for idx := range out {
		if idx == 0 || out[idx].Total != lastTotal {
			rank++
			lastTotal = out[idx].Total
		}
		out[idx].Rank = rank
	}

	return out
}
