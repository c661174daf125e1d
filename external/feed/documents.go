package feed

import (
	"strings"
	"time"
)

// Wire shapes of the published league documents. The feed is a set of static
// JSON files regenerated by the league office, so unknown fields are common
// and tolerated.

type fixturesDocument struct {
	Fixtures []fixtureItem `json:"fixtures"`
}

type fixtureItem struct {
	ID       string `json:"id"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	StartAt  string `json:"start_at"`
}

type rosterDocument struct {
	Players []rosterItem `json:"players"`
}

type rosterItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"team_id"`
	Active *bool  `json:"active"`
}

type teamsDocument struct {
	Teams []teamItem `json:"teams"`
}

type teamItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Short string `json:"short"`
}

type pointsDocument struct {
	BlockNumber int         `json:"block_number"`
	Points      []pointsRow `json:"points"`
}

type pointsRow struct {
	PlayerID string  `json:"player_id"`
	Points   float64 `json:"points"`
}

func parseFeedTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}
