package memory

import (
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/team"
)

func SeedTeams() []team.Team {
	return []team.Team{
		{ID: "idn-persija", Name: "Persija Jakarta", Short: "PSJ"},
		{ID: "idn-persib", Name: "Persib Bandung", Short: "PSB"},
		{ID: "idn-persebaya", Name: "Persebaya Surabaya", Short: "PRB"},
		{ID: "idn-baliutd", Name: "Bali United", Short: "BU"},
	}
}

func SeedPlayers() []player.Player {
	return []player.Player{
		{ID: "idn-psj-01", Name: "Andritany Ardhiyasa", TeamID: "idn-persija", Active: true},
		{ID: "idn-psj-02", Name: "Hansamu Yama", TeamID: "idn-persija", Active: true},
		{ID: "idn-psj-03", Name: "Maciej Gajos", TeamID: "idn-persija", Active: true},
		{ID: "idn-psj-04", Name: "Gustavo Almeida", TeamID: "idn-persija", Active: true},
		{ID: "idn-psb-01", Name: "Teja Paku Alam", TeamID: "idn-persib", Active: true},
		{ID: "idn-psb-02", Name: "Nick Kuipers", TeamID: "idn-persib", Active: true},
		{ID: "idn-psb-03", Name: "Marc Klok", TeamID: "idn-persib", Active: true},
		{ID: "idn-psb-04", Name: "David da Silva", TeamID: "idn-persib", Active: true},
		{ID: "idn-prb-01", Name: "Ernando Ari", TeamID: "idn-persebaya", Active: true},
		{ID: "idn-prb-02", Name: "Dusan Stevanovic", TeamID: "idn-persebaya", Active: true},
		{ID: "idn-prb-03", Name: "Bruno Moreira", TeamID: "idn-persebaya", Active: true},
		{ID: "idn-prb-04", Name: "Paulo Henrique", TeamID: "idn-persebaya", Active: true},
		{ID: "idn-bu-01", Name: "Wawan Hendrawan", TeamID: "idn-baliutd", Active: true},
		{ID: "idn-bu-02", Name: "Ricky Fajrin", TeamID: "idn-baliutd", Active: true},
		{ID: "idn-bu-03", Name: "Eber Bessa", TeamID: "idn-baliutd", Active: true},
		{ID: "idn-bu-04", Name: "Ilija Spasojevic", TeamID: "idn-baliutd", Active: true},
		{ID: "idn-psj-05", Name: "Rio Fahmi", TeamID: "idn-persija", Active: false},
	}
}

// SeedFixtures spans three weekends more than the default partition gap
// apart, so the derived block set has three blocks of two fixtures each.
func SeedFixtures() []fixture.Fixture {
	return []fixture.Fixture{
		{
			ID:       "fx-idn-001",
			HomeTeam: "Persija Jakarta",
			AwayTeam: "Persib Bandung",
			StartAt:  time.Date(2026, 3, 7, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:       "fx-idn-002",
			HomeTeam: "Persebaya Surabaya",
			AwayTeam: "Bali United",
			StartAt:  time.Date(2026, 3, 8, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:       "fx-idn-003",
			HomeTeam: "Persib Bandung",
			AwayTeam: "Persebaya Surabaya",
			StartAt:  time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:       "fx-idn-004",
			HomeTeam: "Bali United",
			AwayTeam: "Persija Jakarta",
			StartAt:  time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:       "fx-idn-005",
			HomeTeam: "Persija Jakarta",
			AwayTeam: "Persebaya Surabaya",
			StartAt:  time.Date(2026, 3, 21, 12, 30, 0, 0, time.UTC),
		},
		{
			ID:       "fx-idn-006",
			HomeTeam: "Persib Bandung",
			AwayTeam: "Bali United",
			StartAt:  time.Date(2026, 3, 22, 12, 30, 0, 0, time.UTC),
		},
	}
}
