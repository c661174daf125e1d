package postgres

import "time"

type fixtureTableModel struct {
	ID        int64      `db:"id"`
	PublicID  string     `db:"public_id"`
	HomeTeam  string     `db:"home_team"`
	AwayTeam  string     `db:"away_team"`
	StartAt   time.Time  `db:"start_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type fixtureInsertModel struct {
	PublicID string    `db:"public_id"`
	HomeTeam string    `db:"home_team"`
	AwayTeam string    `db:"away_team"`
	StartAt  time.Time `db:"start_at"`
}
