package postgres

import (
	"time"

	"github.com/lib/pq"
)

type blockTableModel struct {
	ID             int64          `db:"id"`
	Number         int            `db:"number"`
	FixtureIDs     pq.StringArray `db:"fixture_public_ids"`
	FirstKickoffAt time.Time      `db:"first_kickoff_at"`
	LockAt         time.Time      `db:"lock_at"`
	ScoredAt       *time.Time     `db:"scored_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	DeletedAt      *time.Time     `db:"deleted_at"`
}

type blockInsertModel struct {
	Number         int            `db:"number"`
	FixtureIDs     pq.StringArray `db:"fixture_public_ids"`
	FirstKickoffAt time.Time      `db:"first_kickoff_at"`
	LockAt         time.Time      `db:"lock_at"`
}
