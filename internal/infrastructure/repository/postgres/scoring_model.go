package postgres

import "time"

type blockPlayerPointsTableModel struct {
	ID          int64      `db:"id"`
	BlockNumber int        `db:"block_number"`
	PlayerID    string     `db:"player_public_id"`
	Points      float64    `db:"points"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
}

type blockPlayerPointsInsertModel struct {
	BlockNumber int     `db:"block_number"`
	PlayerID    string  `db:"player_public_id"`
	Points      float64 `db:"points"`
}
