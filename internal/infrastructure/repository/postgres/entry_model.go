package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type entryTableModel struct {
	ID            int64           `db:"id"`
	PublicID      string          `db:"public_id"`
	BlockNumber   int             `db:"block_number"`
	UserID        string          `db:"user_id"`
	SquadIDs      pq.StringArray  `db:"squad_player_ids"`
	StartingIDs   pq.StringArray  `db:"starting_player_ids"`
	Bench1ID      string          `db:"bench1_player_public_id"`
	Bench2ID      string          `db:"bench2_player_public_id"`
	CaptainID     string          `db:"captain_player_public_id"`
	ViceCaptainID string          `db:"vice_captain_player_public_id"`
	BudgetUsed    decimal.Decimal `db:"budget_used"`
	SubmittedAt   time.Time       `db:"submitted_at"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	DeletedAt     *time.Time      `db:"deleted_at"`
}
