package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

type blockPriceTableModel struct {
	ID          int64           `db:"id"`
	BlockNumber int             `db:"block_number"`
	PlayerID    string          `db:"player_public_id"`
	Price       decimal.Decimal `db:"price"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	DeletedAt   *time.Time      `db:"deleted_at"`
}

type blockPriceInsertModel struct {
	BlockNumber int             `db:"block_number"`
	PlayerID    string          `db:"player_public_id"`
	Price       decimal.Decimal `db:"price"`
}
