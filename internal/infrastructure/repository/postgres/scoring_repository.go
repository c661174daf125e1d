package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/leagueroom/fantasy-blocks/internal/domain/scoring"
	qb "github.com/leagueroom/fantasy-blocks/internal/platform/querybuilder"
)

type ScoringRepository struct {
	db *sqlx.DB
}

func NewScoringRepository(db *sqlx.DB) *ScoringRepository {
	return &ScoringRepository{db: db}
}

func (r *ScoringRepository) UpsertPlayerPoints(ctx context.Context, blockNumber int, rows []scoring.PlayerPoints) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin player points tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, row := range rows {
		model := blockPlayerPointsInsertModel{
			BlockNumber: blockNumber,
			PlayerID:    row.PlayerID,
			Points:      row.Points,
		}
		query, args, err := qb.InsertModel("block_player_points", model, `ON CONFLICT (block_number, player_public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    points = EXCLUDED.points,
    updated_at = NOW(),
    deleted_at = NULL`)
		if err != nil {
			return fmt.Errorf("build upsert player points player=%s query: %w", row.PlayerID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player points player=%s: %w", row.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit player points tx: %w", err)
	}
	return nil
}

func (r *ScoringRepository) ListPlayerPoints(ctx context.Context, blockNumber int) ([]scoring.PlayerPoints, error) {
	query, args, err := qb.Select("*").
		From("block_player_points").
		Where(
			qb.Eq("block_number", blockNumber),
			qb.IsNull("deleted_at"),
		).
		OrderBy("player_public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list player points query: %w", err)
	}

	var rows []blockPlayerPointsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list player points: %w", err)
	}

	out := make([]scoring.PlayerPoints, 0, len(rows))
	for _, row := range rows {
		out = append(out, scoring.PlayerPoints{
			BlockNumber: row.BlockNumber,
			PlayerID:    row.PlayerID,
			Points:      row.Points,
		})
	}
	return out, nil
}
