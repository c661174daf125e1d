package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	qb "github.com/leagueroom/fantasy-blocks/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) UpsertMany(ctx context.Context, players []player.Player) error {
	if len(players) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range players {
		model := playerInsertModel{
			PublicID: p.ID,
			Name:     p.Name,
			TeamID:   p.TeamID,
			IsActive: p.Active,
		}
		query, args, err := qb.InsertModel("players", model, `ON CONFLICT (public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    name = EXCLUDED.name,
    team_public_id = EXCLUDED.team_public_id,
    is_active = EXCLUDED.is_active,
    updated_at = NOW(),
    deleted_at = NULL`)
		if err != nil {
			return fmt.Errorf("build upsert player %s query: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster upsert tx: %w", err)
	}
	return nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	return r.list(ctx, false)
}

func (r *PlayerRepository) ListActive(ctx context.Context) ([]player.Player, error) {
	return r.list(ctx, true)
}

func (r *PlayerRepository) list(ctx context.Context, activeOnly bool) ([]player.Player, error) {
	builder := qb.Select("*").
		From("players").
		Where(qb.IsNull("deleted_at")).
		OrderBy("public_id")
	if activeOnly {
		builder = builder.Where(qb.Eq("is_active", true))
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.Player{
			ID:     row.PublicID,
			Name:   row.Name,
			TeamID: row.TeamID,
			Active: row.IsActive,
		})
	}
	return out, nil
}
