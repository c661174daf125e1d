package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	qb "github.com/leagueroom/fantasy-blocks/internal/platform/querybuilder"
)

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) UpsertMany(ctx context.Context, fixtures []fixture.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fixture upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, f := range fixtures {
		model := fixtureInsertModel{
			PublicID: f.ID,
			HomeTeam: f.HomeTeam,
			AwayTeam: f.AwayTeam,
			StartAt:  f.StartAt.UTC(),
		}
		query, args, err := qb.InsertModel("fixtures", model, `ON CONFLICT (public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    home_team = EXCLUDED.home_team,
    away_team = EXCLUDED.away_team,
    start_at = EXCLUDED.start_at,
    updated_at = NOW(),
    deleted_at = NULL`)
		if err != nil {
			return fmt.Errorf("build upsert fixture %s query: %w", f.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert fixture %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fixture upsert tx: %w", err)
	}
	return nil
}

func (r *FixtureRepository) List(ctx context.Context) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").
		From("fixtures").
		Where(qb.IsNull("deleted_at")).
		OrderBy("start_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, fixtureFromRow(row))
	}
	return out, nil
}

// ListByIDs returns fixtures in the requested order, skipping unknown ids.
func (r *FixtureRepository) ListByIDs(ctx context.Context, ids []string) ([]fixture.Fixture, error) {
	if len(ids) == 0 {
		return []fixture.Fixture{}, nil
	}

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	query, args, err := qb.Select("*").
		From("fixtures").
		Where(
			qb.In("public_id", values),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by ids query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by ids: %w", err)
	}

	byID := make(map[string]fixture.Fixture, len(rows))
	for _, row := range rows {
		byID[row.PublicID] = fixtureFromRow(row)
	}

	out := make([]fixture.Fixture, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func fixtureFromRow(row fixtureTableModel) fixture.Fixture {
	return fixture.Fixture{
		ID:       row.PublicID,
		HomeTeam: row.HomeTeam,
		AwayTeam: row.AwayTeam,
		StartAt:  row.StartAt,
	}
}
