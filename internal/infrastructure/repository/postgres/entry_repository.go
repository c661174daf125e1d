package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	qb "github.com/leagueroom/fantasy-blocks/internal/platform/querybuilder"
)

type EntryRepository struct {
	db *sqlx.DB
}

func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Get(ctx context.Context, blockNumber int, userID string) (fantasy.Entry, bool, error) {
	query, args, err := entryBaseSelectBuilder().
		Where(
			qb.Eq("block_number", blockNumber),
			qb.Eq("user_id", userID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fantasy.Entry{}, false, fmt.Errorf("build get entry query: %w", err)
	}

	var row entryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
			return r.getSingleParam(ctx, blockNumber, userID)
		}
		if isNotFound(err) {
			return fantasy.Entry{}, false, nil
		}
		return fantasy.Entry{}, false, fmt.Errorf("get entry: %w", err)
	}

	return entryFromRow(row), true, nil
}

// getSingleParam folds both lookup keys into one array parameter so the
// query survives transaction poolers that mangle multi-parameter binds.
func (r *EntryRepository) getSingleParam(ctx context.Context, blockNumber int, userID string) (fantasy.Entry, bool, error) {
	query, _, err := entryBaseSelectBuilder().
		Where(
			qb.Expr("block_number = (($1::text[])[1])::int"),
			qb.Expr("user_id = ($1::text[])[2]"),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fantasy.Entry{}, false, fmt.Errorf("build get entry single param fallback query: %w", err)
	}

	var row entryTableModel
	if err := r.db.GetContext(ctx, &row, query, pq.Array([]string{fmt.Sprintf("%d", blockNumber), userID})); err != nil {
		if isUnnamedPreparedStatementMissing(err) {
			return r.getLiteral(ctx, blockNumber, userID)
		}
		if isNotFound(err) {
			return fantasy.Entry{}, false, nil
		}
		return fantasy.Entry{}, false, fmt.Errorf("get entry fallback: %w", err)
	}

	return entryFromRow(row), true, nil
}

func (r *EntryRepository) getLiteral(ctx context.Context, blockNumber int, userID string) (fantasy.Entry, bool, error) {
	query, args, err := entryBaseSelectBuilder().
		Where(
			qb.Expr(fmt.Sprintf("block_number = %d", blockNumber)),
			qb.EqLiteral("user_id", userID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fantasy.Entry{}, false, fmt.Errorf("build get entry literal fallback query: %w", err)
	}

	var row entryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fantasy.Entry{}, false, nil
		}
		return fantasy.Entry{}, false, fmt.Errorf("get entry literal fallback: %w", err)
	}

	return entryFromRow(row), true, nil
}

// UpsertWhileOpen writes the entry and re-checks the block state in the same
// statement. The insert only fires while the block row is unscored and still
// ahead of its lock time, so a submission racing the lock either lands
// before it or is refused; there is no window where a stale check wins.
func (r *EntryRepository) UpsertWhileOpen(ctx context.Context, entry fantasy.Entry, now time.Time) error {
	const query = `
INSERT INTO entries (
    public_id,
    block_number,
    user_id,
    squad_player_ids,
    starting_player_ids,
    bench1_player_public_id,
    bench2_player_public_id,
    captain_player_public_id,
    vice_captain_player_public_id,
    budget_used,
    submitted_at
)
SELECT :public_id, :block_number, :user_id, :squad_player_ids, :starting_player_ids,
       :bench1_player_public_id, :bench2_player_public_id,
       :captain_player_public_id, :vice_captain_player_public_id,
       :budget_used, :submitted_at
WHERE EXISTS (
    SELECT 1
    FROM blocks
    WHERE number = :block_number
      AND deleted_at IS NULL
      AND scored_at IS NULL
      AND lock_at > :now
)
ON CONFLICT (block_number, user_id) WHERE deleted_at IS NULL
DO UPDATE SET
    squad_player_ids = EXCLUDED.squad_player_ids,
    starting_player_ids = EXCLUDED.starting_player_ids,
    bench1_player_public_id = EXCLUDED.bench1_player_public_id,
    bench2_player_public_id = EXCLUDED.bench2_player_public_id,
    captain_player_public_id = EXCLUDED.captain_player_public_id,
    vice_captain_player_public_id = EXCLUDED.vice_captain_player_public_id,
    budget_used = EXCLUDED.budget_used,
    submitted_at = EXCLUDED.submitted_at,
    updated_at = NOW(),
    deleted_at = NULL
RETURNING public_id`

	args := map[string]any{
		"public_id":                     entry.ID,
		"block_number":                  entry.BlockNumber,
		"user_id":                       entry.UserID,
		"squad_player_ids":              pq.StringArray(entry.Squad),
		"starting_player_ids":           pq.StringArray(entry.Starting),
		"bench1_player_public_id":       entry.Bench1,
		"bench2_player_public_id":       entry.Bench2,
		"captain_player_public_id":      entry.CaptainID,
		"vice_captain_player_public_id": entry.ViceCaptainID,
		"budget_used":                   entry.BudgetUsed,
		"submitted_at":                  entry.SubmittedAt.UTC(),
		"now":                           now.UTC(),
	}

	boundSQL, boundArgs, err := sqlx.Named(query, args)
	if err != nil {
		return fmt.Errorf("bind upsert entry query: %w", err)
	}
	boundSQL = r.db.Rebind(boundSQL)

	rows, err := r.db.QueryxContext(ctx, boundSQL, boundArgs...)
	if err != nil {
		return fmt.Errorf("upsert entry block=%d user=%s: %w", entry.BlockNumber, entry.UserID, err)
	}
	defer rows.Close()
	if rows.Next() {
		return nil
	}

	const blockQuery = `SELECT number FROM blocks WHERE number = $1 AND deleted_at IS NULL`
	var number int
	if err := r.db.GetContext(ctx, &number, blockQuery, entry.BlockNumber); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("block %d does not exist", entry.BlockNumber)
		}
		return fmt.Errorf("resolve block %d after refused entry write: %w", entry.BlockNumber, err)
	}
	return fantasy.ErrBlockNotOpen
}

func (r *EntryRepository) ListByBlock(ctx context.Context, blockNumber int) ([]fantasy.Entry, error) {
	query, args, err := entryBaseSelectBuilder().
		Where(
			qb.Eq("block_number", blockNumber),
			qb.IsNull("deleted_at"),
		).
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list entries by block query: %w", err)
	}

	var rows []entryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list entries by block: %w", err)
	}

	out := make([]fantasy.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entryFromRow(row))
	}
	return out, nil
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID string) ([]fantasy.Entry, error) {
	query, args, err := entryBaseSelectBuilder().
		Where(
			qb.Eq("user_id", userID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("block_number").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list entries by user query: %w", err)
	}

	var rows []entryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list entries by user: %w", err)
	}

	out := make([]fantasy.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entryFromRow(row))
	}
	return out, nil
}

func (r *EntryRepository) Delete(ctx context.Context, blockNumber int, userID string) error {
	const query = `
UPDATE entries
SET deleted_at = NOW()
WHERE block_number = $1
  AND user_id = $2
  AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, blockNumber, userID); err != nil {
		return fmt.Errorf("delete entry block=%d user=%s: %w", blockNumber, userID, err)
	}
	return nil
}

func entryFromRow(row entryTableModel) fantasy.Entry {
	return fantasy.Entry{
		ID:            row.PublicID,
		BlockNumber:   row.BlockNumber,
		UserID:        row.UserID,
		Squad:         append([]string(nil), row.SquadIDs...),
		Starting:      append([]string(nil), row.StartingIDs...),
		Bench1:        row.Bench1ID,
		Bench2:        row.Bench2ID,
		CaptainID:     row.CaptainID,
		ViceCaptainID: row.ViceCaptainID,
		BudgetUsed:    row.BudgetUsed,
		SubmittedAt:   row.SubmittedAt,
	}
}

func entryBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select("*").From("entries")
}
