package querybuilder

import (
	"testing"
	"time"
)

func TestSelectRendersConditionsInOrder(t *testing.T) {
	t.Parallel()

	query, args, err := Select("*").
		From("blocks").
		Where(Eq("number", 3), IsNull("deleted_at")).
		OrderBy("number").
		Limit(5).
		ToSQL()
	if err != nil {
		t.Fatalf("ToSQL: %v", err)
	}

	want := "SELECT * FROM blocks WHERE number = $1 AND deleted_at IS NULL ORDER BY number LIMIT 5"
	if query != want {
		t.Fatalf("query mismatch\nwant %q\ngot  %q", want, query)
	}
	if len(args) != 1 || args[0] != 3 {
		t.Fatalf("args mismatch: %+v", args)
	}
}

func TestSelectRequiresTable(t *testing.T) {
	t.Parallel()

	if _, _, err := Select("*").ToSQL(); err == nil {
		t.Fatal("expected error for select without table")
	}
}

func TestInWithEmptyListMatchesNothing(t *testing.T) {
	t.Parallel()

	query, args, err := Select("*").
		From("fixtures").
		Where(In("public_id", nil)).
		ToSQL()
	if err != nil {
		t.Fatalf("ToSQL: %v", err)
	}

	want := "SELECT * FROM fixtures WHERE FALSE"
	if query != want {
		t.Fatalf("query mismatch\nwant %q\ngot  %q", want, query)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %+v", args)
	}
}

func TestExprRewritesQuestionMarks(t *testing.T) {
	t.Parallel()

	lockAt := time.Date(2026, 3, 7, 12, 30, 0, 0, time.UTC)
	query, args, err := Select("number").
		From("blocks").
		Where(Eq("user_id", "user-1"), Expr("lock_at > ?", lockAt)).
		ToSQL()
	if err != nil {
		t.Fatalf("ToSQL: %v", err)
	}

	want := "SELECT number FROM blocks WHERE user_id = $1 AND lock_at > $2"
	if query != want {
		t.Fatalf("query mismatch\nwant %q\ngot  %q", want, query)
	}
	if len(args) != 2 || args[1] != lockAt {
		t.Fatalf("args mismatch: %+v", args)
	}
}

func TestExprWithoutValuesIsCopiedVerbatim(t *testing.T) {
	t.Parallel()

	query, _, err := Select("*").
		From("entries").
		Where(Expr("block_number = (($1::text[])[1])::int")).
		ToSQL()
	if err != nil {
		t.Fatalf("ToSQL: %v", err)
	}

	want := "SELECT * FROM entries WHERE block_number = (($1::text[])[1])::int"
	if query != want {
		t.Fatalf("query mismatch\nwant %q\ngot  %q", want, query)
	}
}

func TestEqLiteralEscapesQuotes(t *testing.T) {
	t.Parallel()

	query, args, err := Select("*").
		From("entries").
		Where(EqLiteral("user_id", "o'neil")).
		ToSQL()
	if err != nil {
		t.Fatalf("ToSQL: %v", err)
	}

	want := "SELECT * FROM entries WHERE user_id = 'o''neil'"
	if query != want {
		t.Fatalf("query mismatch\nwant %q\ngot  %q", want, query)
	}
	if len(args) != 0 {
		t.Fatalf("literal condition must not bind args, got %+v", args)
	}
}

func TestInsertMultiRow(t *testing.T) {
	t.Parallel()

	query, args, err := InsertInto("block_prices").
		Columns("block_number", "player_public_id", "price").
		Values(1, "idn-psj-01", "7.5").
		Values(1, "idn-psj-02", "8.0").
		Suffix("ON CONFLICT DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("ToSQL: %v", err)
	}

	want := "INSERT INTO block_prices (block_number, player_public_id, price) VALUES ($1, $2, $3), ($4, $5, $6) ON CONFLICT DO NOTHING"
	if query != want {
		t.Fatalf("query mismatch\nwant %q\ngot  %q", want, query)
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %+v", args)
	}
}

func TestInsertRejectsRowWidthMismatch(t *testing.T) {
	t.Parallel()

	_, _, err := InsertInto("teams").
		Columns("public_id", "name").
		Values("idn-psj").
		ToSQL()
	if err == nil {
		t.Fatal("expected row width error")
	}
}

func TestUpdateWithExprAndSuffix(t *testing.T) {
	t.Parallel()

	scoredAt := time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)
	query, args, err := Update("blocks").
		Set("scored_at", scoredAt).
		SetExpr("updated_at", "NOW()").
		Where(Eq("number", 1), IsNull("scored_at")).
		Suffix("RETURNING number").
		ToSQL()
	if err != nil {
		t.Fatalf("ToSQL: %v", err)
	}

	want := "UPDATE blocks SET scored_at = $1, updated_at = NOW() WHERE number = $2 AND scored_at IS NULL RETURNING number"
	if query != want {
		t.Fatalf("query mismatch\nwant %q\ngot  %q", want, query)
	}
	if len(args) != 2 || args[0] != scoredAt || args[1] != 1 {
		t.Fatalf("args mismatch: %+v", args)
	}
}

func TestInsertModelReadsDBTags(t *testing.T) {
	t.Parallel()

	row := struct {
		Number       int       `db:"number"`
		FirstKickoff time.Time `db:"first_kickoff_at"`
		Internal     string    `db:"-"`
		Untagged     string
	}{
		Number:       2,
		FirstKickoff: time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC),
		Internal:     "skip me",
		Untagged:     "skip me too",
	}

	query, args, err := InsertModel("blocks", &row, "ON CONFLICT (number) DO NOTHING")
	if err != nil {
		t.Fatalf("InsertModel: %v", err)
	}

	want := "INSERT INTO blocks (number, first_kickoff_at) VALUES ($1, $2) ON CONFLICT (number) DO NOTHING"
	if query != want {
		t.Fatalf("query mismatch\nwant %q\ngot  %q", want, query)
	}
	if len(args) != 2 || args[0] != 2 {
		t.Fatalf("args mismatch: %+v", args)
	}
}

func TestInsertModelRejectsNonStruct(t *testing.T) {
	t.Parallel()

	if _, _, err := InsertModel("blocks", 42, ""); err == nil {
		t.Fatal("expected error for non-struct model")
	}
	var nilRow *struct {
		ID string `db:"id"`
	}
	if _, _, err := InsertModel("blocks", nilRow, ""); err == nil {
		t.Fatal("expected error for nil model")
	}
}
