// Package querybuilder assembles parameterized Postgres statements for the
// repository layer. It covers the handful of statement shapes the
// repositories actually use; anything fancier stays raw SQL at the call site.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// stmt accumulates SQL text and bind arguments. The next placeholder index
// is always len(args)+1, so nothing has to thread a counter around.
type stmt struct {
	text strings.Builder
	args []any
}

func (s *stmt) raw(fragment string) {
	s.text.WriteString(fragment)
}

func (s *stmt) bind(value any) {
	s.args = append(s.args, value)
	s.text.WriteByte('$')
	s.text.WriteString(strconv.Itoa(len(s.args)))
}

// expand copies fragment into the statement, turning each ? into the next
// positional placeholder. Question marks beyond the value list are copied
// through untouched, as are fragments with no values at all, so raw $n
// references inside a fragment survive.
func (s *stmt) expand(fragment string, values []any) {
	if len(values) == 0 {
		s.raw(fragment)
		return
	}

	used := 0
	for i := 0; i < len(fragment); i++ {
		if fragment[i] == '?' && used < len(values) {
			s.bind(values[used])
			used++
			continue
		}
		s.text.WriteByte(fragment[i])
	}
}

func (s *stmt) writeWhere(conds []Condition) {
	for i, cond := range conds {
		if i == 0 {
			s.raw(" WHERE ")
		} else {
			s.raw(" AND ")
		}
		cond(s)
	}
}

// Condition writes one WHERE predicate into a statement.
type Condition func(s *stmt)

func Eq(column string, value any) Condition {
	return func(s *stmt) {
		s.raw(column + " = ")
		s.bind(value)
	}
}

// In matches any of the given values. An empty list matches no rows.
func In(column string, values []any) Condition {
	return func(s *stmt) {
		if len(values) == 0 {
			s.raw("FALSE")
			return
		}
		s.raw(column + " IN (")
		for i, value := range values {
			if i > 0 {
				s.raw(", ")
			}
			s.bind(value)
		}
		s.raw(")")
	}
}

func IsNull(column string) Condition {
	return func(s *stmt) {
		s.raw(column + " IS NULL")
	}
}

// Expr splices a raw predicate, rewriting ? marks to positional placeholders.
func Expr(fragment string, values ...any) Condition {
	return func(s *stmt) {
		s.expand(fragment, values)
	}
}

// EqLiteral inlines the value as a quoted SQL literal instead of binding it.
// Only the pooler fallback paths use this, when a statement cannot carry
// bind parameters at all.
func EqLiteral(column, value string) Condition {
	return func(s *stmt) {
		s.raw(column + " = '" + strings.ReplaceAll(value, "'", "''") + "'")
	}
}

type SelectBuilder struct {
	columns []string
	table   string
	conds   []Condition
	order   []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conds ...Condition) *SelectBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.order = append(b.order, parts...)
	return b
}

func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = n
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("querybuilder: select needs at least one column")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("querybuilder: select needs a table")
	}

	var s stmt
	s.raw("SELECT ")
	s.raw(strings.Join(b.columns, ", "))
	s.raw(" FROM ")
	s.raw(b.table)
	s.writeWhere(b.conds)
	if len(b.order) > 0 {
		s.raw(" ORDER BY ")
		s.raw(strings.Join(b.order, ", "))
	}
	if b.limit > 0 {
		s.raw(" LIMIT ")
		s.raw(strconv.Itoa(b.limit))
	}

	return s.text.String(), s.args, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends raw SQL after the VALUES list. ON CONFLICT clauses and
// RETURNING go here.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("querybuilder: insert needs a table")
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("querybuilder: insert needs columns")
	case len(b.rows) == 0:
		return "", nil, fmt.Errorf("querybuilder: insert needs at least one row")
	}
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("querybuilder: insert row %d has %d values for %d columns", i, len(row), len(b.columns))
		}
	}

	var s stmt
	s.raw("INSERT INTO ")
	s.raw(b.table)
	s.raw(" (")
	s.raw(strings.Join(b.columns, ", "))
	s.raw(") VALUES ")
	for i, row := range b.rows {
		if i > 0 {
			s.raw(", ")
		}
		s.raw("(")
		for j, value := range row {
			if j > 0 {
				s.raw(", ")
			}
			s.bind(value)
		}
		s.raw(")")
	}
	if b.suffix != "" {
		s.raw(" ")
		s.raw(b.suffix)
	}

	return s.text.String(), s.args, nil
}

type assignment struct {
	column string
	write  func(s *stmt)
}

type UpdateBuilder struct {
	table   string
	assigns []assignment
	conds   []Condition
	suffix  string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.assigns = append(b.assigns, assignment{
		column: column,
		write:  func(s *stmt) { s.bind(value) },
	})
	return b
}

// SetExpr assigns a raw SQL expression, rewriting ? marks the same way
// Expr does.
func (b *UpdateBuilder) SetExpr(column, fragment string, values ...any) *UpdateBuilder {
	b.assigns = append(b.assigns, assignment{
		column: column,
		write:  func(s *stmt) { s.expand(fragment, values) },
	})
	return b
}

func (b *UpdateBuilder) Where(conds ...Condition) *UpdateBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("querybuilder: update needs a table")
	}
	if len(b.assigns) == 0 {
		return "", nil, fmt.Errorf("querybuilder: update needs at least one SET")
	}

	var s stmt
	s.raw("UPDATE ")
	s.raw(b.table)
	s.raw(" SET ")
	for i, assign := range b.assigns {
		if i > 0 {
			s.raw(", ")
		}
		s.raw(assign.column)
		s.raw(" = ")
		assign.write(&s)
	}
	s.writeWhere(b.conds)
	if b.suffix != "" {
		s.raw(" ")
		s.raw(b.suffix)
	}

	return s.text.String(), s.args, nil
}
