package fantasy

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrBlockNotOpen is reported by entry stores when a write arrives after the
// owning block has locked or been scored.
var ErrBlockNotOpen = errors.New("block is not open for entries")

// Entry is one user's submission for one block. Exactly one entry exists per
// (block, user) pair; writes use upsert semantics and are accepted only while
// the block is open.
type Entry struct {
	ID            string
	BlockNumber   int
	UserID        string
	Squad         []string
	Starting      []string
	Bench1        string
	Bench2        string
	CaptainID     string
	ViceCaptainID string
	BudgetUsed    decimal.Decimal
	SubmittedAt   time.Time
}

func (e Entry) Clone() Entry {
	out := e
	out.Squad = append([]string(nil), e.Squad...)
	out.Starting = append([]string(nil), e.Starting...)
	return out
}

// Bench returns the bench in substitution priority order.
func (e Entry) Bench() []string {
	return []string{e.Bench1, e.Bench2}
}
