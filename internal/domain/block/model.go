package block

import (
	"errors"
	"time"
)

var ErrAlreadyScored = errors.New("block is already scored")

// State is a block's lifecycle phase. It is never stored; always resolved
// from the block's metadata and a caller-supplied clock reading.
type State string

const (
	StateOpen   State = "OPEN"
	StateLocked State = "LOCKED"
	StateScored State = "SCORED"
)

// Block is a contiguous group of fixtures sharing one selection window.
// Fixture membership is immutable after creation and ScoredAt is set at
// most once, so submitted entries can never be reshuffled or re-opened.
type Block struct {
	Number         int
	FixtureIDs     []string
	FirstKickoffAt time.Time
	LockAt         time.Time
	ScoredAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ResolveState computes the lifecycle state for the given instant. A set
// ScoredAt is terminal and wins over the lock clock.
func ResolveState(b Block, now time.Time) State {
	if b.ScoredAt != nil {
		return StateScored
	}
	if !now.Before(b.LockAt) {
		return StateLocked
	}
	return StateOpen
}

func (b Block) Clone() Block {
	out := b
	out.FixtureIDs = append([]string(nil), b.FixtureIDs...)
	if b.ScoredAt != nil {
		scoredAt := *b.ScoredAt
		out.ScoredAt = &scoredAt
	}
	return out
}
