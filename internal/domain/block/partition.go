package block

import (
	"sort"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
)

// PartitionConfig pins the block boundary rule so repeated derivations over
// the same fixture set always produce the same blocks.
type PartitionConfig struct {
	// Gap is the largest distance between consecutive fixture start times
	// that still keeps them in the same block.
	Gap time.Duration
	// LockLead moves the lock ahead of each block's first kickoff.
	LockLead time.Duration
}

const (
	DefaultPartitionGap = 72 * time.Hour
	DefaultLockLead     = 0
)

func DefaultPartitionConfig() PartitionConfig {
	return PartitionConfig{
		Gap:      DefaultPartitionGap,
		LockLead: DefaultLockLead,
	}
}

// BuildBlocks partitions fixtures into blocks. Fixtures are sorted by start
// time (ties by id) and a new block starts whenever the gap between
// consecutive start times exceeds cfg.Gap. Numbers are assigned from 1 in
// chronological order. Fixtures without a start time are skipped.
func BuildBlocks(fixtures []fixture.Fixture, cfg PartitionConfig) []Block {
	if cfg.Gap <= 0 {
		cfg.Gap = DefaultPartitionGap
	}
	if cfg.LockLead < 0 {
		cfg.LockLead = 0
	}

	usable := make([]fixture.Fixture, 0, len(fixtures))
	for _, f := range fixtures {
		if f.ID == "" || f.StartAt.IsZero() {
			continue
		}
		usable = append(usable, f)
	}
	if len(usable) == 0 {
		return nil
	}

	sort.Slice(usable, func(i, j int) bool {
		if usable[i].StartAt.Equal(usable[j].StartAt) {
			return usable[i].ID < usable[j].ID
		}
		return usable[i].StartAt.Before(usable[j].StartAt)
	})

	blocks := make([]Block, 0, 4)
	current := Block{
		Number:         1,
		FixtureIDs:     []string{usable[0].ID},
		FirstKickoffAt: usable[0].StartAt,
	}
	previousStart := usable[0].StartAt

	for _, f := range usable[1:] {
		if f.StartAt.Sub(previousStart) > cfg.Gap {
			current.LockAt = current.FirstKickoffAt.Add(-cfg.LockLead)
			blocks = append(blocks, current)
			current = Block{
				Number:         current.Number + 1,
				FixtureIDs:     []string{f.ID},
				FirstKickoffAt: f.StartAt,
			}
		} else {
			current.FixtureIDs = append(current.FixtureIDs, f.ID)
		}
		previousStart = f.StartAt
	}

	current.LockAt = current.FirstKickoffAt.Add(-cfg.LockLead)
	blocks = append(blocks, current)

	return blocks
}
