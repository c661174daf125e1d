package block

import (
	"testing"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
)

func day(offset int) time.Time {
	return time.Date(2026, time.March, 1, 19, 30, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestBuildBlocksGroupsByGap(t *testing.T) {
	fixtures := []fixture.Fixture{
		{ID: "m5", StartAt: day(14)},
		{ID: "m1", StartAt: day(0)},
		{ID: "m2", StartAt: day(1)},
		{ID: "m3", StartAt: day(7)},
		{ID: "m4", StartAt: day(8)},
	}

	blocks := BuildBlocks(fixtures, PartitionConfig{Gap: 72 * time.Hour})
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}

	wantMembers := [][]string{{"m1", "m2"}, {"m3", "m4"}, {"m5"}}
	for idx, b := range blocks {
		if b.Number != idx+1 {
			t.Fatalf("expected block number %d, got %d", idx+1, b.Number)
		}
		if len(b.FixtureIDs) != len(wantMembers[idx]) {
			t.Fatalf("block %d: expected members %v, got %v", b.Number, wantMembers[idx], b.FixtureIDs)
		}
		for i, id := range wantMembers[idx] {
			if b.FixtureIDs[i] != id {
				t.Fatalf("block %d: expected members %v, got %v", b.Number, wantMembers[idx], b.FixtureIDs)
			}
		}
	}

	if !blocks[0].FirstKickoffAt.Equal(day(0)) {
		t.Fatalf("expected first kickoff %v, got %v", day(0), blocks[0].FirstKickoffAt)
	}
	if !blocks[0].LockAt.Equal(day(0)) {
		t.Fatalf("expected lock at first kickoff, got %v", blocks[0].LockAt)
	}
}

func TestBuildBlocksLockLead(t *testing.T) {
	fixtures := []fixture.Fixture{{ID: "m1", StartAt: day(0)}}

	blocks := BuildBlocks(fixtures, PartitionConfig{Gap: 72 * time.Hour, LockLead: time.Hour})
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	want := day(0).Add(-time.Hour)
	if !blocks[0].LockAt.Equal(want) {
		t.Fatalf("expected lock at %v, got %v", want, blocks[0].LockAt)
	}
}

func TestBuildBlocksDeterministicAcrossInputOrder(t *testing.T) {
	shuffled := []fixture.Fixture{
		{ID: "m3", StartAt: day(7)},
		{ID: "m1", StartAt: day(0)},
		{ID: "m4", StartAt: day(7)},
		{ID: "m2", StartAt: day(0)},
	}
	ordered := []fixture.Fixture{
		{ID: "m1", StartAt: day(0)},
		{ID: "m2", StartAt: day(0)},
		{ID: "m3", StartAt: day(7)},
		{ID: "m4", StartAt: day(7)},
	}

	first := BuildBlocks(shuffled, DefaultPartitionConfig())
	second := BuildBlocks(ordered, DefaultPartitionConfig())

	if len(first) != len(second) {
		t.Fatalf("expected identical block counts, got %d and %d", len(first), len(second))
	}
	for idx := range first {
		if first[idx].Number != second[idx].Number {
			t.Fatalf("block %d: numbers differ", idx)
		}
		if len(first[idx].FixtureIDs) != len(second[idx].FixtureIDs) {
			t.Fatalf("block %d: members differ: %v vs %v", idx, first[idx].FixtureIDs, second[idx].FixtureIDs)
		}
		for i := range first[idx].FixtureIDs {
			if first[idx].FixtureIDs[i] != second[idx].FixtureIDs[i] {
				t.Fatalf("block %d: members differ: %v vs %v", idx, first[idx].FixtureIDs, second[idx].FixtureIDs)
			}
		}
	}
}

func TestBuildBlocksSkipsMalformedFixtures(t *testing.T) {
	fixtures := []fixture.Fixture{
		{ID: "m1", StartAt: day(0)},
		{ID: "", StartAt: day(0)},
		{ID: "m2"},
	}

	blocks := BuildBlocks(fixtures, DefaultPartitionConfig())
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if len(blocks[0].FixtureIDs) != 1 || blocks[0].FixtureIDs[0] != "m1" {
		t.Fatalf("expected only m1, got %v", blocks[0].FixtureIDs)
	}
}

func TestBuildBlocksEmptyInput(t *testing.T) {
	if blocks := BuildBlocks(nil, DefaultPartitionConfig()); blocks != nil {
		t.Fatalf("expected no blocks, got %+v", blocks)
	}
}
