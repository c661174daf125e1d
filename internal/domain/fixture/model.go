package fixture

import (
	"fmt"
	"strings"
	"time"
)

// Fixture represents one scheduled match from the league feed.
type Fixture struct {
	ID       string
	HomeTeam string
	AwayTeam string
	StartAt  time.Time
}

func Normalize(f Fixture) Fixture {
	f.ID = strings.TrimSpace(f.ID)
	f.HomeTeam = strings.TrimSpace(f.HomeTeam)
	f.AwayTeam = strings.TrimSpace(f.AwayTeam)
	return f
}

func (f Fixture) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("fixture id is required")
	}
	if f.StartAt.IsZero() {
		return fmt.Errorf("fixture start time is required")
	}

	return nil
}
