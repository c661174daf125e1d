package player

import (
	"fmt"
	"strings"
)

// Player is a selectable athlete from the league roster feed.
type Player struct {
	ID     string
	Name   string
	TeamID string
	Active bool
}

func Normalize(p Player) Player {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.TeamID = strings.TrimSpace(p.TeamID)
	return p
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if p.TeamID == "" {
		return fmt.Errorf("player team id is required")
	}

	return nil
}
