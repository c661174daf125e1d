package team

import (
	"fmt"
	"strings"
)

// Team is one club from the league team directory.
type Team struct {
	ID    string
	Name  string
	Short string
}

func Normalize(t Team) Team {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	t.Short = strings.TrimSpace(t.Short)
	return t
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}
