package fantasy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rule codes identify which composition rule a violation belongs to. They are
// stable so clients can highlight the offending part of the picker.
const (
	RuleSquadSize = "squad_size"
	RuleStarting  = "starting_lineup"
	RuleBench     = "bench_assignment"
	RuleCaptaincy = "captaincy"
	RuleBudget    = "budget"
	RuleTeamLimit = "team_limit"
	RuleUnpriced  = "unpriced_player"
)

// Rules stores squad composition parameters.
type Rules struct {
	SquadSize         int
	StartingSize      int
	BenchSize         int
	BudgetCap         decimal.Decimal
	MaxPlayersPerTeam int
}

func DefaultRules() Rules {
	return Rules{
		SquadSize:         8,
		StartingSize:      6,
		BenchSize:         2,
		BudgetCap:         decimal.RequireFromString("60.0"),
		MaxPlayersPerTeam: 4,
	}
}

// Violation is one broken composition rule, phrased for the submitting user.
type Violation struct {
	Rule    string
	Message string
}

// Selection is a candidate submission before it becomes an Entry.
type Selection struct {
	Squad         []string
	Starting      []string
	Bench1        string
	Bench2        string
	CaptainID     string
	ViceCaptainID string
}

func NormalizeSelection(sel Selection) Selection {
	sel.Squad = trimAll(sel.Squad)
	sel.Starting = trimAll(sel.Starting)
	sel.Bench1 = strings.TrimSpace(sel.Bench1)
	sel.Bench2 = strings.TrimSpace(sel.Bench2)
	sel.CaptainID = strings.TrimSpace(sel.CaptainID)
	sel.ViceCaptainID = strings.TrimSpace(sel.ViceCaptainID)
	return sel
}

func trimAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strings.TrimSpace(id))
	}
	return out
}

// Validate checks every composition rule independently and returns all
// violations at once, never stopping at the first one. An empty result means
// the selection is valid. Prices and team membership come from the caller so
// validation itself stays pure.
func Validate(sel Selection, rules Rules, prices map[string]decimal.Decimal, teamByPlayer map[string]string) []Violation {
	sel = NormalizeSelection(sel)
	violations := make([]Violation, 0, 4)

	squadSet := make(map[string]struct{}, len(sel.Squad))
	duplicate := false
	for _, id := range sel.Squad {
		if id == "" {
			continue
		}
		if _, ok := squadSet[id]; ok {
			duplicate = true
			continue
		}
		squadSet[id] = struct{}{}
	}
	if len(squadSet) != rules.SquadSize || duplicate {
		violations = append(violations, Violation{
			Rule:    RuleSquadSize,
			Message: fmt.Sprintf("squad must contain exactly %d distinct players", rules.SquadSize),
		})
	}

	startingSet := make(map[string]struct{}, len(sel.Starting))
	startingValid := true
	for _, id := range sel.Starting {
		if id == "" {
			startingValid = false
			continue
		}
		if _, ok := startingSet[id]; ok {
			startingValid = false
			continue
		}
		if _, ok := squadSet[id]; !ok {
			startingValid = false
		}
		startingSet[id] = struct{}{}
	}
	if len(startingSet) != rules.StartingSize || !startingValid {
		violations = append(violations, Violation{
			Rule:    RuleStarting,
			Message: fmt.Sprintf("starting lineup must contain exactly %d distinct squad players", rules.StartingSize),
		})
	}

	// The bench must hold exactly the squad members left out of the
	// starting lineup, in an explicit priority order.
	remainder := make([]string, 0, rules.BenchSize)
	for id := range squadSet {
		if _, ok := startingSet[id]; !ok {
			remainder = append(remainder, id)
		}
	}
	sort.Strings(remainder)
	bench := []string{sel.Bench1, sel.Bench2}
	benchOK := sel.Bench1 != "" && sel.Bench2 != "" && sel.Bench1 != sel.Bench2
	if benchOK && len(remainder) == rules.BenchSize {
		declared := append([]string(nil), bench...)
		sort.Strings(declared)
		for i := range declared {
			if declared[i] != remainder[i] {
				benchOK = false
				break
			}
		}
	} else {
		benchOK = false
	}
	if !benchOK {
		violations = append(violations, Violation{
			Rule:    RuleBench,
			Message: fmt.Sprintf("bench must hold the %d squad players left out of the starting lineup, in order", rules.BenchSize),
		})
	}

	_, captainStarts := startingSet[sel.CaptainID]
	_, viceStarts := startingSet[sel.ViceCaptainID]
	if sel.CaptainID == "" || sel.ViceCaptainID == "" || sel.CaptainID == sel.ViceCaptainID || !captainStarts || !viceStarts {
		violations = append(violations, Violation{
			Rule:    RuleCaptaincy,
			Message: "captain and vice-captain must be two different starting players",
		})
	}

	total := decimal.Zero
	unpriced := make([]string, 0)
	for _, id := range sel.Squad {
		if id == "" {
			continue
		}
		price, ok := prices[id]
		if !ok {
			unpriced = append(unpriced, id)
			continue
		}
		total = total.Add(price)
	}
	if len(unpriced) > 0 {
		sort.Strings(unpriced)
		violations = append(violations, Violation{
			Rule:    RuleUnpriced,
			Message: fmt.Sprintf("no price for player(s): %s", strings.Join(unpriced, ", ")),
		})
	}
	if total.GreaterThan(rules.BudgetCap) {
		violations = append(violations, Violation{
			Rule:    RuleBudget,
			Message: fmt.Sprintf("squad cost %s exceeds the %s budget", total.StringFixed(2), rules.BudgetCap.StringFixed(2)),
		})
	}

	perTeam := make(map[string]int, len(sel.Squad))
	for id := range squadSet {
		teamID := teamByPlayer[id]
		if teamID == "" {
			continue
		}
		perTeam[teamID]++
	}
	over := make([]string, 0)
	for teamID, count := range perTeam {
		if count > rules.MaxPlayersPerTeam {
			over = append(over, teamID)
		}
	}
	if len(over) > 0 {
		sort.Strings(over)
		violations = append(violations, Violation{
			Rule:    RuleTeamLimit,
			Message: fmt.Sprintf("no more than %d players may share a team (over limit: %s)", rules.MaxPlayersPerTeam, strings.Join(over, ", ")),
		})
	}

	return violations
}

// BudgetUsed sums the squad's prices. Unpriced players contribute zero; the
// unpriced rule surfaces them separately.
func BudgetUsed(squad []string, prices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, id := range squad {
		if price, ok := prices[strings.TrimSpace(id)]; ok {
			total = total.Add(price)
		}
	}
	return total
}
