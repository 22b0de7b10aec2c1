package rules

import (
	"math"

	"conclave/contexts/governance/council-engine/domain/entities"
)

// QuorumResult carries the full evaluation detail so closures can log it even
// when a vote passes cleanly.
type QuorumResult struct {
	Met           bool
	CountMet      bool
	CategoryMet   bool
	Participation int
	Required      int
	Represented   []entities.Pillar
	Missing       []entities.Pillar
}

// EvaluateQuorum checks the two independent participation gates: at least
// half the eligible voters must have cast a ballot (abstain counts as cast),
// and a minimum number of distinct pillars must be represented among voters.
//
// The category minimum is capped at the number of distinct pillars present in
// the eligible set, so small emergency panels remain closable.
func EvaluateQuorum(
	roster *entities.Roster,
	eligible []string,
	ballots map[string]entities.Ballot,
	minCategories int,
) QuorumResult {
	required := int(math.Ceil(0.5 * float64(len(eligible))))

	voters := make([]string, 0, len(ballots))
	for memberID := range ballots {
		voters = append(voters, memberID)
	}
	represented := roster.PillarsAmong(voters)
	available := roster.PillarsAmong(eligible)

	missing := make([]entities.Pillar, 0)
	for _, pillar := range available {
		found := false
		for _, present := range represented {
			if present == pillar {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, pillar)
		}
	}

	categoryBar := minCategories
	if len(available) < categoryBar {
		categoryBar = len(available)
	}

	result := QuorumResult{
		Participation: len(ballots),
		Required:      required,
		Represented:   represented,
		Missing:       missing,
	}
	result.CountMet = result.Participation >= required
	result.CategoryMet = len(represented) >= categoryBar
	result.Met = result.CountMet && result.CategoryMet
	return result
}
