package bootstrap

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"conclave/contexts/governance/council-engine/domain/entities"
)

type rosterMemberFile struct {
	MemberID    string   `json:"member_id"`
	DisplayName string   `json:"display_name"`
	Pillar      string   `json:"pillar"`
	VotingStyle string   `json:"voting_style"`
	VetoDomains []string `json:"veto_domains"`
}

// LoadRoster reads the membership directory from a JSON file. When no path is
// configured the built-in five-seat council is used so a fresh checkout runs
// without provisioning.
func LoadRoster(path string) (*entities.Roster, error) {
	if strings.TrimSpace(path) == "" {
		return defaultRoster()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}

	var rows []rosterMemberFile
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode roster file: %w", err)
	}

	members := make([]entities.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, entities.Member{
			MemberID:    row.MemberID,
			DisplayName: row.DisplayName,
			Pillar:      entities.Pillar(strings.ToLower(strings.TrimSpace(row.Pillar))),
			VotingStyle: row.VotingStyle,
			VetoDomains: row.VetoDomains,
		})
	}

	roster, err := entities.NewRoster(members)
	if err != nil {
		return nil, fmt.Errorf("build roster: %w", err)
	}
	return roster, nil
}

func defaultRoster() (*entities.Roster, error) {
	return entities.NewRoster([]entities.Member{
		{
			MemberID:    "aria",
			DisplayName: "Aria",
			Pillar:      entities.PillarStrategy,
			VotingStyle: "deliberate",
		},
		{
			MemberID:    "sable",
			DisplayName: "Sable",
			Pillar:      entities.PillarEthics,
			VotingStyle: "cautious",
			VetoDomains: []string{entities.DomainEthicsOversight},
		},
		{
			MemberID:    "orin",
			DisplayName: "Orin",
			Pillar:      entities.PillarFinance,
			VotingStyle: "data-driven",
			VetoDomains: []string{"treasury"},
		},
		{
			MemberID:    "vex",
			DisplayName: "Vex",
			Pillar:      entities.PillarTechnology,
			VotingStyle: "decisive",
			VetoDomains: []string{"infrastructure"},
		},
		{
			MemberID:    "lumen",
			DisplayName: "Lumen",
			Pillar:      entities.PillarOperations,
			VotingStyle: "pragmatic",
		},
	})
}
