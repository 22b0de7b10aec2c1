package entities

import (
	"errors"
	"sort"
	"strings"
)

// Pillar is a member's category inside the council. The set is fixed at
// process start; category quorum counts distinct pillars among voters.
type Pillar string

const (
	PillarEthics     Pillar = "ethics"
	PillarFinance    Pillar = "finance"
	PillarOperations Pillar = "operations"
	PillarStrategy   Pillar = "strategy"
	PillarTechnology Pillar = "technology"
)

// DomainEthicsOversight is the veto domain whose holders are always seated on
// emergency panels.
const DomainEthicsOversight = "ethics-oversight"

type Member struct {
	MemberID    string
	DisplayName string
	Pillar      Pillar
	VotingStyle string
	VetoDomains []string
}

func (m Member) CanVeto(domain string) bool {
	domain = strings.TrimSpace(strings.ToLower(domain))
	for _, granted := range m.VetoDomains {
		if strings.EqualFold(strings.TrimSpace(granted), domain) {
			return true
		}
	}
	return false
}

// Roster is the immutable membership directory. It is built once at startup
// and injected into every component; runtime enrollment is not supported.
type Roster struct {
	members []Member
	byID    map[string]Member
}

func NewRoster(members []Member) (*Roster, error) {
	if len(members) == 0 {
		return nil, errors.New("roster requires at least one member")
	}
	byID := make(map[string]Member, len(members))
	ordered := make([]Member, 0, len(members))
	for _, member := range members {
		id := strings.TrimSpace(member.MemberID)
		if id == "" {
			return nil, errors.New("roster member id is required")
		}
		if _, exists := byID[id]; exists {
			return nil, errors.New("duplicate roster member id: " + id)
		}
		member.MemberID = id
		byID[id] = member
		ordered = append(ordered, member)
	}
	return &Roster{members: ordered, byID: byID}, nil
}

func (r *Roster) Size() int {
	return len(r.members)
}

func (r *Roster) Member(memberID string) (Member, bool) {
	member, found := r.byID[strings.TrimSpace(memberID)]
	return member, found
}

// Members returns a copy of the roster in registration order.
func (r *Roster) Members() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Roster) MemberIDs() []string {
	ids := make([]string, 0, len(r.members))
	for _, member := range r.members {
		ids = append(ids, member.MemberID)
	}
	return ids
}

// VetoHolders returns the ids of members granted the given veto domain, in
// registration order.
func (r *Roster) VetoHolders(domain string) []string {
	var ids []string
	for _, member := range r.members {
		if member.CanVeto(domain) {
			ids = append(ids, member.MemberID)
		}
	}
	return ids
}

// VetoAuthorityTable maps member id to granted veto domains for members that
// hold at least one grant.
func (r *Roster) VetoAuthorityTable() map[string][]string {
	table := make(map[string][]string)
	for _, member := range r.members {
		if len(member.VetoDomains) == 0 {
			continue
		}
		domains := make([]string, len(member.VetoDomains))
		copy(domains, member.VetoDomains)
		sort.Strings(domains)
		table[member.MemberID] = domains
	}
	return table
}

// PillarsAmong returns the distinct pillars present in the given member id
// set, sorted for stable output.
func (r *Roster) PillarsAmong(memberIDs []string) []Pillar {
	seen := make(map[Pillar]bool)
	for _, id := range memberIDs {
		if member, found := r.Member(id); found {
			seen[member.Pillar] = true
		}
	}
	pillars := make([]Pillar, 0, len(seen))
	for pillar := range seen {
		pillars = append(pillars, pillar)
	}
	sort.Slice(pillars, func(i, j int) bool { return pillars[i] < pillars[j] })
	return pillars
}
