package entities

import "time"

// VetoRecord is immutable once created. The first veto processed closes the
// vote; later vetoes are rejected because the vote is no longer open.
type VetoRecord struct {
	VetoID   string
	VoteID   string
	MemberID string
	Domain   string
	Reason   string
	RuleRef  string
	CastAt   time.Time
}
