package entities

import (
	"strings"
	"time"
)

type BallotOption string

const (
	OptionApprove BallotOption = "approve"
	OptionReject  BallotOption = "reject"
	OptionAbstain BallotOption = "abstain"
)

func ParseBallotOption(raw string) (BallotOption, bool) {
	switch BallotOption(strings.ToLower(strings.TrimSpace(raw))) {
	case OptionApprove:
		return OptionApprove, true
	case OptionReject:
		return OptionReject, true
	case OptionAbstain:
		return OptionAbstain, true
	default:
		return "", false
	}
}

type ThresholdClass string

const (
	ThresholdMajority      ThresholdClass = "majority"
	ThresholdSupermajority ThresholdClass = "supermajority"
	ThresholdUnanimity     ThresholdClass = "unanimity"
)

func ParseThresholdClass(raw string) (ThresholdClass, bool) {
	switch ThresholdClass(strings.ToLower(strings.TrimSpace(raw))) {
	case ThresholdMajority:
		return ThresholdMajority, true
	case ThresholdSupermajority:
		return ThresholdSupermajority, true
	case ThresholdUnanimity:
		return ThresholdUnanimity, true
	default:
		return "", false
	}
}

type VoteStatus string

const (
	StatusOpen       VoteStatus = "open"
	StatusPassed     VoteStatus = "passed"
	StatusFailed     VoteStatus = "failed"
	StatusExpired    VoteStatus = "expired"
	StatusVetoed     VoteStatus = "vetoed"
	StatusOverturned VoteStatus = "overturned"
)

// Ballot is one member's recorded choice. A member casts at most one ballot
// per vote; the first cast wins.
type Ballot struct {
	MemberID  string
	Option    BallotOption
	Reasoning string
	CastAt    time.Time
}

// Result is the tally snapshot written exactly once at closure.
type Result struct {
	Approve      int
	Reject       int
	Abstain      int
	ThresholdMet bool
}

// Vote is the central ledger entity. It is created once, mutated only by
// ballot/veto operations and the single closure transition, and immutable
// after closure except the documented passed->overturned relabeling.
type Vote struct {
	VoteID         string
	Topic          string
	Description    string
	Threshold      ThresholdClass
	Status         VoteStatus
	InitiatorID    string
	Domains        []string
	EligibleVoters []string
	Ballots        map[string]Ballot
	Emergency      bool
	CreatedAt      time.Time
	Deadline       time.Time
	ClosedAt       *time.Time
	Result         *Result
}

func (v Vote) Tally() (approve, reject, abstain int) {
	for _, ballot := range v.Ballots {
		switch ballot.Option {
		case OptionApprove:
			approve++
		case OptionReject:
			reject++
		case OptionAbstain:
			abstain++
		}
	}
	return approve, reject, abstain
}

func (v Vote) IsEligible(memberID string) bool {
	memberID = strings.TrimSpace(memberID)
	for _, id := range v.EligibleVoters {
		if id == memberID {
			return true
		}
	}
	return false
}

func (v Vote) Terminal() bool {
	return v.Status != StatusOpen
}

// Clone deep-copies the mutable parts so repository reads never alias ledger
// state held by callers.
func (v Vote) Clone() Vote {
	out := v
	out.Domains = append([]string(nil), v.Domains...)
	out.EligibleVoters = append([]string(nil), v.EligibleVoters...)
	out.Ballots = make(map[string]Ballot, len(v.Ballots))
	for id, ballot := range v.Ballots {
		out.Ballots[id] = ballot
	}
	if v.ClosedAt != nil {
		closedAt := *v.ClosedAt
		out.ClosedAt = &closedAt
	}
	if v.Result != nil {
		result := *v.Result
		out.Result = &result
	}
	return out
}
