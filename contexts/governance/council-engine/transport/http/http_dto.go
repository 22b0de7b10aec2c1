package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateVoteRequest struct {
	Topic           string   `json:"topic"`
	Description     string   `json:"description"`
	Threshold       string   `json:"threshold"`
	DeadlineMinutes int      `json:"deadline_minutes,omitempty"`
	InitiatorID     string   `json:"initiator_id"`
	Domains         []string `json:"domains,omitempty"`
}

type CastBallotRequest struct {
	MemberID  string `json:"member_id"`
	Option    string `json:"option"`
	Reasoning string `json:"reasoning,omitempty"`
}

type CastVetoRequest struct {
	MemberID string `json:"member_id"`
	Domain   string `json:"domain"`
	Reason   string `json:"reason"`
	RuleRef  string `json:"rule_ref,omitempty"`
}

type CloseVoteRequest struct {
	Status string `json:"status"`
}

type CreateEmergencyVoteRequest struct {
	Topic           string   `json:"topic"`
	Description     string   `json:"description"`
	UrgencyReason   string   `json:"urgency_reason"`
	InitiatorID     string   `json:"initiator_id"`
	Domains         []string `json:"domains,omitempty"`
	DeadlineMinutes int      `json:"deadline_minutes,omitempty"`
}

type RequestOverturnRequest struct {
	RequesterID string `json:"requester_id"`
	Reason      string `json:"reason"`
}

type SubmitOutcomeRequest struct {
	Rating float64 `json:"rating"`
}

type BallotResponse struct {
	MemberID  string    `json:"member_id"`
	Option    string    `json:"option"`
	Reasoning string    `json:"reasoning,omitempty"`
	CastAt    time.Time `json:"cast_at"`
}

type ResultResponse struct {
	Approve      int  `json:"approve"`
	Reject       int  `json:"reject"`
	Abstain      int  `json:"abstain"`
	ThresholdMet bool `json:"threshold_met"`
}

type VoteResponse struct {
	VoteID         string           `json:"vote_id"`
	Topic          string           `json:"topic"`
	Description    string           `json:"description,omitempty"`
	Threshold      string           `json:"threshold"`
	Status         string           `json:"status"`
	InitiatorID    string           `json:"initiator_id"`
	Domains        []string         `json:"domains,omitempty"`
	EligibleVoters []string         `json:"eligible_voters"`
	Ballots        []BallotResponse `json:"ballots"`
	Emergency      bool             `json:"emergency,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Deadline       time.Time        `json:"deadline"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
	Result         *ResultResponse  `json:"result,omitempty"`
	Closed         bool             `json:"closed,omitempty"`
}

type VoteListResponse struct {
	Items []VoteResponse `json:"items"`
}

type VetoResponse struct {
	VetoID   string    `json:"veto_id"`
	VoteID   string    `json:"vote_id"`
	MemberID string    `json:"member_id"`
	Domain   string    `json:"domain"`
	Reason   string    `json:"reason"`
	RuleRef  string    `json:"rule_ref,omitempty"`
	CastAt   time.Time `json:"cast_at"`
}

type VetoListResponse struct {
	Items []VetoResponse `json:"items"`
}

type VetoAuthorityResponse struct {
	Grants map[string][]string `json:"grants"`
}

type DissenterResponse struct {
	MemberID  string `json:"member_id"`
	Pillar    string `json:"pillar"`
	Option    string `json:"option"`
	Reasoning string `json:"reasoning"`
}

type PrecedentResponse struct {
	VoteID     string  `json:"vote_id"`
	Topic      string  `json:"topic"`
	Similarity float64 `json:"similarity"`
}

type DissentReportResponse struct {
	VoteID            string              `json:"vote_id"`
	Topic             string              `json:"topic"`
	Decision          string              `json:"decision"`
	ConsensusStrength float64             `json:"consensus_strength"`
	Domains           []string            `json:"domains,omitempty"`
	Dissenters        []DissenterResponse `json:"dissenters"`
	Precedents        []PrecedentResponse `json:"precedents,omitempty"`
	RecordedAt        time.Time           `json:"recorded_at"`
}

type DissentListResponse struct {
	Items []DissentReportResponse `json:"items"`
}

type EmergencyMetaResponse struct {
	VoteID           string    `json:"vote_id"`
	Panel            []string  `json:"panel"`
	UrgencyReason    string    `json:"urgency_reason"`
	NotifiedAt       time.Time `json:"notified_at"`
	OverturnDeadline time.Time `json:"overturn_deadline"`
	OverturnVoteID   string    `json:"overturn_vote_id,omitempty"`
	Overturned       bool      `json:"overturned"`
}

type EmergencyVoteResponse struct {
	Vote VoteResponse          `json:"vote"`
	Meta EmergencyMetaResponse `json:"meta"`
}

type OverturnableListResponse struct {
	Items []EmergencyMetaResponse `json:"items"`
}

type CompleteOverturnResponse struct {
	Overturned bool `json:"overturned"`
}

type ExpireOverdueResponse struct {
	Expired int `json:"expired"`
}
