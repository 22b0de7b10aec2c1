package entities

import "time"

// Dissenter is a non-abstaining member who voted against the prevailing side.
// Reasoning is preserved verbatim; this is the only mechanism the system has
// for retaining minority reasoning.
type Dissenter struct {
	MemberID  string
	Pillar    Pillar
	Option    BallotOption
	Reasoning string
}

// Precedent references a topically similar past dissent report.
type Precedent struct {
	VoteID     string
	Topic      string
	Similarity float64
}

// DissentReport is a derived, read-only artifact keyed by vote id. It is
// created at most once per closure and never mutated afterward.
type DissentReport struct {
	VoteID            string
	Topic             string
	Decision          VoteStatus
	ConsensusStrength float64
	Domains           []string
	Dissenters        []Dissenter
	Precedents        []Precedent
	RecordedAt        time.Time
}
