package commands

import (
	"time"

	"conclave/contexts/governance/council-engine/ports"
)

// Topics carried on governance events. Consumers subscribe per event type.
const (
	EventVoteCreated       = "governance.vote.created"
	EventBallotCast        = "governance.ballot.cast"
	EventVoteClosed        = "governance.vote.closed"
	EventVoteVetoed        = "governance.vote.vetoed"
	EventDissentRecorded   = "governance.dissent.recorded"
	EventEmergencyCreated  = "governance.emergency.created"
	EventOverturnRequested = "governance.overturn.requested"
	EventVoteOverturned    = "governance.vote.overturned"
	EventOutcomeSubmitted  = "governance.outcome.submitted"
)

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	voteID string,
	occurredAt time.Time,
	payload map[string]any,
) ports.EventEnvelope {
	// Command-side events carry the vote id as entity key for stable ordering
	// on vote-scoped consumers.
	return ports.EventEnvelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  "council-engine",
		OccurredAtUTC:  occurredAt.UTC(),
		CorrelationID:  eventID,
		EntityType:     "vote",
		EntityID:       voteID,
		PayloadVersion: 1,
		Payload:        payload,
	}
}
