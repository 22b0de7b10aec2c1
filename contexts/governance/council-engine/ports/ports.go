package ports

import (
	"context"
	"time"

	"conclave/contexts/governance/council-engine/domain/entities"
	"conclave/internal/shared/events"
)

// VoteRepository owns persistence for votes, ballots-in-votes, veto records,
// dissent reports and emergency metadata.
type VoteRepository interface {
	SaveVote(ctx context.Context, vote entities.Vote) error
	GetVote(ctx context.Context, voteID string) (entities.Vote, error)
	ListVotes(ctx context.Context) ([]entities.Vote, error)
	ListOpenVotes(ctx context.Context) ([]entities.Vote, error)

	SaveVeto(ctx context.Context, record entities.VetoRecord) error
	ListVetoes(ctx context.Context, voteID string) ([]entities.VetoRecord, error)

	SaveDissentReport(ctx context.Context, report entities.DissentReport) error
	GetDissentReport(ctx context.Context, voteID string) (entities.DissentReport, error)
	ListDissentReports(ctx context.Context) ([]entities.DissentReport, error)

	SaveEmergencyMeta(ctx context.Context, meta entities.EmergencyMeta) error
	GetEmergencyMeta(ctx context.Context, voteID string) (entities.EmergencyMeta, error)
	GetEmergencyMetaByOverturnVote(ctx context.Context, overturnVoteID string) (entities.EmergencyMeta, error)
	ListEmergencyMeta(ctx context.Context) ([]entities.EmergencyMeta, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = events.Envelope

// OutboxWriter appends events alongside state changes for later relay.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxRepository is the relay-side view of the outbox.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventPublisher pushes envelopes to the external event bus. Fire-and-forget
// from the engine's perspective; delivery retries live in the relay worker.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// AuditSink records one entry per state transition in the external immutable
// audit log. Calls are issued after the in-memory transition is applied and
// their failure never rolls the transition back.
type AuditSink interface {
	Record(ctx context.Context, eventKind string, actor string, trustLevel string, details map[string]any) error
}

// NoopAuditSink is the documented default when no audit log is attached.
type NoopAuditSink struct{}

func (NoopAuditSink) Record(context.Context, string, string, string, map[string]any) error {
	return nil
}

// RelevanceScorer ranks members by relevance to a topic/domain set. Used only
// by emergency panel selection.
type RelevanceScorer interface {
	RankMembers(ctx context.Context, topic string, domains []string) ([]string, error)
}

// NoopRelevanceScorer returns no candidates, which routes panel selection to
// the configured fallback members.
type NoopRelevanceScorer struct{}

func (NoopRelevanceScorer) RankMembers(context.Context, string, []string) ([]string, error) {
	return nil, nil
}

// OutcomeSink forwards post-closure outcome ratings to an external
// credibility process. The engine does not compute or store credibility.
type OutcomeSink interface {
	SubmitOutcome(ctx context.Context, voteID string, rating float64) error
}

// NoopOutcomeSink is the documented default when no feedback collaborator is
// attached.
type NoopOutcomeSink struct{}

func (NoopOutcomeSink) SubmitOutcome(context.Context, string, float64) error {
	return nil
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
