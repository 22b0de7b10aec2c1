package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
	"conclave/contexts/governance/council-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message ports.OutboxMessage
	sent    bool
}

// AuditEntry captures one audit sink call for inspection in tests and local
// wiring.
type AuditEntry struct {
	Kind       string
	Actor      string
	TrustLevel string
	Details    map[string]any
	RecordedAt time.Time
}

// Store is the in-memory adapter behind every engine port: vote repository,
// outbox, audit sink, clock and id generation.
type Store struct {
	mu sync.RWMutex

	votes     map[string]entities.Vote
	vetoes    map[string][]entities.VetoRecord
	dissent   map[string]entities.DissentReport
	emergency map[string]entities.EmergencyMeta
	outbox    []outboxRecord
	audit     []AuditEntry
}

func NewStore(seed []entities.Vote) *Store {
	votes := make(map[string]entities.Vote, len(seed))
	for _, vote := range seed {
		votes[vote.VoteID] = vote.Clone()
	}
	return &Store{
		votes:     votes,
		vetoes:    make(map[string][]entities.VetoRecord),
		dissent:   make(map[string]entities.DissentReport),
		emergency: make(map[string]entities.EmergencyMeta),
	}
}

func (s *Store) SaveVote(_ context.Context, vote entities.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[vote.VoteID] = vote.Clone()
	return nil
}

func (s *Store) GetVote(_ context.Context, voteID string) (entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, found := s.votes[strings.TrimSpace(voteID)]
	if !found {
		return entities.Vote{}, domainerrors.ErrVoteNotFound
	}
	return vote.Clone(), nil
}

func (s *Store) ListVotes(_ context.Context) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	votes := make([]entities.Vote, 0, len(s.votes))
	for _, vote := range s.votes {
		votes = append(votes, vote.Clone())
	}
	return votes, nil
}

func (s *Store) ListOpenVotes(_ context.Context) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	votes := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.Status == entities.StatusOpen {
			votes = append(votes, vote.Clone())
		}
	}
	return votes, nil
}

func (s *Store) SaveVeto(_ context.Context, record entities.VetoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vetoes[record.VoteID] = append(s.vetoes[record.VoteID], record)
	return nil
}

func (s *Store) ListVetoes(_ context.Context, voteID string) ([]entities.VetoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.vetoes[strings.TrimSpace(voteID)]
	out := make([]entities.VetoRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *Store) SaveDissentReport(_ context.Context, report entities.DissentReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dissent[report.VoteID] = report
	return nil
}

func (s *Store) GetDissentReport(_ context.Context, voteID string) (entities.DissentReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, found := s.dissent[strings.TrimSpace(voteID)]
	if !found {
		return entities.DissentReport{}, domainerrors.ErrDissentReportNotFound
	}
	return report, nil
}

func (s *Store) ListDissentReports(_ context.Context) ([]entities.DissentReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reports := make([]entities.DissentReport, 0, len(s.dissent))
	for _, report := range s.dissent {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].RecordedAt.Before(reports[j].RecordedAt)
	})
	return reports, nil
}

func (s *Store) SaveEmergencyMeta(_ context.Context, meta entities.EmergencyMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergency[meta.VoteID] = meta.Clone()
	return nil
}

func (s *Store) GetEmergencyMeta(_ context.Context, voteID string) (entities.EmergencyMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, found := s.emergency[strings.TrimSpace(voteID)]
	if !found {
		return entities.EmergencyMeta{}, domainerrors.ErrEmergencyMetaNotFound
	}
	return meta.Clone(), nil
}

func (s *Store) GetEmergencyMetaByOverturnVote(_ context.Context, overturnVoteID string) (entities.EmergencyMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	overturnVoteID = strings.TrimSpace(overturnVoteID)
	for _, meta := range s.emergency {
		if meta.OverturnVoteID == overturnVoteID && overturnVoteID != "" {
			return meta.Clone(), nil
		}
	}
	return entities.EmergencyMeta{}, domainerrors.ErrEmergencyMetaNotFound
}

func (s *Store) ListEmergencyMeta(_ context.Context) ([]entities.EmergencyMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metas := make([]entities.EmergencyMeta, 0, len(s.emergency))
	for _, meta := range s.emergency {
		metas = append(metas, meta.Clone())
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].NotifiedAt.Before(metas[j].NotifiedAt)
	})
	return metas, nil
}

func (s *Store) AppendOutbox(_ context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:  event.EventID,
			EventType: event.EventType,
			Payload:   payload,
			CreatedAt: event.OccurredAtUTC,
		},
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]ports.OutboxMessage, 0, limit)
	for _, record := range s.outbox {
		if record.sent {
			continue
		}
		pending = append(pending, record.message)
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			s.outbox[i].sent = true
			return nil
		}
	}
	return nil
}

// Record implements the audit sink by retaining entries in memory.
func (s *Store) Record(_ context.Context, kind string, actor string, trustLevel string, details map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, AuditEntry{
		Kind:       kind,
		Actor:      actor,
		TrustLevel: trustLevel,
		Details:    details,
		RecordedAt: time.Now().UTC(),
	})
	return nil
}

// AuditEntries returns a copy of everything the audit sink has captured.
func (s *Store) AuditEntries() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

// PendingOutboxCount reports unrelayed rows, for tests.
func (s *Store) PendingOutboxCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, record := range s.outbox {
		if !record.sent {
			count++
		}
	}
	return count
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}
