package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
	"conclave/contexts/governance/council-engine/ports"
)

func TestGetVoteReturnsIsolatedCopy(t *testing.T) {
	store := NewStore(nil)
	vote := entities.Vote{
		VoteID:         "vote-1",
		Topic:          "isolation check",
		Status:         entities.StatusOpen,
		EligibleVoters: []string{"aria", "sable"},
		Ballots:        map[string]entities.Ballot{},
		CreatedAt:      time.Now().UTC(),
		Deadline:       time.Now().UTC().Add(time.Hour),
	}
	if err := store.SaveVote(context.Background(), vote); err != nil {
		t.Fatalf("save vote failed: %v", err)
	}

	loaded, err := store.GetVote(context.Background(), "vote-1")
	if err != nil {
		t.Fatalf("get vote failed: %v", err)
	}
	loaded.Ballots["aria"] = entities.Ballot{MemberID: "aria", Option: entities.OptionApprove}
	loaded.EligibleVoters[0] = "mutated"

	again, err := store.GetVote(context.Background(), "vote-1")
	if err != nil {
		t.Fatalf("get vote failed: %v", err)
	}
	if len(again.Ballots) != 0 {
		t.Fatalf("expected stored ballots untouched by caller mutation")
	}
	if again.EligibleVoters[0] != "aria" {
		t.Fatalf("expected stored eligible voters untouched, got %v", again.EligibleVoters)
	}
}

func TestGetVoteNotFound(t *testing.T) {
	store := NewStore(nil)
	if _, err := store.GetVote(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrVoteNotFound) {
		t.Fatalf("expected vote not found, got %v", err)
	}
	if _, err := store.GetDissentReport(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrDissentReportNotFound) {
		t.Fatalf("expected dissent report not found, got %v", err)
	}
	if _, err := store.GetEmergencyMeta(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrEmergencyMetaNotFound) {
		t.Fatalf("expected emergency meta not found, got %v", err)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	store := NewStore(nil)
	now := time.Now().UTC()
	for i, eventID := range []string{"evt-1", "evt-2"} {
		err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
			EventID:       eventID,
			EventType:     "governance.vote.created",
			OccurredAtUTC: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append outbox failed: %v", err)
		}
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows, got %d", len(pending))
	}

	if err := store.MarkOutboxSent(context.Background(), "evt-1", now); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if store.PendingOutboxCount() != 1 {
		t.Fatalf("expected 1 pending row after relay, got %d", store.PendingOutboxCount())
	}

	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].OutboxID != "evt-2" {
		t.Fatalf("expected evt-2 left pending, got %+v", pending)
	}
}

func TestEmergencyMetaLookupByOverturnVote(t *testing.T) {
	store := NewStore(nil)
	meta := entities.EmergencyMeta{
		VoteID:           "em-1",
		Panel:            []string{"sable", "vex", "orin"},
		NotifiedAt:       time.Now().UTC(),
		OverturnDeadline: time.Now().UTC().Add(24 * time.Hour),
		OverturnVoteID:   "ov-1",
	}
	if err := store.SaveEmergencyMeta(context.Background(), meta); err != nil {
		t.Fatalf("save emergency meta failed: %v", err)
	}

	found, err := store.GetEmergencyMetaByOverturnVote(context.Background(), "ov-1")
	if err != nil {
		t.Fatalf("lookup by overturn vote failed: %v", err)
	}
	if found.VoteID != "em-1" {
		t.Fatalf("expected em-1, got %s", found.VoteID)
	}
	if _, err := store.GetEmergencyMetaByOverturnVote(context.Background(), "ov-2"); !errors.Is(err, domainerrors.ErrEmergencyMetaNotFound) {
		t.Fatalf("expected emergency meta not found, got %v", err)
	}
	if _, err := store.GetEmergencyMetaByOverturnVote(context.Background(), ""); !errors.Is(err, domainerrors.ErrEmergencyMetaNotFound) {
		t.Fatalf("expected empty overturn id to miss, got %v", err)
	}
}
