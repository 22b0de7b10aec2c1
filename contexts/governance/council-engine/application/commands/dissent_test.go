package commands_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"conclave/contexts/governance/council-engine/application/commands"
	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
)

func TestNarrowPassRecordsDissentWithPrecedents(t *testing.T) {
	clock := &stubClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger, store := newLedger(t, councilRoster(t), clock)

	seed := entities.DissentReport{
		VoteID:     "past-1",
		Topic:      "budget freeze extension",
		Decision:   entities.StatusPassed,
		Domains:    []string{"treasury"},
		RecordedAt: clock.now.Add(-48 * time.Hour),
	}
	if err := store.SaveDissentReport(context.Background(), seed); err != nil {
		t.Fatalf("seed dissent report failed: %v", err)
	}
	unrelated := entities.DissentReport{
		VoteID:     "past-2",
		Topic:      "incident response drill",
		Decision:   entities.StatusFailed,
		Domains:    []string{"infrastructure"},
		RecordedAt: clock.now.Add(-24 * time.Hour),
	}
	if err := store.SaveDissentReport(context.Background(), unrelated); err != nil {
		t.Fatalf("seed dissent report failed: %v", err)
	}

	vote, err := ledger.CreateVote(context.Background(), commands.CreateVoteCommand{
		Topic:     "budget freeze proposal",
		Threshold: entities.ThresholdMajority,
		Domains:   []string{"treasury"},
	})
	if err != nil {
		t.Fatalf("create vote failed: %v", err)
	}

	cast := func(memberID string, option entities.BallotOption, reasoning string) {
		t.Helper()
		if _, err := ledger.CastBallot(context.Background(), commands.CastBallotCommand{
			VoteID:    vote.VoteID,
			MemberID:  memberID,
			Option:    option,
			Reasoning: reasoning,
		}); err != nil {
			t.Fatalf("cast ballot for %s failed: %v", memberID, err)
		}
	}
	cast("aria", entities.OptionApprove, "")
	cast("sable", entities.OptionReject, "too risky before the audit")
	cast("orin", entities.OptionApprove, "")
	cast("vex", entities.OptionReject, "premature")
	cast("lumen", entities.OptionApprove, "")

	report, err := store.GetDissentReport(context.Background(), vote.VoteID)
	if err != nil {
		t.Fatalf("get dissent report failed: %v", err)
	}
	if report.Decision != entities.StatusPassed {
		t.Fatalf("expected passed decision in report, got %s", report.Decision)
	}
	if math.Abs(report.ConsensusStrength-0.6) > 1e-9 {
		t.Fatalf("expected consensus strength 0.6, got %f", report.ConsensusStrength)
	}
	if len(report.Dissenters) != 2 {
		t.Fatalf("expected 2 dissenters, got %d", len(report.Dissenters))
	}
	if report.Dissenters[0].MemberID != "sable" || report.Dissenters[1].MemberID != "vex" {
		t.Fatalf("unexpected dissenter order: %+v", report.Dissenters)
	}
	if report.Dissenters[0].Reasoning != "too risky before the audit" {
		t.Fatalf("expected verbatim reasoning, got %q", report.Dissenters[0].Reasoning)
	}
	if report.Dissenters[0].Pillar != entities.PillarEthics {
		t.Fatalf("expected dissenter pillar recorded, got %s", report.Dissenters[0].Pillar)
	}
	if len(report.Precedents) != 1 {
		t.Fatalf("expected 1 precedent above the similarity floor, got %d", len(report.Precedents))
	}
	if report.Precedents[0].VoteID != "past-1" {
		t.Fatalf("expected past-1 as precedent, got %s", report.Precedents[0].VoteID)
	}
	if math.Abs(report.Precedents[0].Similarity-0.7) > 1e-9 {
		t.Fatalf("expected precedent similarity 0.7, got %f", report.Precedents[0].Similarity)
	}
}

func TestTieTreatsRejectAsPrevailing(t *testing.T) {
	roster, err := entities.NewRoster([]entities.Member{
		{MemberID: "a", Pillar: entities.PillarStrategy},
		{MemberID: "b", Pillar: entities.PillarEthics},
		{MemberID: "c", Pillar: entities.PillarFinance},
		{MemberID: "d", Pillar: entities.PillarTechnology},
	})
	if err != nil {
		t.Fatalf("build roster: %v", err)
	}
	clock := &stubClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger, store := newLedger(t, roster, clock)

	vote, err := ledger.CreateVote(context.Background(), commands.CreateVoteCommand{
		Topic:     "Split decision",
		Threshold: entities.ThresholdMajority,
	})
	if err != nil {
		t.Fatalf("create vote failed: %v", err)
	}

	options := map[string]entities.BallotOption{
		"a": entities.OptionApprove,
		"b": entities.OptionReject,
		"c": entities.OptionApprove,
		"d": entities.OptionReject,
	}
	for _, memberID := range []string{"a", "b", "c", "d"} {
		if _, err := ledger.CastBallot(context.Background(), commands.CastBallotCommand{
			VoteID:   vote.VoteID,
			MemberID: memberID,
			Option:   options[memberID],
		}); err != nil {
			t.Fatalf("cast ballot for %s failed: %v", memberID, err)
		}
	}

	clock.now = clock.now.Add(2 * time.Hour)
	if _, err := ledger.ExpireOverdue(context.Background()); err != nil {
		t.Fatalf("expire overdue failed: %v", err)
	}

	report, err := store.GetDissentReport(context.Background(), vote.VoteID)
	if err != nil {
		t.Fatalf("get dissent report failed: %v", err)
	}
	if report.Decision != entities.StatusExpired {
		t.Fatalf("expected expired decision, got %s", report.Decision)
	}
	// 2-2 tie: reject prevails, so the approvers are the dissenting minority.
	if len(report.Dissenters) != 2 {
		t.Fatalf("expected 2 dissenters, got %d", len(report.Dissenters))
	}
	for _, dissenter := range report.Dissenters {
		if dissenter.Option != entities.OptionApprove {
			t.Fatalf("expected approvers as dissenters on a tie, got %+v", dissenter)
		}
	}
}

func TestStrongConsensusSkipsDissent(t *testing.T) {
	ledger, store := newLedger(t, councilRoster(t), &stubClock{now: time.Now().UTC()})

	vote, err := ledger.CreateVote(context.Background(), commands.CreateVoteCommand{
		Topic:     "Uncontested housekeeping",
		Threshold: entities.ThresholdUnanimity,
	})
	if err != nil {
		t.Fatalf("create vote failed: %v", err)
	}
	for _, memberID := range []string{"aria", "sable", "orin", "vex", "lumen"} {
		castApprove(t, ledger, vote.VoteID, memberID)
	}

	closed, err := store.GetVote(context.Background(), vote.VoteID)
	if err != nil {
		t.Fatalf("get vote failed: %v", err)
	}
	if closed.Status != entities.StatusPassed {
		t.Fatalf("expected unanimous pass, got %s", closed.Status)
	}
	if _, err := store.GetDissentReport(context.Background(), vote.VoteID); !errors.Is(err, domainerrors.ErrDissentReportNotFound) {
		t.Fatalf("expected no dissent report at full consensus, got %v", err)
	}
}
