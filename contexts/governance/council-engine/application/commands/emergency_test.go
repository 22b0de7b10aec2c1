package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"conclave/contexts/governance/council-engine/application/commands"
	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
	"conclave/contexts/governance/council-engine/ports"
)

func newEmergency(t *testing.T, clock *stubClock) (commands.EmergencyUseCase, commands.LedgerUseCase) {
	t.Helper()
	ledger, _ := newLedger(t, councilRoster(t), clock)
	emergency := commands.EmergencyUseCase{
		Ledger:        ledger,
		Scorer:        ports.NoopRelevanceScorer{},
		FallbackPanel: []string{"vex", "orin"},
	}
	return emergency, ledger
}

func TestEmergencyPanelSeatsOversightFirst(t *testing.T) {
	clock := &stubClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	emergency, _ := newEmergency(t, clock)

	vote, meta, err := emergency.CreateEmergencyVote(context.Background(), commands.CreateEmergencyVoteCommand{
		Topic:           "Contain the data leak",
		UrgencyReason:   "active exfiltration",
		InitiatorID:     "vex",
		Domains:         []string{"infrastructure"},
		DeadlineMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create emergency vote failed: %v", err)
	}
	if !vote.Emergency {
		t.Fatalf("expected emergency flag set")
	}
	if vote.Threshold != entities.ThresholdUnanimity {
		t.Fatalf("expected forced unanimity, got %s", vote.Threshold)
	}
	if len(meta.Panel) < 3 || len(meta.Panel) > 5 {
		t.Fatalf("expected panel of 3-5 members, got %d", len(meta.Panel))
	}
	if meta.Panel[0] != "sable" {
		t.Fatalf("expected ethics-oversight holder seated first, got %v", meta.Panel)
	}
	if want := clock.now.Add(15 * time.Minute); !vote.Deadline.Equal(want) {
		t.Fatalf("expected deadline clamped to 15 minutes, got %v", vote.Deadline)
	}
	if want := clock.now.Add(24 * time.Hour); !meta.OverturnDeadline.Equal(want) {
		t.Fatalf("expected 24 hour overturn deadline, got %v", meta.OverturnDeadline)
	}

	if _, err := emergency.CastEmergencyVote(context.Background(), commands.CastBallotCommand{
		VoteID:   vote.VoteID,
		MemberID: "lumen",
		Option:   entities.OptionApprove,
	}); !errors.Is(err, domainerrors.ErrNotPanelMember) {
		t.Fatalf("expected not panel member, got %v", err)
	}
}

func TestEmergencyRejectFailsFastAndIsNotOverturnable(t *testing.T) {
	clock := &stubClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	emergency, _ := newEmergency(t, clock)

	vote, meta, err := emergency.CreateEmergencyVote(context.Background(), commands.CreateEmergencyVoteCommand{
		Topic:   "Suspend payouts",
		Domains: []string{"treasury"},
	})
	if err != nil {
		t.Fatalf("create emergency vote failed: %v", err)
	}

	result, err := emergency.CastEmergencyVote(context.Background(), commands.CastBallotCommand{
		VoteID:   vote.VoteID,
		MemberID: meta.Panel[0],
		Option:   entities.OptionReject,
	})
	if err != nil {
		t.Fatalf("cast emergency ballot failed: %v", err)
	}
	if !result.Closed || result.Vote.Status != entities.StatusFailed {
		t.Fatalf("expected immediate failure on a reject under unanimity, got closed=%t status=%s",
			result.Closed, result.Vote.Status)
	}

	if _, err := emergency.RequestOverturn(context.Background(), commands.RequestOverturnCommand{
		EmergencyVoteID: vote.VoteID,
		RequesterID:     "lumen",
	}); !errors.Is(err, domainerrors.ErrNotOverturnable) {
		t.Fatalf("expected not overturnable for a failed decision, got %v", err)
	}
}

func passEmergencyVote(t *testing.T, emergency commands.EmergencyUseCase, voteID string, panel []string) {
	t.Helper()
	for _, memberID := range panel {
		result, err := emergency.CastEmergencyVote(context.Background(), commands.CastBallotCommand{
			VoteID:   voteID,
			MemberID: memberID,
			Option:   entities.OptionApprove,
		})
		if err != nil {
			t.Fatalf("panel approval from %s failed: %v", memberID, err)
		}
		if memberID == panel[len(panel)-1] {
			if !result.Closed || result.Vote.Status != entities.StatusPassed {
				t.Fatalf("expected unanimous pass, got closed=%t status=%s", result.Closed, result.Vote.Status)
			}
		}
	}
}

func TestOverturnLifecycle(t *testing.T) {
	clock := &stubClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	emergency, ledger := newEmergency(t, clock)

	vote, meta, err := emergency.CreateEmergencyVote(context.Background(), commands.CreateEmergencyVoteCommand{
		Topic:   "Freeze external transfers",
		Domains: []string{"treasury"},
	})
	if err != nil {
		t.Fatalf("create emergency vote failed: %v", err)
	}
	passEmergencyVote(t, emergency, vote.VoteID, meta.Panel)

	listed, err := emergency.ListOverturnable(context.Background())
	if err != nil {
		t.Fatalf("list overturnable failed: %v", err)
	}
	if len(listed) != 1 || listed[0].VoteID != vote.VoteID {
		t.Fatalf("expected the passed emergency decision listed, got %+v", listed)
	}

	clock.now = clock.now.Add(2 * time.Hour)
	overturn, err := emergency.RequestOverturn(context.Background(), commands.RequestOverturnCommand{
		EmergencyVoteID: vote.VoteID,
		RequesterID:     "lumen",
		Reason:          "panel lacked context",
	})
	if err != nil {
		t.Fatalf("request overturn failed: %v", err)
	}
	if overturn.Threshold != entities.ThresholdSupermajority {
		t.Fatalf("expected supermajority overturn vote, got %s", overturn.Threshold)
	}
	if len(overturn.EligibleVoters) != 5 {
		t.Fatalf("expected full membership eligible on overturn, got %d", len(overturn.EligibleVoters))
	}
	if !strings.HasPrefix(overturn.Topic, "Overturn emergency decision:") {
		t.Fatalf("unexpected overturn topic %q", overturn.Topic)
	}

	if _, err := emergency.RequestOverturn(context.Background(), commands.RequestOverturnCommand{
		EmergencyVoteID: vote.VoteID,
		RequesterID:     "aria",
	}); !errors.Is(err, domainerrors.ErrOverturnExists) {
		t.Fatalf("expected one overturn per emergency vote, got %v", err)
	}
	if _, err := emergency.CompleteOverturn(context.Background(), overturn.VoteID); !errors.Is(err, domainerrors.ErrOverturnNotClosed) {
		t.Fatalf("expected overturn not closed, got %v", err)
	}

	for _, memberID := range []string{"aria", "sable", "orin", "vex"} {
		if _, err := ledger.CastBallot(context.Background(), commands.CastBallotCommand{
			VoteID:   overturn.VoteID,
			MemberID: memberID,
			Option:   entities.OptionApprove,
		}); err != nil {
			t.Fatalf("overturn approval from %s failed: %v", memberID, err)
		}
	}

	overturned, err := emergency.CompleteOverturn(context.Background(), overturn.VoteID)
	if err != nil {
		t.Fatalf("complete overturn failed: %v", err)
	}
	if !overturned {
		t.Fatalf("expected overturn applied")
	}

	original, err := ledger.Votes.GetVote(context.Background(), vote.VoteID)
	if err != nil {
		t.Fatalf("get original vote failed: %v", err)
	}
	if original.Status != entities.StatusOverturned {
		t.Fatalf("expected overturned status, got %s", original.Status)
	}
	updated, err := ledger.Votes.GetEmergencyMeta(context.Background(), vote.VoteID)
	if err != nil {
		t.Fatalf("get emergency meta failed: %v", err)
	}
	if !updated.Overturned {
		t.Fatalf("expected overturned flag on metadata")
	}

	listed, err = emergency.ListOverturnable(context.Background())
	if err != nil {
		t.Fatalf("list overturnable failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no overturnable decisions left, got %d", len(listed))
	}
}

func TestOverturnWindowIsExclusiveAtDeadline(t *testing.T) {
	clock := &stubClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	emergency, _ := newEmergency(t, clock)

	vote, meta, err := emergency.CreateEmergencyVote(context.Background(), commands.CreateEmergencyVoteCommand{
		Topic:   "Rotate signing keys",
		Domains: []string{"infrastructure"},
	})
	if err != nil {
		t.Fatalf("create emergency vote failed: %v", err)
	}
	passEmergencyVote(t, emergency, vote.VoteID, meta.Panel)

	clock.now = meta.OverturnDeadline
	if _, err := emergency.RequestOverturn(context.Background(), commands.RequestOverturnCommand{
		EmergencyVoteID: vote.VoteID,
		RequesterID:     "lumen",
	}); !errors.Is(err, domainerrors.ErrOverturnWindowClosed) {
		t.Fatalf("expected window closed exactly at the deadline, got %v", err)
	}

	clock.now = meta.OverturnDeadline.Add(-time.Millisecond)
	if _, err := emergency.RequestOverturn(context.Background(), commands.RequestOverturnCommand{
		EmergencyVoteID: vote.VoteID,
		RequesterID:     "lumen",
	}); err != nil {
		t.Fatalf("expected request inside the window to succeed, got %v", err)
	}
}

func TestOverturnFailureLeavesDecisionStanding(t *testing.T) {
	clock := &stubClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	emergency, ledger := newEmergency(t, clock)

	vote, meta, err := emergency.CreateEmergencyVote(context.Background(), commands.CreateEmergencyVoteCommand{
		Topic:   "Halt the migration",
		Domains: []string{"infrastructure"},
	})
	if err != nil {
		t.Fatalf("create emergency vote failed: %v", err)
	}
	passEmergencyVote(t, emergency, vote.VoteID, meta.Panel)

	overturn, err := emergency.RequestOverturn(context.Background(), commands.RequestOverturnCommand{
		EmergencyVoteID: vote.VoteID,
		RequesterID:     "lumen",
	})
	if err != nil {
		t.Fatalf("request overturn failed: %v", err)
	}

	// Supermajority of 5 needs 4 approvals; two rejections make it unreachable.
	for _, memberID := range []string{"aria", "sable"} {
		if _, err := ledger.CastBallot(context.Background(), commands.CastBallotCommand{
			VoteID:   overturn.VoteID,
			MemberID: memberID,
			Option:   entities.OptionReject,
		}); err != nil {
			t.Fatalf("overturn rejection from %s failed: %v", memberID, err)
		}
	}

	closed, err := ledger.Votes.GetVote(context.Background(), overturn.VoteID)
	if err != nil {
		t.Fatalf("get overturn vote failed: %v", err)
	}
	if closed.Status != entities.StatusFailed {
		t.Fatalf("expected overturn vote failed early, got %s", closed.Status)
	}

	overturned, err := emergency.CompleteOverturn(context.Background(), overturn.VoteID)
	if err != nil {
		t.Fatalf("complete overturn failed: %v", err)
	}
	if overturned {
		t.Fatalf("expected failed overturn to leave the decision standing")
	}
	original, err := ledger.Votes.GetVote(context.Background(), vote.VoteID)
	if err != nil {
		t.Fatalf("get original vote failed: %v", err)
	}
	if original.Status != entities.StatusPassed {
		t.Fatalf("expected original decision still passed, got %s", original.Status)
	}
}
