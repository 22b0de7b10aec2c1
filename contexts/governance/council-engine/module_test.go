package councilengine_test

import (
	"context"
	"errors"
	"testing"

	councilengine "conclave/contexts/governance/council-engine"
	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
	httptransport "conclave/contexts/governance/council-engine/transport/http"
)

func testRoster(t *testing.T) *entities.Roster {
	t.Helper()
	roster, err := entities.NewRoster([]entities.Member{
		{MemberID: "aria", DisplayName: "Aria", Pillar: entities.PillarStrategy},
		{MemberID: "sable", DisplayName: "Sable", Pillar: entities.PillarEthics, VetoDomains: []string{entities.DomainEthicsOversight}},
		{MemberID: "orin", DisplayName: "Orin", Pillar: entities.PillarFinance, VetoDomains: []string{"treasury"}},
		{MemberID: "vex", DisplayName: "Vex", Pillar: entities.PillarTechnology, VetoDomains: []string{"infrastructure"}},
		{MemberID: "lumen", DisplayName: "Lumen", Pillar: entities.PillarOperations},
	})
	if err != nil {
		t.Fatalf("build roster: %v", err)
	}
	return roster
}

func TestVoteLifecycleThroughHandlers(t *testing.T) {
	module := councilengine.NewInMemoryModule(testRoster(t), nil)

	created, err := module.Handler.CreateVoteHandler(context.Background(), httptransport.CreateVoteRequest{
		Topic:       "Adopt the new review cadence",
		Threshold:   "majority",
		InitiatorID: "aria",
		Domains:     []string{"operations"},
	})
	if err != nil {
		t.Fatalf("create vote failed: %v", err)
	}
	if created.Status != "open" || len(created.EligibleVoters) != 5 {
		t.Fatalf("unexpected created vote: %+v", created)
	}

	for _, memberID := range []string{"aria", "sable"} {
		if _, err := module.Handler.CastBallotHandler(context.Background(), created.VoteID, httptransport.CastBallotRequest{
			MemberID: memberID,
			Option:   "approve",
		}); err != nil {
			t.Fatalf("cast ballot for %s failed: %v", memberID, err)
		}
	}
	final, err := module.Handler.CastBallotHandler(context.Background(), created.VoteID, httptransport.CastBallotRequest{
		MemberID: "orin",
		Option:   "approve",
	})
	if err != nil {
		t.Fatalf("cast ballot for orin failed: %v", err)
	}
	if !final.Closed || final.Status != "passed" {
		t.Fatalf("expected early majority pass, got closed=%t status=%s", final.Closed, final.Status)
	}
	if final.Result == nil || final.Result.Approve != 3 || !final.Result.ThresholdMet {
		t.Fatalf("unexpected result: %+v", final.Result)
	}

	fetched, err := module.Handler.GetVoteHandler(context.Background(), created.VoteID)
	if err != nil {
		t.Fatalf("get vote failed: %v", err)
	}
	if len(fetched.Ballots) != 3 {
		t.Fatalf("expected 3 ballots in response, got %d", len(fetched.Ballots))
	}

	open, err := module.Handler.ListOpenVotesHandler(context.Background())
	if err != nil {
		t.Fatalf("list open votes failed: %v", err)
	}
	if len(open.Items) != 0 {
		t.Fatalf("expected no open votes, got %d", len(open.Items))
	}
}

func TestVetoThroughHandlers(t *testing.T) {
	module := councilengine.NewInMemoryModule(testRoster(t), nil)

	created, err := module.Handler.CreateVoteHandler(context.Background(), httptransport.CreateVoteRequest{
		Topic:       "Unlock the reserve fund",
		Threshold:   "supermajority",
		InitiatorID: "aria",
		Domains:     []string{"treasury"},
	})
	if err != nil {
		t.Fatalf("create vote failed: %v", err)
	}

	veto, err := module.Handler.CastVetoHandler(context.Background(), created.VoteID, httptransport.CastVetoRequest{
		MemberID: "orin",
		Domain:   "treasury",
		Reason:   "reserve floor breached",
	})
	if err != nil {
		t.Fatalf("cast veto failed: %v", err)
	}
	if veto.Domain != "treasury" {
		t.Fatalf("unexpected veto response: %+v", veto)
	}

	vetoed, err := module.Handler.GetVoteHandler(context.Background(), created.VoteID)
	if err != nil {
		t.Fatalf("get vote failed: %v", err)
	}
	if vetoed.Status != "vetoed" {
		t.Fatalf("expected vetoed status, got %s", vetoed.Status)
	}

	vetoes, err := module.Handler.ListVetoesHandler(context.Background(), created.VoteID)
	if err != nil {
		t.Fatalf("list vetoes failed: %v", err)
	}
	if len(vetoes.Items) != 1 {
		t.Fatalf("expected 1 veto, got %d", len(vetoes.Items))
	}

	authority := module.Handler.VetoAuthorityHandler(context.Background())
	grants, found := authority.Grants["orin"]
	if !found || len(grants) != 1 || grants[0] != "treasury" {
		t.Fatalf("unexpected authority table: %+v", authority.Grants)
	}
}

func TestEmergencyThroughHandlers(t *testing.T) {
	module := councilengine.NewInMemoryModule(testRoster(t), nil)

	created, err := module.Handler.CreateEmergencyVoteHandler(context.Background(), httptransport.CreateEmergencyVoteRequest{
		Topic:         "Contain the data leak",
		UrgencyReason: "active exfiltration",
		InitiatorID:   "vex",
		Domains:       []string{"infrastructure"},
	})
	if err != nil {
		t.Fatalf("create emergency vote failed: %v", err)
	}
	if !created.Vote.Emergency || created.Vote.Threshold != "unanimity" {
		t.Fatalf("unexpected emergency vote: %+v", created.Vote)
	}
	if len(created.Meta.Panel) < 3 {
		t.Fatalf("expected panel of at least 3, got %v", created.Meta.Panel)
	}

	var last httptransport.VoteResponse
	for _, memberID := range created.Meta.Panel {
		last, err = module.Handler.CastEmergencyVoteHandler(context.Background(), created.Vote.VoteID, httptransport.CastBallotRequest{
			MemberID: memberID,
			Option:   "approve",
		})
		if err != nil {
			t.Fatalf("panel ballot from %s failed: %v", memberID, err)
		}
	}
	if !last.Closed || last.Status != "passed" {
		t.Fatalf("expected unanimous pass, got closed=%t status=%s", last.Closed, last.Status)
	}

	overturnable, err := module.Handler.ListOverturnableHandler(context.Background())
	if err != nil {
		t.Fatalf("list overturnable failed: %v", err)
	}
	if len(overturnable.Items) != 1 {
		t.Fatalf("expected 1 overturnable decision, got %d", len(overturnable.Items))
	}

	overturn, err := module.Handler.RequestOverturnHandler(context.Background(), created.Vote.VoteID, httptransport.RequestOverturnRequest{
		RequesterID: "lumen",
		Reason:      "panel lacked context",
	})
	if err != nil {
		t.Fatalf("request overturn failed: %v", err)
	}
	if overturn.Threshold != "supermajority" || len(overturn.EligibleVoters) != 5 {
		t.Fatalf("unexpected overturn vote: %+v", overturn)
	}

	for _, memberID := range []string{"aria", "sable", "orin", "vex"} {
		if _, err := module.Handler.CastBallotHandler(context.Background(), overturn.VoteID, httptransport.CastBallotRequest{
			MemberID: memberID,
			Option:   "approve",
		}); err != nil {
			t.Fatalf("overturn ballot from %s failed: %v", memberID, err)
		}
	}

	completed, err := module.Handler.CompleteOverturnHandler(context.Background(), overturn.VoteID)
	if err != nil {
		t.Fatalf("complete overturn failed: %v", err)
	}
	if !completed.Overturned {
		t.Fatalf("expected completed overturn")
	}

	original, err := module.Handler.GetVoteHandler(context.Background(), created.Vote.VoteID)
	if err != nil {
		t.Fatalf("get original vote failed: %v", err)
	}
	if original.Status != "overturned" {
		t.Fatalf("expected overturned status, got %s", original.Status)
	}
}

func TestDissentThroughHandlers(t *testing.T) {
	module := councilengine.NewInMemoryModule(testRoster(t), nil)

	created, err := module.Handler.CreateVoteHandler(context.Background(), httptransport.CreateVoteRequest{
		Topic:       "Contested restructure",
		Threshold:   "majority",
		InitiatorID: "aria",
		Domains:     []string{"operations"},
	})
	if err != nil {
		t.Fatalf("create vote failed: %v", err)
	}

	ballots := []struct {
		member string
		option string
		reason string
	}{
		{"aria", "approve", ""},
		{"sable", "reject", "moves too fast"},
		{"orin", "approve", ""},
		{"vex", "reject", "unproven"},
		{"lumen", "approve", ""},
	}
	for _, b := range ballots {
		if _, err := module.Handler.CastBallotHandler(context.Background(), created.VoteID, httptransport.CastBallotRequest{
			MemberID:  b.member,
			Option:    b.option,
			Reasoning: b.reason,
		}); err != nil {
			t.Fatalf("cast ballot for %s failed: %v", b.member, err)
		}
	}

	report, err := module.Handler.GetDissentReportHandler(context.Background(), created.VoteID)
	if err != nil {
		t.Fatalf("get dissent report failed: %v", err)
	}
	if len(report.Dissenters) != 2 {
		t.Fatalf("expected 2 dissenters, got %d", len(report.Dissenters))
	}

	byDomain, err := module.Handler.DissentByDomainHandler(context.Background(), "operations")
	if err != nil {
		t.Fatalf("dissent by domain failed: %v", err)
	}
	if len(byDomain.Items) != 1 {
		t.Fatalf("expected 1 report for operations, got %d", len(byDomain.Items))
	}

	if _, err := module.Handler.GetDissentReportHandler(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrDissentReportNotFound) {
		t.Fatalf("expected dissent report not found, got %v", err)
	}
}
