package httpadapter

import (
	"context"
	"log/slog"
	"sort"

	"conclave/contexts/governance/council-engine/application/commands"
	"conclave/contexts/governance/council-engine/application/queries"
	"conclave/contexts/governance/council-engine/domain/entities"
	httptransport "conclave/contexts/governance/council-engine/transport/http"
)

// Handler maps transport DTOs to engine commands and queries. It carries no
// business rules of its own.
type Handler struct {
	Ledger       commands.LedgerUseCase
	Emergency    commands.EmergencyUseCase
	VoteQueries  queries.VoteQueryUseCase
	DissentViews queries.DissentQueryUseCase
	Logger       *slog.Logger
}

func (h Handler) CreateVoteHandler(ctx context.Context, req httptransport.CreateVoteRequest) (httptransport.VoteResponse, error) {
	vote, err := h.Ledger.CreateVote(ctx, commands.CreateVoteCommand{
		Topic:           req.Topic,
		Description:     req.Description,
		Threshold:       entities.ThresholdClass(req.Threshold),
		DeadlineMinutes: req.DeadlineMinutes,
		InitiatorID:     req.InitiatorID,
		Domains:         req.Domains,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(vote, false), nil
}

func (h Handler) CastBallotHandler(ctx context.Context, voteID string, req httptransport.CastBallotRequest) (httptransport.VoteResponse, error) {
	result, err := h.Ledger.CastBallot(ctx, commands.CastBallotCommand{
		VoteID:    voteID,
		MemberID:  req.MemberID,
		Option:    entities.BallotOption(req.Option),
		Reasoning: req.Reasoning,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(result.Vote, result.Closed), nil
}

func (h Handler) CastVetoHandler(ctx context.Context, voteID string, req httptransport.CastVetoRequest) (httptransport.VetoResponse, error) {
	record, err := h.Ledger.CastVeto(ctx, commands.CastVetoCommand{
		VoteID:   voteID,
		MemberID: req.MemberID,
		Domain:   req.Domain,
		Reason:   req.Reason,
		RuleRef:  req.RuleRef,
	})
	if err != nil {
		return httptransport.VetoResponse{}, err
	}
	return mapVeto(record), nil
}

func (h Handler) CloseVoteHandler(ctx context.Context, voteID string, req httptransport.CloseVoteRequest) (httptransport.VoteResponse, error) {
	vote, err := h.Ledger.CloseVote(ctx, voteID, entities.VoteStatus(req.Status))
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(vote, true), nil
}

func (h Handler) ExpireOverdueHandler(ctx context.Context) (httptransport.ExpireOverdueResponse, error) {
	expired, err := h.Ledger.ExpireOverdue(ctx)
	if err != nil {
		return httptransport.ExpireOverdueResponse{}, err
	}
	return httptransport.ExpireOverdueResponse{Expired: expired}, nil
}

func (h Handler) SubmitOutcomeHandler(ctx context.Context, voteID string, req httptransport.SubmitOutcomeRequest) error {
	return h.Ledger.SubmitOutcome(ctx, voteID, req.Rating)
}

func (h Handler) GetVoteHandler(ctx context.Context, voteID string) (httptransport.VoteResponse, error) {
	vote, err := h.VoteQueries.GetVote(ctx, voteID)
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(vote, vote.Terminal()), nil
}

func (h Handler) ListOpenVotesHandler(ctx context.Context) (httptransport.VoteListResponse, error) {
	votes, err := h.VoteQueries.ListOpen(ctx)
	if err != nil {
		return httptransport.VoteListResponse{}, err
	}
	return mapVoteList(votes), nil
}

func (h Handler) ListVotesHandler(ctx context.Context) (httptransport.VoteListResponse, error) {
	votes, err := h.VoteQueries.ListAll(ctx)
	if err != nil {
		return httptransport.VoteListResponse{}, err
	}
	return mapVoteList(votes), nil
}

func (h Handler) ListVetoesHandler(ctx context.Context, voteID string) (httptransport.VetoListResponse, error) {
	records, err := h.VoteQueries.ListVetoes(ctx, voteID)
	if err != nil {
		return httptransport.VetoListResponse{}, err
	}
	items := make([]httptransport.VetoResponse, 0, len(records))
	for _, record := range records {
		items = append(items, mapVeto(record))
	}
	return httptransport.VetoListResponse{Items: items}, nil
}

func (h Handler) VetoAuthorityHandler(ctx context.Context) httptransport.VetoAuthorityResponse {
	return httptransport.VetoAuthorityResponse{Grants: h.VoteQueries.VetoAuthorityTable(ctx)}
}

func (h Handler) GetDissentReportHandler(ctx context.Context, voteID string) (httptransport.DissentReportResponse, error) {
	report, err := h.DissentViews.Get(ctx, voteID)
	if err != nil {
		return httptransport.DissentReportResponse{}, err
	}
	return mapDissent(report), nil
}

func (h Handler) ListDissentReportsHandler(ctx context.Context) (httptransport.DissentListResponse, error) {
	reports, err := h.DissentViews.ListAll(ctx)
	if err != nil {
		return httptransport.DissentListResponse{}, err
	}
	return mapDissentList(reports), nil
}

func (h Handler) DissentByDomainHandler(ctx context.Context, domain string) (httptransport.DissentListResponse, error) {
	reports, err := h.DissentViews.ByDomain(ctx, domain)
	if err != nil {
		return httptransport.DissentListResponse{}, err
	}
	return mapDissentList(reports), nil
}

func (h Handler) CreateEmergencyVoteHandler(ctx context.Context, req httptransport.CreateEmergencyVoteRequest) (httptransport.EmergencyVoteResponse, error) {
	vote, meta, err := h.Emergency.CreateEmergencyVote(ctx, commands.CreateEmergencyVoteCommand{
		Topic:           req.Topic,
		Description:     req.Description,
		UrgencyReason:   req.UrgencyReason,
		InitiatorID:     req.InitiatorID,
		Domains:         req.Domains,
		DeadlineMinutes: req.DeadlineMinutes,
	})
	if err != nil {
		return httptransport.EmergencyVoteResponse{}, err
	}
	return httptransport.EmergencyVoteResponse{
		Vote: mapVote(vote, false),
		Meta: mapEmergencyMeta(meta),
	}, nil
}

func (h Handler) CastEmergencyVoteHandler(ctx context.Context, voteID string, req httptransport.CastBallotRequest) (httptransport.VoteResponse, error) {
	result, err := h.Emergency.CastEmergencyVote(ctx, commands.CastBallotCommand{
		VoteID:    voteID,
		MemberID:  req.MemberID,
		Option:    entities.BallotOption(req.Option),
		Reasoning: req.Reasoning,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(result.Vote, result.Closed), nil
}

func (h Handler) RequestOverturnHandler(ctx context.Context, emergencyVoteID string, req httptransport.RequestOverturnRequest) (httptransport.VoteResponse, error) {
	overturn, err := h.Emergency.RequestOverturn(ctx, commands.RequestOverturnCommand{
		EmergencyVoteID: emergencyVoteID,
		RequesterID:     req.RequesterID,
		Reason:          req.Reason,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(overturn, false), nil
}

func (h Handler) CompleteOverturnHandler(ctx context.Context, overturnVoteID string) (httptransport.CompleteOverturnResponse, error) {
	overturned, err := h.Emergency.CompleteOverturn(ctx, overturnVoteID)
	if err != nil {
		return httptransport.CompleteOverturnResponse{}, err
	}
	return httptransport.CompleteOverturnResponse{Overturned: overturned}, nil
}

func (h Handler) ListOverturnableHandler(ctx context.Context) (httptransport.OverturnableListResponse, error) {
	metas, err := h.Emergency.ListOverturnable(ctx)
	if err != nil {
		return httptransport.OverturnableListResponse{}, err
	}
	items := make([]httptransport.EmergencyMetaResponse, 0, len(metas))
	for _, meta := range metas {
		items = append(items, mapEmergencyMeta(meta))
	}
	return httptransport.OverturnableListResponse{Items: items}, nil
}

func mapVote(vote entities.Vote, closed bool) httptransport.VoteResponse {
	ballots := make([]httptransport.BallotResponse, 0, len(vote.Ballots))
	for _, ballot := range vote.Ballots {
		ballots = append(ballots, httptransport.BallotResponse{
			MemberID:  ballot.MemberID,
			Option:    string(ballot.Option),
			Reasoning: ballot.Reasoning,
			CastAt:    ballot.CastAt,
		})
	}
	sort.Slice(ballots, func(i, j int) bool { return ballots[i].MemberID < ballots[j].MemberID })

	response := httptransport.VoteResponse{
		VoteID:         vote.VoteID,
		Topic:          vote.Topic,
		Description:    vote.Description,
		Threshold:      string(vote.Threshold),
		Status:         string(vote.Status),
		InitiatorID:    vote.InitiatorID,
		Domains:        vote.Domains,
		EligibleVoters: vote.EligibleVoters,
		Ballots:        ballots,
		Emergency:      vote.Emergency,
		CreatedAt:      vote.CreatedAt,
		Deadline:       vote.Deadline,
		ClosedAt:       vote.ClosedAt,
		Closed:         closed,
	}
	if vote.Result != nil {
		response.Result = &httptransport.ResultResponse{
			Approve:      vote.Result.Approve,
			Reject:       vote.Result.Reject,
			Abstain:      vote.Result.Abstain,
			ThresholdMet: vote.Result.ThresholdMet,
		}
	}
	return response
}

func mapVoteList(votes []entities.Vote) httptransport.VoteListResponse {
	items := make([]httptransport.VoteResponse, 0, len(votes))
	for _, vote := range votes {
		items = append(items, mapVote(vote, vote.Terminal()))
	}
	return httptransport.VoteListResponse{Items: items}
}

func mapVeto(record entities.VetoRecord) httptransport.VetoResponse {
	return httptransport.VetoResponse{
		VetoID:   record.VetoID,
		VoteID:   record.VoteID,
		MemberID: record.MemberID,
		Domain:   record.Domain,
		Reason:   record.Reason,
		RuleRef:  record.RuleRef,
		CastAt:   record.CastAt,
	}
}

func mapDissent(report entities.DissentReport) httptransport.DissentReportResponse {
	dissenters := make([]httptransport.DissenterResponse, 0, len(report.Dissenters))
	for _, dissenter := range report.Dissenters {
		dissenters = append(dissenters, httptransport.DissenterResponse{
			MemberID:  dissenter.MemberID,
			Pillar:    string(dissenter.Pillar),
			Option:    string(dissenter.Option),
			Reasoning: dissenter.Reasoning,
		})
	}
	precedents := make([]httptransport.PrecedentResponse, 0, len(report.Precedents))
	for _, precedent := range report.Precedents {
		precedents = append(precedents, httptransport.PrecedentResponse{
			VoteID:     precedent.VoteID,
			Topic:      precedent.Topic,
			Similarity: precedent.Similarity,
		})
	}
	return httptransport.DissentReportResponse{
		VoteID:            report.VoteID,
		Topic:             report.Topic,
		Decision:          string(report.Decision),
		ConsensusStrength: report.ConsensusStrength,
		Domains:           report.Domains,
		Dissenters:        dissenters,
		Precedents:        precedents,
		RecordedAt:        report.RecordedAt,
	}
}

func mapDissentList(reports []entities.DissentReport) httptransport.DissentListResponse {
	items := make([]httptransport.DissentReportResponse, 0, len(reports))
	for _, report := range reports {
		items = append(items, mapDissent(report))
	}
	return httptransport.DissentListResponse{Items: items}
}

func mapEmergencyMeta(meta entities.EmergencyMeta) httptransport.EmergencyMetaResponse {
	return httptransport.EmergencyMetaResponse{
		VoteID:           meta.VoteID,
		Panel:            meta.Panel,
		UrgencyReason:    meta.UrgencyReason,
		NotifiedAt:       meta.NotifiedAt,
		OverturnDeadline: meta.OverturnDeadline,
		OverturnVoteID:   meta.OverturnVoteID,
		Overturned:       meta.Overturned,
	}
}
