package commands

import (
	"context"
	"strings"

	application "conclave/contexts/governance/council-engine/application"
	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
)

// CastVetoCommand is a domain-scoped override request against an open vote.
type CastVetoCommand struct {
	VoteID   string
	MemberID string
	Domain   string
	Reason   string
	RuleRef  string
}

// CastVeto validates domain authority and unconditionally closes the vote as
// vetoed. The tally snapshot records what the count would have been, with
// threshold_met forced false. A veto is final: the vote leaves the open state
// here, so later ballots and further vetoes are rejected by the open guard.
func (uc LedgerUseCase) CastVeto(ctx context.Context, cmd CastVetoCommand) (entities.VetoRecord, error) {
	logger := application.ResolveLogger(uc.Logger)
	voteID := strings.TrimSpace(cmd.VoteID)
	memberID := strings.TrimSpace(cmd.MemberID)
	domain := strings.TrimSpace(strings.ToLower(cmd.Domain))

	release := uc.locks.acquire(voteID)
	defer release()

	vote, err := uc.Votes.GetVote(ctx, voteID)
	if err != nil {
		return entities.VetoRecord{}, err
	}
	if vote.Status != entities.StatusOpen {
		return entities.VetoRecord{}, domainerrors.ErrVoteNotOpen
	}
	member, found := uc.Roster.Member(memberID)
	if !found {
		return entities.VetoRecord{}, domainerrors.ErrMemberNotFound
	}
	if !member.CanVeto(domain) {
		logger.Warn("veto rejected without domain authority",
			"event", "governance_veto_unauthorized",
			"module", "governance/council-engine",
			"layer", "application",
			"vote_id", voteID,
			"member_id", memberID,
			"domain", domain,
		)
		return entities.VetoRecord{}, domainerrors.ErrVetoNotAuthorized
	}

	vetoID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.VetoRecord{}, err
	}
	now := uc.now()
	record := entities.VetoRecord{
		VetoID:   vetoID,
		VoteID:   vote.VoteID,
		MemberID: member.MemberID,
		Domain:   domain,
		Reason:   strings.TrimSpace(cmd.Reason),
		RuleRef:  strings.TrimSpace(cmd.RuleRef),
		CastAt:   now,
	}

	approve, reject, abstain := vote.Tally()
	vote.Status = entities.StatusVetoed
	vote.ClosedAt = &now
	vote.Result = &entities.Result{
		Approve:      approve,
		Reject:       reject,
		Abstain:      abstain,
		ThresholdMet: false,
	}
	if err := uc.Votes.SaveVote(ctx, vote); err != nil {
		return entities.VetoRecord{}, err
	}
	if err := uc.Votes.SaveVeto(ctx, record); err != nil {
		return entities.VetoRecord{}, err
	}

	uc.recordAudit(ctx, EventVoteVetoed, member.MemberID, map[string]any{
		"vote_id":  vote.VoteID,
		"domain":   domain,
		"rule_ref": record.RuleRef,
		"approve":  approve,
		"reject":   reject,
		"abstain":  abstain,
	})
	uc.appendEvent(ctx, EventVoteVetoed, vote.VoteID, now, map[string]any{
		"vote_id":   vote.VoteID,
		"member_id": member.MemberID,
		"domain":    domain,
		"reason":    record.Reason,
		"approve":   approve,
		"reject":    reject,
		"abstain":   abstain,
	})
	logger.Info("vote vetoed",
		"event", "governance_vote_vetoed",
		"module", "governance/council-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"member_id", member.MemberID,
		"domain", domain,
		"approve", approve,
		"reject", reject,
		"abstain", abstain,
	)

	uc.recordDissent(ctx, vote)
	return record, nil
}
