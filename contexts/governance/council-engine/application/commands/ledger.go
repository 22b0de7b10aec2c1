package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "conclave/contexts/governance/council-engine/application"
	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
	"conclave/contexts/governance/council-engine/domain/rules"
	"conclave/contexts/governance/council-engine/ports"
)

const (
	defaultDeadlineMinutes   = 60
	defaultMinCategoryQuorum = 3
	defaultDissentFloor      = 0.8
)

// CreateVoteCommand opens a new proposal vote over the full membership.
type CreateVoteCommand struct {
	Topic           string
	Description     string
	Threshold       entities.ThresholdClass
	DeadlineMinutes int
	InitiatorID     string
	Domains         []string
}

// CastBallotCommand records one member's ballot on an open vote.
type CastBallotCommand struct {
	VoteID    string
	MemberID  string
	Option    entities.BallotOption
	Reasoning string
}

// CastBallotResult reports the vote state after the ballot, including whether
// the ballot concluded the vote early.
type CastBallotResult struct {
	Vote   entities.Vote
	Closed bool
}

// LedgerUseCase owns the vote state machine: creation, ballots, vetoes,
// closure, expiry and outcome forwarding. Every mutation on a vote id is
// serialized through a per-vote lock so tallies, early conclusion and veto
// supremacy never race each other.
type LedgerUseCase struct {
	Roster            *entities.Roster
	Votes             ports.VoteRepository
	Outbox            ports.OutboxWriter
	Audit             ports.AuditSink
	Outcomes          ports.OutcomeSink
	Clock             ports.Clock
	IDGen             ports.IDGenerator
	MinCategoryQuorum int
	DissentFloor      float64
	MaxPrecedents     int
	Logger            *slog.Logger

	locks *voteLocks
}

type LedgerConfig struct {
	Roster            *entities.Roster
	Votes             ports.VoteRepository
	Outbox            ports.OutboxWriter
	Audit             ports.AuditSink
	Outcomes          ports.OutcomeSink
	Clock             ports.Clock
	IDGen             ports.IDGenerator
	MinCategoryQuorum int
	DissentFloor      float64
	MaxPrecedents     int
	Logger            *slog.Logger
}

func NewLedgerUseCase(cfg LedgerConfig) LedgerUseCase {
	return LedgerUseCase{
		Roster:            cfg.Roster,
		Votes:             cfg.Votes,
		Outbox:            cfg.Outbox,
		Audit:             cfg.Audit,
		Outcomes:          cfg.Outcomes,
		Clock:             cfg.Clock,
		IDGen:             cfg.IDGen,
		MinCategoryQuorum: cfg.MinCategoryQuorum,
		DissentFloor:      cfg.DissentFloor,
		MaxPrecedents:     cfg.MaxPrecedents,
		Logger:            cfg.Logger,
		locks:             newVoteLocks(),
	}
}

// CreateVote opens a vote over the full membership. The only rejected input
// is an unknown threshold class; the deadline defaults to 60 minutes.
func (uc LedgerUseCase) CreateVote(ctx context.Context, cmd CreateVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	if _, valid := entities.ParseThresholdClass(string(cmd.Threshold)); !valid {
		logger.Warn("vote create rejected",
			"event", "governance_vote_create_invalid_threshold",
			"module", "governance/council-engine",
			"layer", "application",
			"threshold", string(cmd.Threshold),
		)
		return entities.Vote{}, domainerrors.ErrInvalidThresholdClass
	}

	deadlineMinutes := cmd.DeadlineMinutes
	if deadlineMinutes <= 0 {
		deadlineMinutes = defaultDeadlineMinutes
	}

	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Vote{}, err
	}
	now := uc.now()
	vote := entities.Vote{
		VoteID:         voteID,
		Topic:          strings.TrimSpace(cmd.Topic),
		Description:    strings.TrimSpace(cmd.Description),
		Threshold:      cmd.Threshold,
		Status:         entities.StatusOpen,
		InitiatorID:    strings.TrimSpace(cmd.InitiatorID),
		Domains:        normalizeDomains(cmd.Domains),
		EligibleVoters: uc.Roster.MemberIDs(),
		Ballots:        make(map[string]entities.Ballot),
		CreatedAt:      now,
		Deadline:       now.Add(time.Duration(deadlineMinutes) * time.Minute),
	}
	if err := uc.Votes.SaveVote(ctx, vote); err != nil {
		return entities.Vote{}, err
	}

	uc.recordAudit(ctx, EventVoteCreated, vote.InitiatorID, map[string]any{
		"vote_id":   vote.VoteID,
		"topic":     vote.Topic,
		"threshold": string(vote.Threshold),
		"deadline":  vote.Deadline.Format(time.RFC3339),
	})
	uc.appendEvent(ctx, EventVoteCreated, vote.VoteID, now, map[string]any{
		"vote_id":   vote.VoteID,
		"topic":     vote.Topic,
		"threshold": string(vote.Threshold),
		"initiator": vote.InitiatorID,
		"domains":   vote.Domains,
		"deadline":  vote.Deadline.Format(time.RFC3339),
	})
	logger.Info("vote created",
		"event", "governance_vote_created",
		"module", "governance/council-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"topic", vote.Topic,
		"threshold", string(vote.Threshold),
		"eligible", len(vote.EligibleVoters),
	)
	return vote, nil
}

// CastBallot records a ballot and evaluates early conclusion. A cast against
// an overdue vote closes it as expired before reporting the failure.
func (uc LedgerUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voteID := strings.TrimSpace(cmd.VoteID)
	memberID := strings.TrimSpace(cmd.MemberID)

	release := uc.locks.acquire(voteID)
	defer release()

	vote, err := uc.Votes.GetVote(ctx, voteID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if vote.Status != entities.StatusOpen {
		return CastBallotResult{Vote: vote}, domainerrors.ErrVoteNotOpen
	}
	if _, found := uc.Roster.Member(memberID); !found {
		return CastBallotResult{Vote: vote}, domainerrors.ErrMemberNotFound
	}
	if !vote.IsEligible(memberID) {
		return CastBallotResult{Vote: vote}, domainerrors.ErrMemberNotEligible
	}
	option, valid := entities.ParseBallotOption(string(cmd.Option))
	if !valid {
		return CastBallotResult{Vote: vote}, domainerrors.ErrInvalidBallotOption
	}
	if _, cast := vote.Ballots[memberID]; cast {
		return CastBallotResult{Vote: vote}, domainerrors.ErrBallotAlreadyCast
	}

	now := uc.now()
	if !now.Before(vote.Deadline) {
		// Lazy expiry: the overdue vote closes before the failure is reported.
		expired, closeErr := uc.closeLocked(ctx, vote, entities.StatusExpired)
		if closeErr != nil {
			return CastBallotResult{Vote: vote}, closeErr
		}
		logger.Warn("ballot rejected on overdue vote",
			"event", "governance_ballot_rejected_expired",
			"module", "governance/council-engine",
			"layer", "application",
			"vote_id", vote.VoteID,
			"member_id", memberID,
		)
		return CastBallotResult{Vote: expired, Closed: true}, domainerrors.ErrDeadlinePassed
	}

	vote.Ballots[memberID] = entities.Ballot{
		MemberID:  memberID,
		Option:    option,
		Reasoning: strings.TrimSpace(cmd.Reasoning),
		CastAt:    now,
	}
	if err := uc.Votes.SaveVote(ctx, vote); err != nil {
		return CastBallotResult{}, err
	}

	approve, reject, abstain := vote.Tally()
	uc.recordAudit(ctx, EventBallotCast, memberID, map[string]any{
		"vote_id": vote.VoteID,
		"option":  string(option),
	})
	uc.appendEvent(ctx, EventBallotCast, vote.VoteID, now, map[string]any{
		"vote_id":   vote.VoteID,
		"member_id": memberID,
		"option":    string(option),
		"approve":   approve,
		"reject":    reject,
		"abstain":   abstain,
	})
	logger.Info("ballot cast",
		"event", "governance_ballot_cast",
		"module", "governance/council-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"member_id", memberID,
		"option", string(option),
		"approve", approve,
		"reject", reject,
		"abstain", abstain,
	)

	early, err := rules.EvaluateEarly(vote.Threshold, len(vote.EligibleVoters), approve, reject, abstain)
	if err != nil {
		return CastBallotResult{Vote: vote}, err
	}
	if !early.Decided {
		return CastBallotResult{Vote: vote}, nil
	}

	target := entities.StatusFailed
	if early.Passed {
		target = entities.StatusPassed
	}
	closed, err := uc.closeLocked(ctx, vote, target)
	if err != nil {
		return CastBallotResult{Vote: vote}, err
	}
	return CastBallotResult{Vote: closed, Closed: true}, nil
}

// CloseVote applies an externally requested closure. Calling it on a vote
// that already closed is a no-op failure that leaves the snapshot untouched.
func (uc LedgerUseCase) CloseVote(ctx context.Context, voteID string, status entities.VoteStatus) (entities.Vote, error) {
	switch status {
	case entities.StatusPassed, entities.StatusFailed, entities.StatusExpired:
	default:
		return entities.Vote{}, domainerrors.ErrInvalidCloseStatus
	}

	voteID = strings.TrimSpace(voteID)
	release := uc.locks.acquire(voteID)
	defer release()

	vote, err := uc.Votes.GetVote(ctx, voteID)
	if err != nil {
		return entities.Vote{}, err
	}
	return uc.closeLocked(ctx, vote, status)
}

// ExpireOverdue force-closes every open vote whose deadline has elapsed and
// returns the count closed. Driven by the external scheduler via the worker.
func (uc LedgerUseCase) ExpireOverdue(ctx context.Context) (int, error) {
	open, err := uc.Votes.ListOpenVotes(ctx)
	if err != nil {
		return 0, err
	}
	now := uc.now()

	expired := 0
	for _, candidate := range open {
		if now.Before(candidate.Deadline) {
			continue
		}
		release := uc.locks.acquire(candidate.VoteID)
		vote, err := uc.Votes.GetVote(ctx, candidate.VoteID)
		if err != nil {
			release()
			return expired, err
		}
		if vote.Status != entities.StatusOpen {
			release()
			continue
		}
		if _, err := uc.closeLocked(ctx, vote, entities.StatusExpired); err != nil {
			release()
			return expired, err
		}
		release()
		expired++
	}
	return expired, nil
}

// SubmitOutcome forwards an outcome-quality rating for a closed vote to the
// external credibility collaborator. The engine stores nothing.
func (uc LedgerUseCase) SubmitOutcome(ctx context.Context, voteID string, rating float64) error {
	if rating < -1 || rating > 1 {
		return domainerrors.ErrInvalidOutcomeRating
	}
	vote, err := uc.Votes.GetVote(ctx, strings.TrimSpace(voteID))
	if err != nil {
		return err
	}
	if !vote.Terminal() {
		return domainerrors.ErrVoteStillOpen
	}

	if uc.Outcomes != nil {
		if err := uc.Outcomes.SubmitOutcome(ctx, vote.VoteID, rating); err != nil {
			return err
		}
	}
	uc.recordAudit(ctx, EventOutcomeSubmitted, "external", map[string]any{
		"vote_id": vote.VoteID,
		"rating":  rating,
	})
	uc.appendEvent(ctx, EventOutcomeSubmitted, vote.VoteID, uc.now(), map[string]any{
		"vote_id": vote.VoteID,
		"rating":  rating,
	})
	return nil
}

// closeLocked performs the single closure transition. Callers must hold the
// vote's lock. A terminal vote here outside the overturn path indicates a
// coordination bug upstream and is logged loudly.
func (uc LedgerUseCase) closeLocked(
	ctx context.Context,
	vote entities.Vote,
	requested entities.VoteStatus,
) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	if vote.Status != entities.StatusOpen {
		logger.Error("terminal transition attempted on closed vote",
			"event", "governance_double_close_rejected",
			"module", "governance/council-engine",
			"layer", "application",
			"vote_id", vote.VoteID,
			"status", string(vote.Status),
			"requested", string(requested),
		)
		return vote, domainerrors.ErrVoteNotOpen
	}

	approve, reject, abstain := vote.Tally()
	status := requested
	thresholdMet := requested == entities.StatusPassed

	quorum := rules.EvaluateQuorum(uc.Roster, vote.EligibleVoters, vote.Ballots, uc.minCategoryQuorum())
	logger.Info("quorum evaluated",
		"event", "governance_quorum_evaluated",
		"module", "governance/council-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"met", quorum.Met,
		"count_met", quorum.CountMet,
		"category_met", quorum.CategoryMet,
		"participation", quorum.Participation,
		"required", quorum.Required,
		"represented", pillarsToStrings(quorum.Represented),
		"missing", pillarsToStrings(quorum.Missing),
	)
	if thresholdMet && !quorum.Met {
		// One pillar must not dominate outcomes: a pass without both quorum
		// gates is silently downgraded to a failure.
		status = entities.StatusFailed
		thresholdMet = false
		logger.Warn("pass downgraded on quorum failure",
			"event", "governance_quorum_downgrade",
			"module", "governance/council-engine",
			"layer", "application",
			"vote_id", vote.VoteID,
			"count_met", quorum.CountMet,
			"category_met", quorum.CategoryMet,
		)
	}
	if status != entities.StatusPassed {
		thresholdMet = false
	}

	now := uc.now()
	vote.Status = status
	vote.ClosedAt = &now
	vote.Result = &entities.Result{
		Approve:      approve,
		Reject:       reject,
		Abstain:      abstain,
		ThresholdMet: thresholdMet,
	}
	if err := uc.Votes.SaveVote(ctx, vote); err != nil {
		return entities.Vote{}, err
	}

	uc.recordAudit(ctx, EventVoteClosed, "engine", map[string]any{
		"vote_id":       vote.VoteID,
		"status":        string(status),
		"approve":       approve,
		"reject":        reject,
		"abstain":       abstain,
		"threshold_met": thresholdMet,
	})
	uc.appendEvent(ctx, EventVoteClosed, vote.VoteID, now, map[string]any{
		"vote_id":       vote.VoteID,
		"status":        string(status),
		"approve":       approve,
		"reject":        reject,
		"abstain":       abstain,
		"threshold_met": thresholdMet,
		"quorum_met":    quorum.Met,
	})
	logger.Info("vote closed",
		"event", "governance_vote_closed",
		"module", "governance/council-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"status", string(status),
		"approve", approve,
		"reject", reject,
		"abstain", abstain,
		"threshold_met", thresholdMet,
	)

	uc.recordDissent(ctx, vote)
	return vote, nil
}

func (uc LedgerUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc LedgerUseCase) minCategoryQuorum() int {
	if uc.MinCategoryQuorum <= 0 {
		return defaultMinCategoryQuorum
	}
	return uc.MinCategoryQuorum
}

func (uc LedgerUseCase) dissentFloor() float64 {
	if uc.DissentFloor <= 0 {
		return defaultDissentFloor
	}
	return uc.DissentFloor
}

// recordAudit is a best-effort call into the external audit log. Failure is
// logged and never rolls back the in-memory transition.
func (uc LedgerUseCase) recordAudit(ctx context.Context, kind string, actor string, details map[string]any) {
	if uc.Audit == nil {
		return
	}
	if err := uc.Audit.Record(ctx, kind, actor, "system", details); err != nil {
		application.ResolveLogger(uc.Logger).Warn("audit record failed",
			"event", "governance_audit_record_failed",
			"module", "governance/council-engine",
			"layer", "application",
			"kind", kind,
			"error", err.Error(),
		)
	}
}

// appendEvent writes to the outbox; nil outbox is treated as no-op so pure
// read/test wiring stays simple. Outbox failure is logged, not propagated:
// the event stream is a side channel, not the source of truth.
func (uc LedgerUseCase) appendEvent(
	ctx context.Context,
	eventType string,
	voteID string,
	occurredAt time.Time,
	payload map[string]any,
) {
	if uc.Outbox == nil {
		return
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		application.ResolveLogger(uc.Logger).Warn("event id generation failed",
			"event", "governance_event_id_failed",
			"module", "governance/council-engine",
			"layer", "application",
			"event_type", eventType,
			"error", err.Error(),
		)
		return
	}
	envelope := newGovernanceEnvelope(eventID, eventType, voteID, occurredAt, payload)
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		application.ResolveLogger(uc.Logger).Warn("outbox append failed",
			"event", "governance_outbox_append_failed",
			"module", "governance/council-engine",
			"layer", "application",
			"event_type", eventType,
			"vote_id", voteID,
			"error", err.Error(),
		)
	}
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.TrimSpace(strings.ToLower(domain))
		if domain != "" {
			out = append(out, domain)
		}
	}
	return out
}

func pillarsToStrings(pillars []entities.Pillar) []string {
	out := make([]string, 0, len(pillars))
	for _, pillar := range pillars {
		out = append(out, string(pillar))
	}
	return out
}
