package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "conclave/contexts/governance/council-engine/application"
	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
	"conclave/contexts/governance/council-engine/ports"
)

const (
	panelMin = 3
	panelMax = 5

	defaultEmergencyDeadlineMinutes = 5
	maxEmergencyDeadlineMinutes     = 15

	defaultOverturnWindow = 24 * time.Hour
)

// CreateEmergencyVoteCommand opens an urgent vote decided by a small
// domain-relevant panel under unanimity.
type CreateEmergencyVoteCommand struct {
	Topic           string
	Description     string
	UrgencyReason   string
	InitiatorID     string
	Domains         []string
	DeadlineMinutes int
}

// RequestOverturnCommand asks the full membership to reconsider a passed
// emergency decision inside the overturn window.
type RequestOverturnCommand struct {
	EmergencyVoteID string
	RequesterID     string
	Reason          string
}

// EmergencyUseCase wraps the ledger with the fast-track path: panel
// selection, short deadlines, forced unanimity and the bounded overturn
// procedure.
type EmergencyUseCase struct {
	Ledger         LedgerUseCase
	Scorer         ports.RelevanceScorer
	FallbackPanel  []string
	OverturnWindow time.Duration
	Logger         *slog.Logger
}

// CreateEmergencyVote selects a 3-5 member panel, clamps the deadline to at
// most 15 minutes, and opens a unanimity vote restricted to that panel.
// Metadata with the 24-hour overturn deadline is attached at creation.
func (uc EmergencyUseCase) CreateEmergencyVote(
	ctx context.Context,
	cmd CreateEmergencyVoteCommand,
) (entities.Vote, entities.EmergencyMeta, error) {
	logger := application.ResolveLogger(uc.Logger)

	panel, err := uc.selectPanel(ctx, cmd.Topic, cmd.Domains)
	if err != nil {
		return entities.Vote{}, entities.EmergencyMeta{}, err
	}

	deadlineMinutes := cmd.DeadlineMinutes
	if deadlineMinutes <= 0 {
		deadlineMinutes = defaultEmergencyDeadlineMinutes
	}
	if deadlineMinutes > maxEmergencyDeadlineMinutes {
		deadlineMinutes = maxEmergencyDeadlineMinutes
	}

	voteID, err := uc.Ledger.IDGen.NewID(ctx)
	if err != nil {
		return entities.Vote{}, entities.EmergencyMeta{}, err
	}
	now := uc.Ledger.now()
	vote := entities.Vote{
		VoteID:         voteID,
		Topic:          strings.TrimSpace(cmd.Topic),
		Description:    strings.TrimSpace(cmd.Description),
		Threshold:      entities.ThresholdUnanimity,
		Status:         entities.StatusOpen,
		InitiatorID:    strings.TrimSpace(cmd.InitiatorID),
		Domains:        normalizeDomains(cmd.Domains),
		EligibleVoters: panel,
		Ballots:        make(map[string]entities.Ballot),
		Emergency:      true,
		CreatedAt:      now,
		Deadline:       now.Add(time.Duration(deadlineMinutes) * time.Minute),
	}
	if err := uc.Ledger.Votes.SaveVote(ctx, vote); err != nil {
		return entities.Vote{}, entities.EmergencyMeta{}, err
	}

	meta := entities.EmergencyMeta{
		VoteID:           vote.VoteID,
		Panel:            panel,
		UrgencyReason:    strings.TrimSpace(cmd.UrgencyReason),
		NotifiedAt:       now,
		OverturnDeadline: now.Add(uc.overturnWindow()),
	}
	if err := uc.Ledger.Votes.SaveEmergencyMeta(ctx, meta); err != nil {
		return entities.Vote{}, entities.EmergencyMeta{}, err
	}

	uc.Ledger.recordAudit(ctx, EventEmergencyCreated, vote.InitiatorID, map[string]any{
		"vote_id":           vote.VoteID,
		"topic":             vote.Topic,
		"panel":             panel,
		"urgency_reason":    meta.UrgencyReason,
		"deadline":          vote.Deadline.Format(time.RFC3339),
		"overturn_deadline": meta.OverturnDeadline.Format(time.RFC3339),
	})
	// Full membership is notified through this event; NotifiedAt marks the
	// moment it was queued.
	uc.Ledger.appendEvent(ctx, EventEmergencyCreated, vote.VoteID, now, map[string]any{
		"vote_id":           vote.VoteID,
		"topic":             vote.Topic,
		"panel":             panel,
		"urgency_reason":    meta.UrgencyReason,
		"deadline":          vote.Deadline.Format(time.RFC3339),
		"overturn_deadline": meta.OverturnDeadline.Format(time.RFC3339),
	})
	logger.Info("emergency vote created",
		"event", "governance_emergency_created",
		"module", "governance/council-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"topic", vote.Topic,
		"panel_size", len(panel),
		"deadline_minutes", deadlineMinutes,
	)
	return vote, meta, nil
}

// CastEmergencyVote restricts ballots to panel members and otherwise behaves
// like an ordinary cast, including unanimity early conclusion.
func (uc EmergencyUseCase) CastEmergencyVote(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	vote, err := uc.Ledger.Votes.GetVote(ctx, strings.TrimSpace(cmd.VoteID))
	if err != nil {
		return CastBallotResult{}, err
	}
	if !vote.Emergency {
		return CastBallotResult{}, domainerrors.ErrNotEmergencyVote
	}
	if !vote.IsEligible(strings.TrimSpace(cmd.MemberID)) {
		return CastBallotResult{Vote: vote}, domainerrors.ErrNotPanelMember
	}
	return uc.Ledger.CastBallot(ctx, cmd)
}

// RequestOverturn opens a brand-new full-membership supermajority vote tied
// to a passed emergency decision. One overturn per emergency vote; requests
// at or past the 24-hour deadline are rejected.
func (uc EmergencyUseCase) RequestOverturn(ctx context.Context, cmd RequestOverturnCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	emergencyVoteID := strings.TrimSpace(cmd.EmergencyVoteID)

	release := uc.Ledger.locks.acquire(emergencyVoteID)
	defer release()

	meta, err := uc.Ledger.Votes.GetEmergencyMeta(ctx, emergencyVoteID)
	if err != nil {
		return entities.Vote{}, err
	}
	original, err := uc.Ledger.Votes.GetVote(ctx, emergencyVoteID)
	if err != nil {
		return entities.Vote{}, err
	}
	if original.Status != entities.StatusPassed {
		return entities.Vote{}, domainerrors.ErrNotOverturnable
	}
	now := uc.Ledger.now()
	if !meta.OverturnWindowOpen(now) {
		return entities.Vote{}, domainerrors.ErrOverturnWindowClosed
	}
	if meta.OverturnVoteID != "" {
		return entities.Vote{}, domainerrors.ErrOverturnExists
	}

	// The overturn vote runs for whatever remains of the window.
	remaining := int(meta.OverturnDeadline.Sub(now) / time.Minute)
	if remaining < 1 {
		remaining = 1
	}
	overturn, err := uc.Ledger.CreateVote(ctx, CreateVoteCommand{
		Topic:           "Overturn emergency decision: " + original.Topic,
		Description:     strings.TrimSpace(cmd.Reason),
		Threshold:       entities.ThresholdSupermajority,
		DeadlineMinutes: remaining,
		InitiatorID:     strings.TrimSpace(cmd.RequesterID),
		Domains:         original.Domains,
	})
	if err != nil {
		return entities.Vote{}, err
	}

	meta.OverturnVoteID = overturn.VoteID
	if err := uc.Ledger.Votes.SaveEmergencyMeta(ctx, meta); err != nil {
		return entities.Vote{}, err
	}

	uc.Ledger.recordAudit(ctx, EventOverturnRequested, cmd.RequesterID, map[string]any{
		"emergency_vote_id": emergencyVoteID,
		"overturn_vote_id":  overturn.VoteID,
		"reason":            strings.TrimSpace(cmd.Reason),
	})
	uc.Ledger.appendEvent(ctx, EventOverturnRequested, emergencyVoteID, now, map[string]any{
		"emergency_vote_id": emergencyVoteID,
		"overturn_vote_id":  overturn.VoteID,
		"requester_id":      strings.TrimSpace(cmd.RequesterID),
	})
	logger.Info("overturn requested",
		"event", "governance_overturn_requested",
		"module", "governance/council-engine",
		"layer", "application",
		"emergency_vote_id", emergencyVoteID,
		"overturn_vote_id", overturn.VoteID,
	)
	return overturn, nil
}

// CompleteOverturn is invoked when an overturn vote closes. A successful
// supermajority relabels the original emergency vote as overturned; this is
// the single permitted post-terminal mutation in the ledger.
func (uc EmergencyUseCase) CompleteOverturn(ctx context.Context, overturnVoteID string) (bool, error) {
	logger := application.ResolveLogger(uc.Logger)

	meta, err := uc.Ledger.Votes.GetEmergencyMetaByOverturnVote(ctx, strings.TrimSpace(overturnVoteID))
	if err != nil {
		return false, err
	}
	overturn, err := uc.Ledger.Votes.GetVote(ctx, meta.OverturnVoteID)
	if err != nil {
		return false, err
	}
	if !overturn.Terminal() {
		return false, domainerrors.ErrOverturnNotClosed
	}
	if overturn.Result == nil || !overturn.Result.ThresholdMet {
		return false, nil
	}

	release := uc.Ledger.locks.acquire(meta.VoteID)
	defer release()

	original, err := uc.Ledger.Votes.GetVote(ctx, meta.VoteID)
	if err != nil {
		return false, err
	}
	if original.Status != entities.StatusPassed {
		return false, domainerrors.ErrNotOverturnable
	}

	now := uc.Ledger.now()
	original.Status = entities.StatusOverturned
	if err := uc.Ledger.Votes.SaveVote(ctx, original); err != nil {
		return false, err
	}
	meta.Overturned = true
	if err := uc.Ledger.Votes.SaveEmergencyMeta(ctx, meta); err != nil {
		return false, err
	}

	uc.Ledger.recordAudit(ctx, EventVoteOverturned, "engine", map[string]any{
		"emergency_vote_id": original.VoteID,
		"overturn_vote_id":  overturn.VoteID,
	})
	uc.Ledger.appendEvent(ctx, EventVoteOverturned, original.VoteID, now, map[string]any{
		"emergency_vote_id": original.VoteID,
		"overturn_vote_id":  overturn.VoteID,
	})
	logger.Info("emergency decision overturned",
		"event", "governance_vote_overturned",
		"module", "governance/council-engine",
		"layer", "application",
		"emergency_vote_id", original.VoteID,
		"overturn_vote_id", overturn.VoteID,
	)
	return true, nil
}

// ListOverturnable returns emergency metadata for passed decisions whose
// overturn window is still open and which have no pending overturn vote.
func (uc EmergencyUseCase) ListOverturnable(ctx context.Context) ([]entities.EmergencyMeta, error) {
	all, err := uc.Ledger.Votes.ListEmergencyMeta(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.Ledger.now()

	eligible := make([]entities.EmergencyMeta, 0)
	for _, meta := range all {
		if meta.Overturned || meta.OverturnVoteID != "" || !meta.OverturnWindowOpen(now) {
			continue
		}
		vote, err := uc.Ledger.Votes.GetVote(ctx, meta.VoteID)
		if err != nil {
			return nil, err
		}
		if vote.Status != entities.StatusPassed {
			continue
		}
		eligible = append(eligible, meta)
	}
	return eligible, nil
}

// selectPanel asks the relevance scorer for domain-relevant members, always
// seats ethics-oversight veto holders, pads with the configured fallback
// members, and clamps the result to the 3-5 range.
func (uc EmergencyUseCase) selectPanel(ctx context.Context, topic string, domains []string) ([]string, error) {
	logger := application.ResolveLogger(uc.Logger)
	roster := uc.Ledger.Roster

	var ranked []string
	if uc.Scorer != nil {
		candidates, err := uc.Scorer.RankMembers(ctx, topic, normalizeDomains(domains))
		if err != nil {
			logger.Warn("relevance scorer unavailable; using fallback panel",
				"event", "governance_relevance_scorer_failed",
				"module", "governance/council-engine",
				"layer", "application",
				"error", err.Error(),
			)
		} else {
			ranked = candidates
		}
	}

	panel := make([]string, 0, panelMax)
	seen := make(map[string]bool)
	add := func(memberID string) {
		memberID = strings.TrimSpace(memberID)
		if memberID == "" || seen[memberID] || len(panel) >= panelMax {
			return
		}
		if _, found := roster.Member(memberID); !found {
			return
		}
		seen[memberID] = true
		panel = append(panel, memberID)
	}

	// Oversight seats come first so relevance ranking can never crowd out the
	// ethics veto holders.
	for _, memberID := range roster.VetoHolders(entities.DomainEthicsOversight) {
		add(memberID)
	}
	for _, memberID := range ranked {
		add(memberID)
	}
	for _, memberID := range uc.FallbackPanel {
		add(memberID)
	}
	if len(panel) < panelMin {
		for _, memberID := range roster.MemberIDs() {
			add(memberID)
			if len(panel) >= panelMin {
				break
			}
		}
	}
	if len(panel) < panelMin {
		return nil, domainerrors.ErrInvalidPanelSize
	}
	return panel, nil
}

func (uc EmergencyUseCase) overturnWindow() time.Duration {
	if uc.OverturnWindow <= 0 {
		return defaultOverturnWindow
	}
	return uc.OverturnWindow
}
