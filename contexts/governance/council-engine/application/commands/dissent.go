package commands

import (
	"context"
	"sort"

	application "conclave/contexts/governance/council-engine/application"
	"conclave/contexts/governance/council-engine/domain/entities"
	"conclave/contexts/governance/council-engine/domain/rules"
)

const (
	// minPrecedentSimilarity filters noise matches out of precedent search.
	minPrecedentSimilarity = 0.2
	defaultMaxPrecedents   = 3
)

// recordDissent runs once per closure. When the winning side's share of
// active (non-abstaining) ballots falls under the consensus floor, it
// synthesizes a report naming every minority voter with their reasoning kept
// verbatim, links topically similar past reports, and stores the result.
// Failure is logged and never unwinds the closure it follows.
func (uc LedgerUseCase) recordDissent(ctx context.Context, vote entities.Vote) {
	logger := application.ResolveLogger(uc.Logger)

	approve, reject, _ := vote.Tally()
	active := approve + reject
	if active == 0 {
		return
	}
	prevailing := entities.OptionReject
	if approve > reject {
		prevailing = entities.OptionApprove
	}
	strength := float64(max(approve, reject)) / float64(active)
	if strength >= uc.dissentFloor() {
		return
	}

	dissenters := make([]entities.Dissenter, 0)
	for _, memberID := range vote.EligibleVoters {
		ballot, cast := vote.Ballots[memberID]
		if !cast || ballot.Option == entities.OptionAbstain || ballot.Option == prevailing {
			continue
		}
		pillar := entities.Pillar("")
		if member, found := uc.Roster.Member(memberID); found {
			pillar = member.Pillar
		}
		dissenters = append(dissenters, entities.Dissenter{
			MemberID:  memberID,
			Pillar:    pillar,
			Option:    ballot.Option,
			Reasoning: ballot.Reasoning,
		})
	}

	report := entities.DissentReport{
		VoteID:            vote.VoteID,
		Topic:             vote.Topic,
		Decision:          vote.Status,
		ConsensusStrength: strength,
		Domains:           append([]string(nil), vote.Domains...),
		Dissenters:        dissenters,
		RecordedAt:        uc.now(),
	}
	report.Precedents = uc.findPrecedents(ctx, report)

	if err := uc.Votes.SaveDissentReport(ctx, report); err != nil {
		logger.Warn("dissent report save failed",
			"event", "governance_dissent_save_failed",
			"module", "governance/council-engine",
			"layer", "application",
			"vote_id", vote.VoteID,
			"error", err.Error(),
		)
		return
	}

	uc.recordAudit(ctx, EventDissentRecorded, "engine", map[string]any{
		"vote_id":            vote.VoteID,
		"consensus_strength": strength,
		"dissenters":         len(dissenters),
	})
	uc.appendEvent(ctx, EventDissentRecorded, vote.VoteID, report.RecordedAt, map[string]any{
		"vote_id":            vote.VoteID,
		"decision":           string(vote.Status),
		"consensus_strength": strength,
		"dissenters":         len(dissenters),
		"precedents":         len(report.Precedents),
	})
	logger.Info("dissent recorded",
		"event", "governance_dissent_recorded",
		"module", "governance/council-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"consensus_strength", strength,
		"dissenters", len(dissenters),
		"precedents", len(report.Precedents),
	)
}

// findPrecedents ranks every prior dissent report against the new one and
// keeps the closest few above the similarity floor.
func (uc LedgerUseCase) findPrecedents(ctx context.Context, report entities.DissentReport) []entities.Precedent {
	logger := application.ResolveLogger(uc.Logger)
	prior, err := uc.Votes.ListDissentReports(ctx)
	if err != nil {
		logger.Warn("precedent search failed",
			"event", "governance_precedent_search_failed",
			"module", "governance/council-engine",
			"layer", "application",
			"vote_id", report.VoteID,
			"error", err.Error(),
		)
		return nil
	}

	precedents := make([]entities.Precedent, 0)
	for _, past := range prior {
		if past.VoteID == report.VoteID {
			continue
		}
		similarity := rules.DissentSimilarity(report.Topic, past.Topic, report.Domains, past.Domains)
		if similarity < minPrecedentSimilarity {
			continue
		}
		precedents = append(precedents, entities.Precedent{
			VoteID:     past.VoteID,
			Topic:      past.Topic,
			Similarity: similarity,
		})
	}
	sort.Slice(precedents, func(i, j int) bool {
		return precedents[i].Similarity > precedents[j].Similarity
	})

	limit := uc.MaxPrecedents
	if limit <= 0 {
		limit = defaultMaxPrecedents
	}
	if len(precedents) > limit {
		precedents = precedents[:limit]
	}
	return precedents
}
