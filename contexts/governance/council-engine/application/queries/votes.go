package queries

import (
	"context"
	"sort"
	"strings"

	"conclave/contexts/governance/council-engine/domain/entities"
	"conclave/contexts/governance/council-engine/ports"
)

// VoteQueryUseCase serves the read side of the ledger: vote lookups, open
// listings, veto records and the static veto authority table.
type VoteQueryUseCase struct {
	Roster *entities.Roster
	Votes  ports.VoteRepository
}

func (uc VoteQueryUseCase) GetVote(ctx context.Context, voteID string) (entities.Vote, error) {
	return uc.Votes.GetVote(ctx, strings.TrimSpace(voteID))
}

func (uc VoteQueryUseCase) ListOpen(ctx context.Context) ([]entities.Vote, error) {
	votes, err := uc.Votes.ListOpenVotes(ctx)
	if err != nil {
		return nil, err
	}
	sortVotes(votes)
	return votes, nil
}

func (uc VoteQueryUseCase) ListAll(ctx context.Context) ([]entities.Vote, error) {
	votes, err := uc.Votes.ListVotes(ctx)
	if err != nil {
		return nil, err
	}
	sortVotes(votes)
	return votes, nil
}

func (uc VoteQueryUseCase) ListVetoes(ctx context.Context, voteID string) ([]entities.VetoRecord, error) {
	return uc.Votes.ListVetoes(ctx, strings.TrimSpace(voteID))
}

// VetoAuthorityTable exposes the static member-to-domains veto grants.
func (uc VoteQueryUseCase) VetoAuthorityTable(context.Context) map[string][]string {
	return uc.Roster.VetoAuthorityTable()
}

func sortVotes(votes []entities.Vote) {
	sort.Slice(votes, func(i, j int) bool {
		if votes[i].CreatedAt.Equal(votes[j].CreatedAt) {
			return votes[i].VoteID < votes[j].VoteID
		}
		return votes[i].CreatedAt.Before(votes[j].CreatedAt)
	})
}
