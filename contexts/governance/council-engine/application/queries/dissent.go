package queries

import (
	"context"
	"sort"
	"strings"

	"conclave/contexts/governance/council-engine/domain/entities"
	"conclave/contexts/governance/council-engine/ports"
)

// DissentQueryUseCase serves read access to preserved minority reasoning.
type DissentQueryUseCase struct {
	Votes ports.VoteRepository
}

func (uc DissentQueryUseCase) Get(ctx context.Context, voteID string) (entities.DissentReport, error) {
	return uc.Votes.GetDissentReport(ctx, strings.TrimSpace(voteID))
}

func (uc DissentQueryUseCase) ListAll(ctx context.Context) ([]entities.DissentReport, error) {
	reports, err := uc.Votes.ListDissentReports(ctx)
	if err != nil {
		return nil, err
	}
	sortReports(reports)
	return reports, nil
}

// ByDomain returns reports whose affected domains include the given one.
func (uc DissentQueryUseCase) ByDomain(ctx context.Context, domain string) ([]entities.DissentReport, error) {
	domain = strings.TrimSpace(strings.ToLower(domain))
	reports, err := uc.Votes.ListDissentReports(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]entities.DissentReport, 0)
	for _, report := range reports {
		for _, affected := range report.Domains {
			if strings.EqualFold(affected, domain) {
				matched = append(matched, report)
				break
			}
		}
	}
	sortReports(matched)
	return matched, nil
}

func sortReports(reports []entities.DissentReport) {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].RecordedAt.Equal(reports[j].RecordedAt) {
			return reports[i].VoteID < reports[j].VoteID
		}
		return reports[i].RecordedAt.Before(reports[j].RecordedAt)
	})
}
