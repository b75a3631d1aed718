package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskwatch/backend/internal/fetch"
	"github.com/deskwatch/backend/internal/models"
)

// DashboardService runs one aggregation pass: fetch, filter, aggregate.
// The fetcher owns the process-wide cache and rate limiter; the service
// itself holds no mutable state and is safe to share.
type DashboardService struct {
	Fetcher           *fetch.Fetcher
	Logger            zerolog.Logger
	ScoringDepartment string
	ExcludedKeywords  []string

	Now func() time.Time
}

func (s *DashboardService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DashboardService) keywords() []string {
	if len(s.ExcludedKeywords) > 0 {
		return s.ExcludedKeywords
	}
	return DefaultExcludedKeywords
}

// BuildDashboard produces the aggregated result envelope for the given
// criteria. Ticket fetch failures propagate; reference data degrades to
// empty collections upstream of this call.
func (s *DashboardService) BuildDashboard(ctx context.Context, criteria models.Criteria) (models.Dashboard, error) {
	now := s.now()

	tickets, err := s.Fetcher.FetchTickets(ctx, criteria.ForceRefresh)
	if err != nil {
		return models.Dashboard{}, err
	}

	agents := s.Fetcher.FetchAgents(ctx, criteria.ForceRefresh)
	departments := s.Fetcher.FetchDepartments(ctx, criteria.ForceRefresh)
	groups := s.Fetcher.FetchGroups(ctx, criteria.ForceRefresh)
	contacts := s.Fetcher.FetchContacts(ctx, criteria.ForceRefresh)

	filtered := ApplyFilters(tickets, criteria, s.keywords(), now)
	responseTimes := s.Fetcher.SampleFirstResponses(ctx, filtered.Tickets)

	scored := ScoredAgents(agents, departments, groups, s.ScoringDepartment)
	cards := AgentScorecards(filtered.Tickets, scored, responseTimes)

	s.Logger.Info().
		Int("fetched", len(tickets)).
		Int("filtered", len(filtered.Tickets)).
		Int("agents", len(scored)).
		Str("range", criteria.Range()).
		Msg("dashboard built")

	return models.Dashboard{
		GeneratedAt:   now,
		TimeRange:     criteria.Range(),
		FilteredCount: len(filtered.Tickets),
		Status:        StatusBreakdown(filtered.Tickets),
		Priority:      PriorityBreakdown(filtered.Tickets),
		Category:      CategoryBreakdown(filtered.Tickets, contacts, departments),
		Funnel:        Funnel(filtered.Tickets),
		Trend:         Trend(filtered.Tickets, criteria.Range(), now),
		Resolution:    ResolutionHistogram(filtered.Tickets),
		Agents:        cards,
		Workload:      WorkloadHistogram(cards),
		Stats:         Topline(filtered.Tickets, len(scored), now),
		Stages:        filtered.Stages,
	}, nil
}

// AgentList returns the scored-agent subset for selection surfaces.
func (s *DashboardService) AgentList(ctx context.Context) []models.AgentOption {
	agents := s.Fetcher.FetchAgents(ctx, false)
	departments := s.Fetcher.FetchDepartments(ctx, false)
	groups := s.Fetcher.FetchGroups(ctx, false)

	scored := ScoredAgents(agents, departments, groups, s.ScoringDepartment)
	options := make([]models.AgentOption, 0, len(scored))
	for _, a := range scored {
		options = append(options, models.AgentOption{
			ID:         a.ID,
			Name:       a.DisplayName(),
			Department: a.Department,
			Active:     a.Active,
		})
	}
	return options
}
