package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/deskwatch/backend/internal/models"
)

// DefaultExcludedKeywords marks account-lifecycle requests that are
// tracked outside the operational dashboard. Heuristic text matching;
// deployments override it via config.
var DefaultExcludedKeywords = []string{
	"onboarding",
	"offboarding",
	"new hire",
	"new starter",
	"leaver",
	"termination",
	"account creation",
	"account deletion",
	"account deactivation",
}

// FilterResult carries the narrowed ticket set plus a per-stage trace for
// the debug surface.
type FilterResult struct {
	Tickets []models.Ticket
	Stages  []models.FilterStage
}

// ApplyFilters narrows tickets by workspace, exclusion keywords, agent,
// time window, priority, and status, in that order. Pure: the input slice
// is never mutated.
func ApplyFilters(tickets []models.Ticket, criteria models.Criteria, excludeKeywords []string, now time.Time) FilterResult {
	result := FilterResult{}
	stage := func(name string, kept []models.Ticket) []models.Ticket {
		result.Stages = append(result.Stages, models.FilterStage{Name: name, Count: len(kept)})
		return kept
	}

	current := stage("input", tickets)
	current = stage("workspace", filterWorkspace(current))
	current = stage("keywords", filterKeywords(current, excludeKeywords))
	current = stage("agent", filterAgent(current, criteria.AgentID))
	current = stage("time_range", filterTimeRange(current, criteria.Range(), now))
	current = stage("priority", filterCodes(current, criteria.Priorities, func(t models.Ticket) int { return t.Priority }))
	current = stage("status", filterCodes(current, criteria.Statuses, func(t models.Ticket) int { return t.Status }))

	result.Tickets = current
	return result
}

// filterWorkspace picks one target workspace when tickets span several:
// workspace 2 wins, then 1, then the most populated. A homogeneous
// collection passes through untouched.
func filterWorkspace(tickets []models.Ticket) []models.Ticket {
	counts := map[int64]int{}
	for _, t := range tickets {
		if t.WorkspaceID != nil {
			counts[*t.WorkspaceID]++
		}
	}
	if len(counts) <= 1 {
		return tickets
	}

	var target int64
	switch {
	case counts[2] > 0:
		target = 2
	case counts[1] > 0:
		target = 1
	default:
		best := -1
		for id, n := range counts {
			if n > best || (n == best && id < target) {
				best = n
				target = id
			}
		}
	}

	kept := make([]models.Ticket, 0, counts[target])
	for _, t := range tickets {
		if t.WorkspaceID != nil && *t.WorkspaceID == target {
			kept = append(kept, t)
		}
	}
	return kept
}

func filterKeywords(tickets []models.Ticket, keywords []string) []models.Ticket {
	if len(keywords) == 0 {
		return tickets
	}
	kept := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !matchesAnyKeyword(t, keywords) {
			kept = append(kept, t)
		}
	}
	return kept
}

func matchesAnyKeyword(t models.Ticket, keywords []string) bool {
	fields := []string{t.Subject, t.Category, t.SubCategory, t.ItemCategory, t.Description}
	fields = append(fields, t.Tags...)
	for _, field := range fields {
		if field == "" {
			continue
		}
		lower := strings.ToLower(field)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func filterAgent(tickets []models.Ticket, agentID string) []models.Ticket {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" || strings.EqualFold(agentID, "all") {
		return tickets
	}
	id, err := strconv.ParseInt(agentID, 10, 64)
	if err != nil {
		return tickets
	}
	kept := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if assignee, ok := t.AssigneeID(); ok && assignee == id {
			kept = append(kept, t)
		}
	}
	return kept
}

// RangeStart computes the inclusive window start for a time range. There
// is no end bound; windows always run until now.
func RangeStart(timeRange string, now time.Time) time.Time {
	switch timeRange {
	case models.RangeToday:
		return now.Add(-24 * time.Hour)
	case models.RangeWeek:
		return now.AddDate(0, 0, -7)
	case models.RangeMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case models.RangeQuarter:
		quarterMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		return time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, now.Location())
	}
	return now.AddDate(0, 0, -7)
}

func filterTimeRange(tickets []models.Ticket, timeRange string, now time.Time) []models.Ticket {
	start := RangeStart(timeRange, now)
	kept := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !t.CreatedAt.Before(start) {
			kept = append(kept, t)
		}
	}
	return kept
}

func filterCodes(tickets []models.Ticket, allowed []int, code func(models.Ticket) int) []models.Ticket {
	if len(allowed) == 0 {
		return tickets
	}
	set := map[int]bool{}
	for _, c := range allowed {
		set[c] = true
	}
	kept := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if set[code(t)] {
			kept = append(kept, t)
		}
	}
	return kept
}
