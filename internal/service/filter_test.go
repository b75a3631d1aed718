package service

import (
	"testing"
	"time"

	"github.com/deskwatch/backend/internal/models"
)

func i64(v int64) *int64 { return &v }

func TestApplyFiltersIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tickets := []models.Ticket{
		{ID: 1, Subject: "vpn down", Status: models.StatusOpen, Priority: models.PriorityHigh, CreatedAt: now.Add(-time.Hour)},
		{ID: 2, Subject: "onboarding new hire", Status: models.StatusOpen, Priority: models.PriorityLow, CreatedAt: now.Add(-time.Hour)},
		{ID: 3, Subject: "laptop broken", Status: models.StatusResolved, Priority: models.PriorityUrgent, CreatedAt: now.Add(-48 * time.Hour)},
	}
	criteria := models.Criteria{TimeRange: models.RangeWeek}

	first := ApplyFilters(tickets, criteria, DefaultExcludedKeywords, now)
	second := ApplyFilters(tickets, criteria, DefaultExcludedKeywords, now)

	if len(first.Tickets) != len(second.Tickets) {
		t.Fatalf("expected identical output, got %d then %d", len(first.Tickets), len(second.Tickets))
	}
	for i := range first.Tickets {
		if first.Tickets[i].ID != second.Tickets[i].ID {
			t.Fatalf("output differs at %d", i)
		}
	}
	if len(tickets) != 3 || tickets[1].Subject != "onboarding new hire" {
		t.Fatalf("input collection was mutated")
	}
}

func TestWorkspaceResolutionPrecedence(t *testing.T) {
	mixed := []models.Ticket{
		{ID: 1, WorkspaceID: i64(1)},
		{ID: 2, WorkspaceID: i64(2)},
		{ID: 3, WorkspaceID: i64(3)},
		{ID: 4, WorkspaceID: i64(3)},
	}
	kept := filterWorkspace(mixed)
	if len(kept) != 1 || kept[0].ID != 2 {
		t.Fatalf("expected workspace 2 to win, got %+v", kept)
	}

	noTwo := []models.Ticket{
		{ID: 1, WorkspaceID: i64(1)},
		{ID: 3, WorkspaceID: i64(3)},
		{ID: 4, WorkspaceID: i64(3)},
	}
	kept = filterWorkspace(noTwo)
	if len(kept) != 1 || kept[0].ID != 1 {
		t.Fatalf("expected workspace 1 to win without 2, got %+v", kept)
	}

	neither := []models.Ticket{
		{ID: 3, WorkspaceID: i64(3)},
		{ID: 4, WorkspaceID: i64(3)},
		{ID: 5, WorkspaceID: i64(7)},
	}
	kept = filterWorkspace(neither)
	if len(kept) != 2 || kept[0].ID != 3 {
		t.Fatalf("expected most-populated workspace, got %+v", kept)
	}

	single := []models.Ticket{{ID: 1, WorkspaceID: i64(9)}, {ID: 2, WorkspaceID: i64(9)}}
	if kept = filterWorkspace(single); len(kept) != 2 {
		t.Fatalf("single workspace must pass through, got %d", len(kept))
	}

	none := []models.Ticket{{ID: 1}, {ID: 2}}
	if kept = filterWorkspace(none); len(kept) != 2 {
		t.Fatalf("no workspace ids must pass through, got %d", len(kept))
	}
}

func TestKeywordExclusionMatchesAllTextFields(t *testing.T) {
	tickets := []models.Ticket{
		{ID: 1, Subject: "ONBOARDING request"},
		{ID: 2, Category: "Offboarding"},
		{ID: 3, Description: "please handle the new hire setup"},
		{ID: 4, Tags: []string{"Leaver"}},
		{ID: 5, SubCategory: "Account Creation"},
		{ID: 6, Subject: "printer jam"},
	}
	kept := filterKeywords(tickets, DefaultExcludedKeywords)
	if len(kept) != 1 || kept[0].ID != 6 {
		t.Fatalf("expected only the printer ticket to survive, got %+v", kept)
	}
}

func TestAgentFilterUsesAssigneePrecedence(t *testing.T) {
	tickets := []models.Ticket{
		{ID: 1, ResponderID: i64(7)},
		{ID: 2, AgentID: i64(7)}, // falls back to agent field
		{ID: 3, ResponderID: i64(8), OwnerID: i64(7)}, // responder wins over owner
		{ID: 4},
	}
	kept := filterAgent(tickets, "7")
	if len(kept) != 2 || kept[0].ID != 1 || kept[1].ID != 2 {
		t.Fatalf("unexpected agent filter result: %+v", kept)
	}

	if kept = filterAgent(tickets, "all"); len(kept) != 4 {
		t.Fatalf("'all' must keep everything, got %d", len(kept))
	}
}

func TestRangeStart(t *testing.T) {
	now := time.Date(2025, 8, 20, 15, 30, 0, 0, time.UTC)

	if got := RangeStart(models.RangeToday, now); got != now.Add(-24*time.Hour) {
		t.Fatalf("unexpected today start: %s", got)
	}
	if got := RangeStart(models.RangeWeek, now); got != now.AddDate(0, 0, -7) {
		t.Fatalf("unexpected week start: %s", got)
	}
	if got := RangeStart(models.RangeMonth, now); got != time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected month start: %s", got)
	}
	if got := RangeStart(models.RangeQuarter, now); got != time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected quarter start: %s", got)
	}
}

func TestPriorityAndStatusFilters(t *testing.T) {
	now := time.Now()
	tickets := []models.Ticket{
		{ID: 1, Status: models.StatusOpen, Priority: models.PriorityUrgent, CreatedAt: now},
		{ID: 2, Status: models.StatusResolved, Priority: models.PriorityLow, CreatedAt: now},
		{ID: 3, Status: models.StatusPending, Priority: models.PriorityUrgent, CreatedAt: now},
	}
	criteria := models.Criteria{
		TimeRange:  models.RangeWeek,
		Priorities: []int{models.PriorityUrgent},
		Statuses:   []int{models.StatusOpen},
	}
	result := ApplyFilters(tickets, criteria, nil, now)
	if len(result.Tickets) != 1 || result.Tickets[0].ID != 1 {
		t.Fatalf("expected only the open urgent ticket, got %+v", result.Tickets)
	}

	if len(result.Stages) != 7 {
		t.Fatalf("expected a trace entry per stage, got %d", len(result.Stages))
	}
	if result.Stages[0].Name != "input" || result.Stages[0].Count != 3 {
		t.Fatalf("unexpected first stage: %+v", result.Stages[0])
	}
	if last := result.Stages[len(result.Stages)-1]; last.Name != "status" || last.Count != 1 {
		t.Fatalf("unexpected last stage: %+v", last)
	}
}
