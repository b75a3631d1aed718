package service

import (
	"testing"
	"time"

	"github.com/deskwatch/backend/internal/models"
)

func TestClassifyWorkloadBoundaries(t *testing.T) {
	cases := []struct {
		tickets int
		avg     float64
		want    string
	}{
		{0, 5, WorkloadLight},
		{2, 5, WorkloadLight},      // ratio 0.4
		{3, 6, WorkloadModerate},   // ratio exactly 0.5
		{5, 5, WorkloadHeavy},      // ratio exactly 1.0
		{7, 5, WorkloadHeavy},      // ratio 1.4
		{9, 6, WorkloadOverloaded}, // ratio exactly 1.5
		{10, 0, WorkloadLight},
	}
	for _, tc := range cases {
		if got := ClassifyWorkload(tc.tickets, tc.avg); got != tc.want {
			t.Fatalf("ClassifyWorkload(%d, %.1f) = %s, want %s", tc.tickets, tc.avg, got, tc.want)
		}
	}
}

func TestAgentAtTeamAverageIsHeavy(t *testing.T) {
	// 500 tickets over 100 scored agents gives an average of 5; an agent
	// holding exactly 5 sits on the Heavy boundary, not Moderate.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	agents := make([]models.Agent, 100)
	for i := range agents {
		agents[i] = models.Agent{ID: int64(i + 1), Name: "a"}
	}
	tickets := make([]models.Ticket, 500)
	for i := range tickets {
		assignee := int64(i%100 + 1)
		tickets[i] = models.Ticket{
			ID:          int64(i),
			Status:      models.StatusOpen,
			ResponderID: &assignee,
			CreatedAt:   now.Add(-time.Hour),
			UpdatedAt:   now,
		}
	}

	cards := AgentScorecards(tickets, agents, nil)
	if len(cards) != 100 {
		t.Fatalf("expected 100 scorecards, got %d", len(cards))
	}
	for _, card := range cards {
		if card.Tickets == 5 && card.Workload != WorkloadHeavy {
			t.Fatalf("agent at exactly the average must be Heavy, got %s", card.Workload)
		}
	}
}

func TestFunnelPercentages(t *testing.T) {
	now := time.Now()
	tickets := []models.Ticket{
		{Status: models.StatusOpen, CreatedAt: now},
		{Status: models.StatusPending, CreatedAt: now},
		{Status: models.StatusResolved, CreatedAt: now},
		{Status: models.StatusClosed, CreatedAt: now},
	}
	funnel := Funnel(tickets)
	if funnel[0].Name != "Submitted" || funnel[0].Percent != 100 {
		t.Fatalf("submitted must always be 100%%, got %+v", funnel[0])
	}
	if funnel[1].Count != 2 || funnel[1].Percent != 50 {
		t.Fatalf("unexpected active stage: %+v", funnel[1])
	}
	if funnel[2].Count != 2 || funnel[2].Percent != 50 {
		t.Fatalf("unexpected resolved stage: %+v", funnel[2])
	}
	for _, stage := range funnel {
		if stage.Percent > 100 {
			t.Fatalf("no stage may exceed submitted: %+v", stage)
		}
	}

	empty := Funnel(nil)
	if empty[0].Percent != 0 {
		t.Fatalf("empty funnel reports zero, got %+v", empty[0])
	}
}

func TestSLABreachCountsOnlyActiveTickets(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastDue := now.Add(-2 * time.Hour)

	active := models.Ticket{ID: 1, Status: models.StatusOpen, DueBy: &pastDue, CreatedAt: now.Add(-24 * time.Hour), UpdatedAt: now}
	stats := Topline([]models.Ticket{active}, 0, now)
	if stats.SLABreaches != 1 {
		t.Fatalf("expected exactly one breach, got %d", stats.SLABreaches)
	}

	resolved := active
	resolved.Status = models.StatusResolved
	stats = Topline([]models.Ticket{resolved}, 0, now)
	if stats.SLABreaches != 0 {
		t.Fatalf("resolved ticket must not count as breach, got %d", stats.SLABreaches)
	}
}

func TestToplineCounters(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastDue := now.Add(-time.Hour)
	assignee := int64(3)

	tickets := []models.Ticket{
		{ID: 1, Status: models.StatusOpen, ResponderID: &assignee, CreatedAt: now.Add(-3 * time.Hour), UpdatedAt: now},
		{ID: 2, Status: models.StatusPending, FirstResponseDue: &pastDue, CreatedAt: now.Add(-3 * time.Hour), UpdatedAt: now}, // overdue + unassigned
		{ID: 3, Status: models.StatusResolved, CreatedAt: now.Add(-30 * time.Hour), UpdatedAt: now.Add(-time.Hour)},          // resolved today
		{ID: 4, Status: models.StatusClosed, CreatedAt: now.AddDate(0, 0, -5), UpdatedAt: now.AddDate(0, 0, -2)},             // resolved earlier
	}

	stats := Topline(tickets, 12, now)
	if stats.OpenTickets != 2 {
		t.Fatalf("expected 2 open, got %d", stats.OpenTickets)
	}
	if stats.ResolvedToday != 1 {
		t.Fatalf("expected 1 resolved today, got %d", stats.ResolvedToday)
	}
	if stats.Overdue != 1 {
		t.Fatalf("expected 1 overdue, got %d", stats.Overdue)
	}
	if stats.Unassigned != 1 {
		t.Fatalf("expected 1 unassigned, got %d", stats.Unassigned)
	}
	if stats.Agents != 12 {
		t.Fatalf("expected agent count passthrough, got %d", stats.Agents)
	}
}

func TestStatusAndPriorityBreakdowns(t *testing.T) {
	tickets := []models.Ticket{
		{Status: models.StatusOpen, Priority: models.PriorityLow},
		{Status: models.StatusOpen, Priority: models.PriorityUrgent},
		{Status: models.StatusResolved, Priority: models.PriorityUrgent},
	}

	status := StatusBreakdown(tickets)
	if status[0].Name != "Open" || status[0].Count != 2 {
		t.Fatalf("expected Open first, got %+v", status)
	}

	priority := PriorityBreakdown(tickets)
	want := []string{"Urgent", "High", "Medium", "Low"}
	for i, name := range want {
		if priority[i].Name != name {
			t.Fatalf("severity order broken at %d: %+v", i, priority)
		}
	}
	if priority[0].Count != 2 || priority[3].Count != 1 {
		t.Fatalf("unexpected priority counts: %+v", priority)
	}
}

func TestCategoryBreakdownResolvesDepartments(t *testing.T) {
	departments := []models.Department{{ID: 10, Name: "Finance"}, {ID: 11, Name: "Sales"}}
	contacts := []models.Contact{
		{ID: 1, DepartmentIDs: []int64{10, 11}}, // first department wins
		{ID: 2, DepartmentIDs: []int64{11}},
	}
	tickets := []models.Ticket{
		{RequesterID: 1},
		{RequesterID: 1},
		{RequesterID: 2},
		{RequesterID: 99},
	}

	categories := CategoryBreakdown(tickets, contacts, departments)
	if categories[0].Name != "Finance" || categories[0].Count != 2 {
		t.Fatalf("expected Finance first, got %+v", categories)
	}
	found := false
	for _, c := range categories {
		if c.Name == UnknownDepartment && c.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unknown department bucket, got %+v", categories)
	}
}

func TestResolutionHistogramBuckets(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mk := func(age time.Duration) models.Ticket {
		return models.Ticket{Status: models.StatusResolved, CreatedAt: now.Add(-age), UpdatedAt: now}
	}
	tickets := []models.Ticket{
		mk(30 * time.Minute),
		mk(2 * time.Hour),
		mk(10 * time.Hour),
		mk(2 * 24 * time.Hour),
		mk(5 * 24 * time.Hour),
		{Status: models.StatusOpen, CreatedAt: now.Add(-time.Hour), UpdatedAt: now}, // not resolved
	}

	hist := ResolutionHistogram(tickets)
	wantLabels := []string{"<1h", "1-4h", "4-24h", "1-3d", ">3d"}
	for i, label := range wantLabels {
		if hist[i].Label != label || hist[i].Count != 1 {
			t.Fatalf("unexpected bucket %d: %+v", i, hist[i])
		}
	}
}

func TestTrendBucketShapes(t *testing.T) {
	now := time.Date(2025, 8, 20, 15, 0, 0, 0, time.UTC)
	tickets := []models.Ticket{
		{CreatedAt: now.Add(-2 * time.Hour)},
		{CreatedAt: now.Add(-20 * time.Hour)},
		{CreatedAt: now.AddDate(0, 0, -3)},
		{CreatedAt: now.AddDate(0, -1, 0)},
	}

	today := Trend(tickets, models.RangeToday, now)
	if len(today) != 6 {
		t.Fatalf("expected 6 buckets for today, got %d", len(today))
	}
	week := Trend(tickets, models.RangeWeek, now)
	if len(week) != 7 {
		t.Fatalf("expected 7 buckets for week, got %d", len(week))
	}
	month := Trend(tickets, models.RangeMonth, now)
	if len(month) != 4 {
		t.Fatalf("expected 4 buckets for month, got %d", len(month))
	}
	quarter := Trend(tickets, models.RangeQuarter, now)
	if len(quarter) != 3 {
		t.Fatalf("expected 3 buckets for quarter, got %d", len(quarter))
	}

	for i := 1; i < len(week); i++ {
		if !week[i].Start.After(week[i-1].Start) {
			t.Fatalf("week buckets out of order: %+v", week)
		}
	}

	total := 0
	for _, b := range today {
		total += b.Count
	}
	if total != 2 {
		t.Fatalf("expected 2 tickets inside the 24h window, got %d", total)
	}
}

func TestScorecardOutlierExclusion(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assignee := int64(1)
	agents := []models.Agent{{ID: 1, FirstName: "Dana", LastName: "Reyes"}}

	tickets := []models.Ticket{
		// normal resolution: 2h
		{ID: 1, Status: models.StatusResolved, ResponderID: &assignee, CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now},
		// implausible 45-day resolution: counts toward volume, not averages
		{ID: 2, Status: models.StatusResolved, ResponderID: &assignee, CreatedAt: now.Add(-45 * 24 * time.Hour), UpdatedAt: now},
	}

	cards := AgentScorecards(tickets, agents, nil)
	if len(cards) != 1 {
		t.Fatalf("expected one card, got %d", len(cards))
	}
	card := cards[0]
	if card.Tickets != 2 || card.Resolved != 2 {
		t.Fatalf("outlier must still count toward volume: %+v", card)
	}
	if card.AvgResolutionTime != "2.0h" {
		t.Fatalf("outlier leaked into the average: %s", card.AvgResolutionTime)
	}
	if card.Name != "Dana Reyes" {
		t.Fatalf("expected composed display name, got %s", card.Name)
	}
}

func TestScorecardResponseTimePrefersSampledConversations(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assignee := int64(1)
	agents := []models.Agent{{ID: 1, Name: "Sam"}}
	tickets := []models.Ticket{
		{ID: 1, Status: models.StatusResolved, ResponderID: &assignee, CreatedAt: now.Add(-10 * time.Hour), UpdatedAt: now},
	}

	sampled := map[int64]time.Duration{1: 30 * time.Minute}
	cards := AgentScorecards(tickets, agents, sampled)
	if cards[0].AvgResponseTime != "30m" {
		t.Fatalf("expected sampled response time, got %s", cards[0].AvgResponseTime)
	}

	// without a sample the coarse estimate applies
	cards = AgentScorecards(tickets, agents, nil)
	if cards[0].AvgResponseTime != "10.0h" {
		t.Fatalf("expected coarse estimate, got %s", cards[0].AvgResponseTime)
	}
}

func TestScorecardOrdering(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	a1, a2, a3 := int64(1), int64(2), int64(3)
	agents := []models.Agent{{ID: 1, Name: "one"}, {ID: 2, Name: "two"}, {ID: 3, Name: "three"}}

	mk := func(id *int64, n int, status int) []models.Ticket {
		out := make([]models.Ticket, n)
		for i := range out {
			out[i] = models.Ticket{ID: int64(i), Status: status, ResponderID: id, CreatedAt: now.Add(-time.Hour), UpdatedAt: now}
		}
		return out
	}

	var tickets []models.Ticket
	tickets = append(tickets, mk(&a1, 3, models.StatusOpen)...)
	tickets = append(tickets, mk(&a2, 5, models.StatusResolved)...)
	tickets = append(tickets, mk(&a3, 5, models.StatusOpen)...)

	cards := AgentScorecards(tickets, agents, nil)
	if cards[0].Tickets != 5 || cards[1].Tickets != 5 || cards[2].Tickets != 3 {
		t.Fatalf("expected volume-descending order, got %+v", cards)
	}
	// agent two resolves everything, so the tie goes to them
	if cards[0].AgentID != 2 {
		t.Fatalf("expected overall score to break the tie, got agent %d", cards[0].AgentID)
	}
}

func TestScoredAgentsSelection(t *testing.T) {
	departments := []models.Department{{ID: 5, Name: "IT"}, {ID: 6, Name: "HR"}}
	groups := []models.Group{{ID: 1, Name: "IT", AgentIDs: []int64{4}}}
	agents := []models.Agent{
		{ID: 1, DepartmentIDs: []int64{5}},
		{ID: 2, Department: "it"},
		{ID: 3, DepartmentIDs: []int64{6}},
		{ID: 4},
		{ID: 5},
	}

	scored := ScoredAgents(agents, departments, groups, "IT")
	if len(scored) != 3 {
		t.Fatalf("expected 3 scored agents, got %d", len(scored))
	}
	ids := map[int64]bool{}
	for _, a := range scored {
		ids[a.ID] = true
	}
	if !ids[1] || !ids[2] || !ids[4] {
		t.Fatalf("unexpected scored set: %+v", scored)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "n/a"},
		{42 * time.Minute, "42m"},
		{90 * time.Minute, "1.5h"},
		{36 * time.Hour, "1.5d"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Fatalf("FormatDuration(%s) = %s, want %s", tc.d, got, tc.want)
		}
	}
}

func TestWorkloadHistogram(t *testing.T) {
	cards := []models.AgentScorecard{
		{Workload: WorkloadLight},
		{Workload: WorkloadHeavy},
		{Workload: WorkloadHeavy},
	}
	hist := WorkloadHistogram(cards)
	if len(hist) != 4 {
		t.Fatalf("expected all four classes, got %d", len(hist))
	}
	if hist[0].Name != WorkloadLight || hist[0].Count != 1 {
		t.Fatalf("unexpected light bucket: %+v", hist[0])
	}
	if hist[2].Name != WorkloadHeavy || hist[2].Count != 2 {
		t.Fatalf("unexpected heavy bucket: %+v", hist[2])
	}
}
