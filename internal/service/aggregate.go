package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/deskwatch/backend/internal/models"
)

const (
	// Implausible outliers excluded from averages. The ticket still
	// counts toward volume.
	maxResolutionTime = 30 * 24 * time.Hour
	minResponseTime   = time.Minute
	maxResponseTime   = 7 * 24 * time.Hour

	firstCallWindow = 4 * time.Hour
	reopenWindow    = 7 * 24 * time.Hour

	UnknownDepartment = "Unknown Department"
)

const (
	WorkloadLight      = "Light"
	WorkloadModerate   = "Moderate"
	WorkloadHeavy      = "Heavy"
	WorkloadOverloaded = "Overloaded"
)

func StatusBreakdown(tickets []models.Ticket) []models.NameCount {
	counts := map[string]int{}
	for _, t := range tickets {
		counts[models.StatusName(t.Status)]++
	}
	return sortedByCount(counts)
}

// PriorityBreakdown reports all four priorities in fixed severity order,
// most severe first.
func PriorityBreakdown(tickets []models.Ticket) []models.NameCount {
	counts := map[int]int{}
	for _, t := range tickets {
		counts[t.Priority]++
	}
	order := []int{models.PriorityUrgent, models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	result := make([]models.NameCount, 0, len(order))
	for _, p := range order {
		result = append(result, models.NameCount{Name: models.PriorityName(p), Count: counts[p]})
	}
	return result
}

// CategoryBreakdown groups tickets by the requester's department,
// resolved through the contact record's first department id. Tickets
// whose requester cannot be resolved land in a literal unknown bucket.
func CategoryBreakdown(tickets []models.Ticket, contacts []models.Contact, departments []models.Department) []models.NameCount {
	deptNames := map[int64]string{}
	for _, d := range departments {
		deptNames[d.ID] = d.Name
	}
	contactDept := map[int64]string{}
	for _, c := range contacts {
		if len(c.DepartmentIDs) == 0 {
			continue
		}
		if name, ok := deptNames[c.DepartmentIDs[0]]; ok {
			contactDept[c.ID] = name
		}
	}

	counts := map[string]int{}
	for _, t := range tickets {
		name, ok := contactDept[t.RequesterID]
		if !ok {
			name = UnknownDepartment
		}
		counts[name]++
	}
	return sortedByCount(counts)
}

func sortedByCount(counts map[string]int) []models.NameCount {
	result := make([]models.NameCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, models.NameCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Funnel reduces the filtered set to Submitted, Active, and Resolved
// stages, each with an integer percentage of Submitted.
func Funnel(tickets []models.Ticket) []models.FunnelStage {
	submitted := len(tickets)
	active, resolved := 0, 0
	for _, t := range tickets {
		if models.IsActiveStatus(t.Status) {
			active++
		}
		if models.IsResolvedStatus(t.Status) {
			resolved++
		}
	}
	percent := func(n int) int {
		if submitted == 0 {
			return 0
		}
		return int(math.Round(float64(n) / float64(submitted) * 100))
	}
	return []models.FunnelStage{
		{Name: "Submitted", Count: submitted, Percent: percent(submitted)},
		{Name: "Active", Count: active, Percent: percent(active)},
		{Name: "Resolved", Count: resolved, Percent: percent(resolved)},
	}
}

// Trend buckets ticket creation over the active range: six 4-hour buckets
// for today, seven weekday buckets for week, four week buckets for month,
// three month buckets for quarter. Oldest bucket first.
func Trend(tickets []models.Ticket, timeRange string, now time.Time) []models.TrendBucket {
	type window struct {
		label string
		start time.Time
		end   time.Time
	}
	var windows []window

	switch timeRange {
	case models.RangeToday:
		start := now.Add(-24 * time.Hour)
		for i := 0; i < 6; i++ {
			s := start.Add(time.Duration(i) * 4 * time.Hour)
			windows = append(windows, window{label: s.Format("15:04"), start: s, end: s.Add(4 * time.Hour)})
		}
	case models.RangeMonth:
		start := RangeStart(timeRange, now)
		for i := 0; i < 4; i++ {
			s := start.AddDate(0, 0, i*7)
			e := s.AddDate(0, 0, 7)
			if i == 3 {
				e = now.AddDate(0, 0, 1)
			}
			windows = append(windows, window{label: fmt.Sprintf("Week %d", i+1), start: s, end: e})
		}
	case models.RangeQuarter:
		start := RangeStart(timeRange, now)
		for i := 0; i < 3; i++ {
			s := start.AddDate(0, i, 0)
			windows = append(windows, window{label: s.Format("Jan"), start: s, end: s.AddDate(0, 1, 0)})
		}
	default: // week
		for i := 6; i >= 0; i-- {
			day := now.AddDate(0, 0, -i)
			s := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
			windows = append(windows, window{label: s.Format("Mon"), start: s, end: s.AddDate(0, 0, 1)})
		}
	}

	buckets := make([]models.TrendBucket, len(windows))
	for i, w := range windows {
		buckets[i] = models.TrendBucket{Label: w.label, Start: w.start}
	}
	for _, t := range tickets {
		for i, w := range windows {
			if !t.CreatedAt.Before(w.start) && t.CreatedAt.Before(w.end) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

var resolutionBuckets = []struct {
	label string
	max   time.Duration
}{
	{"<1h", time.Hour},
	{"1-4h", 4 * time.Hour},
	{"4-24h", 24 * time.Hour},
	{"1-3d", 3 * 24 * time.Hour},
	{">3d", math.MaxInt64},
}

// ResolutionHistogram buckets time-to-resolution for resolved tickets.
func ResolutionHistogram(tickets []models.Ticket) []models.HistogramBucket {
	result := make([]models.HistogramBucket, len(resolutionBuckets))
	for i, b := range resolutionBuckets {
		result[i].Label = b.label
	}
	for _, t := range tickets {
		if !models.IsResolvedStatus(t.Status) {
			continue
		}
		d := t.UpdatedAt.Sub(t.CreatedAt)
		if d < 0 {
			continue
		}
		for i, b := range resolutionBuckets {
			if d < b.max {
				result[i].Count++
				break
			}
		}
	}
	return result
}

// ScoredAgents restricts the agent pool to members of the configured
// scoring department: the department-id list is checked first, then the
// free-text department field, then membership in a group carrying the
// department's name.
func ScoredAgents(agents []models.Agent, departments []models.Department, groups []models.Group, scoringDept string) []models.Agent {
	deptIDs := map[int64]bool{}
	for _, d := range departments {
		if strings.EqualFold(d.Name, scoringDept) {
			deptIDs[d.ID] = true
		}
	}
	groupMembers := map[int64]bool{}
	for _, g := range groups {
		if !strings.EqualFold(g.Name, scoringDept) {
			continue
		}
		for _, id := range g.AgentIDs {
			groupMembers[id] = true
		}
	}

	result := make([]models.Agent, 0, len(agents))
	for _, a := range agents {
		member := strings.EqualFold(a.Department, scoringDept) || groupMembers[a.ID]
		for _, id := range a.DepartmentIDs {
			if deptIDs[id] {
				member = true
				break
			}
		}
		if member {
			result = append(result, a)
		}
	}
	return result
}

// ClassifyWorkload maps an agent's ticket count against the team average.
// Band boundaries are inclusive on the lower side: a ratio of exactly 1.0
// is Heavy, not Moderate.
func ClassifyWorkload(ticketCount int, teamAverage float64) string {
	if teamAverage == 0 || ticketCount == 0 {
		return WorkloadLight
	}
	ratio := float64(ticketCount) / teamAverage
	switch {
	case ratio < 0.5:
		return WorkloadLight
	case ratio < 1.0:
		return WorkloadModerate
	case ratio < 1.5:
		return WorkloadHeavy
	default:
		return WorkloadOverloaded
	}
}

type agentTally struct {
	tickets        int
	resolved       int
	firstCall      int
	escalated      int
	reopened       int
	resolutionSum  time.Duration
	resolutionN    int
	responseSum    time.Duration
	responseN      int
	slaMet         int
	slaTotal       int
	urgentTotal    int
	urgentResolved int
	highTotal      int
	highResolved   int
	peakResolved   int
}

func inPeakHours(ts time.Time) bool {
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	h := ts.Hour()
	return (h >= 9 && h < 12) || (h >= 13 && h < 17)
}

func (a *agentTally) add(t models.Ticket, responseTimes map[int64]time.Duration) {
	a.tickets++
	resolved := models.IsResolvedStatus(t.Status)
	resolution := t.UpdatedAt.Sub(t.CreatedAt)

	if resolved {
		a.resolved++
		if resolution >= 0 && resolution <= maxResolutionTime {
			a.resolutionSum += resolution
			a.resolutionN++
		}
		if resolution >= 0 && resolution <= firstCallWindow {
			a.firstCall++
		}
		if inPeakHours(t.UpdatedAt) {
			a.peakResolved++
		}
	} else {
		if t.Priority == models.PriorityUrgent {
			a.escalated++
		}
		if resolution > reopenWindow {
			a.reopened++
		}
	}

	if response, ok := responseDuration(t, responseTimes); ok {
		if response >= minResponseTime && response <= maxResponseTime {
			a.responseSum += response
			a.responseN++
		}
	}

	if t.DueBy != nil {
		a.slaTotal++
		if !t.UpdatedAt.After(*t.DueBy) {
			a.slaMet++
		}
	}

	switch t.Priority {
	case models.PriorityUrgent:
		a.urgentTotal++
		if resolved {
			a.urgentResolved++
		}
	case models.PriorityHigh:
		a.highTotal++
		if resolved {
			a.highResolved++
		}
	}
}

// responseDuration picks the best available first-response estimate:
// the sampled conversation time, then the ticket's own stats timestamp,
// then the coarse updated-minus-created fallback for resolved tickets.
func responseDuration(t models.Ticket, sampled map[int64]time.Duration) (time.Duration, bool) {
	if d, ok := sampled[t.ID]; ok {
		return d, true
	}
	if t.FirstRespondedAt != nil {
		return t.FirstRespondedAt.Sub(t.CreatedAt), true
	}
	if models.IsResolvedStatus(t.Status) {
		return t.UpdatedAt.Sub(t.CreatedAt), true
	}
	return 0, false
}

func rate(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// FormatDuration renders an average as minutes, hours, or days by
// magnitude.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(math.Round(d.Minutes())))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
}

// AgentScorecards builds per-agent performance cards for the scored
// subset, classifies workloads against the team average, and orders by
// raw volume with the overall score breaking ties.
func AgentScorecards(tickets []models.Ticket, scored []models.Agent, responseTimes map[int64]time.Duration) []models.AgentScorecard {
	tallies := map[int64]*agentTally{}
	for _, a := range scored {
		tallies[a.ID] = &agentTally{}
	}
	for _, t := range tickets {
		assignee, ok := t.AssigneeID()
		if !ok {
			continue
		}
		if tally, ok := tallies[assignee]; ok {
			tally.add(t, responseTimes)
		}
	}

	teamAverage := 0.0
	if len(scored) > 0 {
		teamAverage = float64(len(tickets)) / float64(len(scored))
	}

	cards := make([]models.AgentScorecard, 0, len(scored))
	for _, a := range scored {
		tally := tallies[a.ID]

		fcrRate := rate(tally.firstCall, tally.resolved)
		escRate := rate(tally.escalated, tally.tickets)
		reopenRate := rate(tally.reopened, tally.tickets)
		slaRate := rate(tally.slaMet, tally.slaTotal)
		resolutionRate := rate(tally.resolved, tally.tickets)
		urgentRate := rate(tally.urgentResolved, tally.urgentTotal)
		highRate := rate(tally.highResolved, tally.highTotal)

		quality := int(math.Round(0.4*float64(fcrRate))) +
			int(math.Round(0.3*float64(100-escRate))) +
			int(math.Round(0.3*float64(100-reopenRate)))
		efficiency := int(math.Round(0.5*float64(slaRate) + 0.3*float64(resolutionRate) + 0.2*float64(urgentRate)))
		overall := int(math.Round(0.4*float64(quality) + 0.4*float64(efficiency) + 0.2*float64(highRate)))

		var avgResponse, avgResolution time.Duration
		if tally.responseN > 0 {
			avgResponse = tally.responseSum / time.Duration(tally.responseN)
		}
		if tally.resolutionN > 0 {
			avgResolution = tally.resolutionSum / time.Duration(tally.resolutionN)
		}

		cards = append(cards, models.AgentScorecard{
			AgentID:           a.ID,
			Name:              a.DisplayName(),
			Department:        a.Department,
			Tickets:           tally.tickets,
			Resolved:          tally.resolved,
			ResolutionRate:    resolutionRate,
			AvgResponseTime:   FormatDuration(avgResponse),
			AvgResolutionTime: FormatDuration(avgResolution),
			SLACompliance:     slaRate,
			Workload:          ClassifyWorkload(tally.tickets, teamAverage),
			QualityScore:      quality,
			EfficiencyScore:   efficiency,
			OverallScore:      overall,
		})
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Tickets != cards[j].Tickets {
			return cards[i].Tickets > cards[j].Tickets
		}
		return cards[i].OverallScore > cards[j].OverallScore
	})
	return cards
}

// WorkloadHistogram counts scorecards per workload class.
func WorkloadHistogram(cards []models.AgentScorecard) []models.NameCount {
	counts := map[string]int{}
	for _, c := range cards {
		counts[c.Workload]++
	}
	order := []string{WorkloadLight, WorkloadModerate, WorkloadHeavy, WorkloadOverloaded}
	result := make([]models.NameCount, 0, len(order))
	for _, class := range order {
		result = append(result, models.NameCount{Name: class, Count: counts[class]})
	}
	return result
}

// ToplineStats derives the headline counters from the filtered set.
func Topline(tickets []models.Ticket, scoredAgents int, now time.Time) models.ToplineStats {
	stats := models.ToplineStats{Agents: scoredAgents}
	for _, t := range tickets {
		active := models.IsActiveStatus(t.Status)
		if active {
			stats.OpenTickets++
			if t.DueBy != nil && t.DueBy.Before(now) {
				stats.SLABreaches++
			}
			if t.FirstResponseDue != nil && t.FirstResponseDue.Before(now) {
				stats.Overdue++
			}
			if _, ok := t.AssigneeID(); !ok {
				stats.Unassigned++
			}
		}
		if models.IsResolvedStatus(t.Status) {
			y1, m1, d1 := t.UpdatedAt.In(now.Location()).Date()
			y2, m2, d2 := now.Date()
			if y1 == y2 && m1 == m2 && d1 == d2 {
				stats.ResolvedToday++
			}
		}
	}
	return stats
}
