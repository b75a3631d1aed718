package models

import (
	"strconv"
	"strings"
	"time"
)

// Helpdesk status codes. 8 and 9 are the two custom in-progress statuses
// configured on the upstream workspace.
const (
	StatusOpen       = 2
	StatusPending    = 3
	StatusResolved   = 4
	StatusClosed     = 5
	StatusInProgress = 8
	StatusOnHold     = 9
)

const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
	PriorityUrgent = 4
)

var statusNames = map[int]string{
	StatusOpen:       "Open",
	StatusPending:    "Pending",
	StatusResolved:   "Resolved",
	StatusClosed:     "Closed",
	StatusInProgress: "In Progress",
	StatusOnHold:     "On Hold",
}

var priorityNames = map[int]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
	PriorityUrgent: "Urgent",
}

func StatusName(code int) string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	return "Unknown"
}

func PriorityName(code int) string {
	if name, ok := priorityNames[code]; ok {
		return name
	}
	return "Unknown"
}

func IsActiveStatus(code int) bool {
	switch code {
	case StatusOpen, StatusPending, StatusInProgress, StatusOnHold:
		return true
	}
	return false
}

func IsResolvedStatus(code int) bool {
	return code == StatusResolved || code == StatusClosed
}

type Ticket struct {
	ID               int64      `json:"id"`
	Subject          string     `json:"subject"`
	Description      string     `json:"description_text,omitempty"`
	Status           int        `json:"status"`
	Priority         int        `json:"priority"`
	RequesterID      int64      `json:"requester_id"`
	ResponderID      *int64     `json:"responder_id,omitempty"`
	AgentID          *int64     `json:"agent_id,omitempty"`
	AssignedAgentID  *int64     `json:"assigned_agent_id,omitempty"`
	OwnerID          *int64     `json:"owner_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DueBy            *time.Time `json:"due_by,omitempty"`
	FirstResponseDue *time.Time `json:"fr_due_by,omitempty"`
	WorkspaceID      *int64     `json:"workspace_id,omitempty"`
	Category         string     `json:"category,omitempty"`
	SubCategory      string     `json:"sub_category,omitempty"`
	ItemCategory     string     `json:"item_category,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	FirstRespondedAt *time.Time `json:"first_responded_at,omitempty"`
}

// assigneeAccessors is the precedence order for the multiple optional
// assignment fields: primary responder, then agent, then assigned agent,
// then owner. First present wins.
var assigneeAccessors = []func(Ticket) *int64{
	func(t Ticket) *int64 { return t.ResponderID },
	func(t Ticket) *int64 { return t.AgentID },
	func(t Ticket) *int64 { return t.AssignedAgentID },
	func(t Ticket) *int64 { return t.OwnerID },
}

func (t Ticket) AssigneeID() (int64, bool) {
	for _, accessor := range assigneeAccessors {
		if id := accessor(t); id != nil {
			return *id, true
		}
	}
	return 0, false
}

type Agent struct {
	ID            int64   `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Name          string  `json:"name,omitempty"`
	Active        bool    `json:"active"`
	Department    string  `json:"department,omitempty"`
	DepartmentIDs []int64 `json:"department_ids,omitempty"`
	GroupIDs      []int64 `json:"group_ids,omitempty"`
	Role          string  `json:"role,omitempty"`
}

func (a Agent) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return "Agent " + strconv.FormatInt(a.ID, 10)
	}
	return name
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Contact struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	DepartmentIDs []int64 `json:"department_ids,omitempty"`
}

type Group struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	AgentIDs []int64 `json:"agent_ids,omitempty"`
}

type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Private   bool      `json:"private"`
	Incoming  bool      `json:"incoming"`
	CreatedAt time.Time `json:"created_at"`
}

// Time ranges accepted by the dashboard.
const (
	RangeToday   = "today"
	RangeWeek    = "week"
	RangeMonth   = "month"
	RangeQuarter = "quarter"
)

// Criteria is the filter input for one aggregation pass. AgentID is a
// stringified agent id or "all".
type Criteria struct {
	TimeRange    string `form:"range" validate:"omitempty,oneof=today week month quarter"`
	AgentID      string `form:"agent"`
	Priorities   []int  `form:"priorities" validate:"omitempty,dive,min=1,max=4"`
	Statuses     []int  `form:"statuses" validate:"omitempty,dive,min=1,max=99"`
	ForceRefresh bool   `form:"refresh"`
}

func (c Criteria) Range() string {
	if c.TimeRange == "" {
		return RangeWeek
	}
	return c.TimeRange
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type FunnelStage struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

type TrendBucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

type HistogramBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type AgentScorecard struct {
	AgentID           int64  `json:"agent_id"`
	Name              string `json:"name"`
	Department        string `json:"department"`
	Tickets           int    `json:"tickets"`
	Resolved          int    `json:"resolved"`
	ResolutionRate    int    `json:"resolution_rate"`
	AvgResponseTime   string `json:"avg_response_time"`
	AvgResolutionTime string `json:"avg_resolution_time"`
	SLACompliance     int    `json:"sla_compliance"`
	Workload          string `json:"workload"`
	QualityScore      int    `json:"quality_score"`
	EfficiencyScore   int    `json:"efficiency_score"`
	OverallScore      int    `json:"overall_score"`
}

type ToplineStats struct {
	OpenTickets   int `json:"open_tickets"`
	ResolvedToday int `json:"resolved_today"`
	SLABreaches   int `json:"sla_breaches"`
	Overdue       int `json:"overdue"`
	Unassigned    int `json:"unassigned"`
	Agents        int `json:"agents"`
}

type FilterStage struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dashboard is the aggregated result envelope. Built fresh on every pass.
type Dashboard struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	TimeRange     string            `json:"time_range"`
	FilteredCount int               `json:"filtered_count"`
	Status        []NameCount       `json:"status"`
	Priority      []NameCount       `json:"priority"`
	Category      []NameCount       `json:"category"`
	Funnel        []FunnelStage     `json:"funnel"`
	Trend         []TrendBucket     `json:"trend"`
	Resolution    []HistogramBucket `json:"resolution"`
	Agents        []AgentScorecard  `json:"agents"`
	Workload      []NameCount       `json:"workload"`
	Stats         ToplineStats      `json:"stats"`
	Stages        []FilterStage     `json:"stages,omitempty"`
}

type AgentOption struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Active     bool   `json:"active"`
}
