package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/deskwatch/backend/internal/cache"
	"github.com/deskwatch/backend/internal/db"
	"github.com/deskwatch/backend/internal/helpdesk"
	"github.com/deskwatch/backend/internal/models"
)

// DashboardBuilder is the one operation the presentation layer consumes
// from the analytics core, plus the agent-selection listing.
type DashboardBuilder interface {
	BuildDashboard(ctx context.Context, criteria models.Criteria) (models.Dashboard, error)
	AgentList(ctx context.Context) []models.AgentOption
}

type Handler struct {
	Dashboards DashboardBuilder
	Store      *db.Store
	Cache      *cache.Cache
	Validator  *validator.Validate
	Logger     zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Aggregated dashboard
// @Description Fetch, filter, and aggregate helpdesk tickets into chart-ready views
// @Tags dashboard
// @Produce json
// @Param range query string false "today | week | month | quarter" default(week)
// @Param agent query string false "agent id or 'all'" default(all)
// @Param priorities query string false "comma-separated priority codes"
// @Param statuses query string false "comma-separated status codes"
// @Param refresh query bool false "bypass caches"
// @Success 200 {object} models.Dashboard
// @Failure 503 {object} map[string]any
// @Router /api/dashboard [get]
func (h *Handler) Dashboard(c *gin.Context) {
	criteria := models.Criteria{
		TimeRange:    c.DefaultQuery("range", models.RangeWeek),
		AgentID:      c.DefaultQuery("agent", "all"),
		Priorities:   parseCodes(c.Query("priorities")),
		Statuses:     parseCodes(c.Query("statuses")),
		ForceRefresh: boolQuery(c.Query("refresh")),
	}
	if err := h.Validator.Struct(criteria); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid filter criteria", err.Error())
		return
	}

	start := time.Now()
	dashboard, err := h.Dashboards.BuildDashboard(c.Request.Context(), criteria)
	if err != nil {
		h.persistRun(c.Request.Context(), criteria.Range(), "FAILED", nil, time.Since(start))
		if helpdesk.IsThrottled(err) {
			details := gin.H{}
			if hint := helpdesk.ThrottleHint(err); hint > 0 {
				details["wait_seconds"] = int(hint.Seconds())
			}
			writeError(c, http.StatusServiceUnavailable, "RATE_LIMITED", "Helpdesk rate limit reached, try again shortly", details)
			return
		}
		h.Logger.Error().Err(err).Msg("dashboard build failed")
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Helpdesk API unavailable", err.Error())
		return
	}

	if envelope, marshalErr := json.Marshal(dashboard); marshalErr == nil {
		h.persistRun(c.Request.Context(), criteria.Range(), "SUCCESS", envelope, time.Since(start))
	}
	c.JSON(http.StatusOK, dashboard)
}

// @Summary Scored agents for selection
// @Tags agents
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/agents [get]
func (h *Handler) Agents(c *gin.Context) {
	items := h.Dashboards.AgentList(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) RunsLatest(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Run history disabled", nil)
		return
	}
	run, err := h.Store.LatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

// CacheClear empties the shared TTL cache so the next dashboard build
// pulls fresh collections.
func (h *Handler) CacheClear(c *gin.Context) {
	h.Cache.Clear()
	h.Logger.Info().Msg("cache cleared")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) persistRun(ctx context.Context, timeRange, status string, envelope []byte, took time.Duration) {
	if h.Store == nil {
		return
	}
	if err := h.Store.InsertRun(ctx, timeRange, status, envelope, took); err != nil {
		h.Logger.Warn().Err(err).Msg("failed to persist run")
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func parseCodes(value string) []int {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var codes []int
	for _, part := range strings.Split(value, ",") {
		if code, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			codes = append(codes, code)
		}
	}
	return codes
}

func boolQuery(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}
