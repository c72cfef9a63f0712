package analytics

import (
	"errors"
	"net/http"

	httperr "github.com/bastion-lab/project-bastion/internal/core/errors"
	"github.com/bastion-lab/project-bastion/internal/metrics"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all dashboard API routes on the given router.
func (e *Engine) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/dashboard/metrics", e.HandleMetrics)
	r.GET("/v1/dashboard/hourly-activity", e.HandleHourlyActivity)
	r.GET("/v1/dashboard/weekly-trends", e.HandleWeeklyTrends)
	r.GET("/v1/dashboard/risk-distribution", e.HandleRiskDistribution)
	r.GET("/v1/dashboard/recent-events", e.HandleRecentEvents)
	r.GET("/v1/dashboard/top-blocked-ips", e.HandleTopBlockedIPs)
	r.GET("/v1/dashboard/top-login-times", e.HandleTopLoginHours)
	r.GET("/v1/dashboard/user-frequency", e.HandleTopUsers)
	r.GET("/v1/dashboard/monthly-summary", e.HandleMonthlySummary)
	r.GET("/v1/dashboard/all", e.HandleDashboardData)
}

func respondAnalyticsError(c *gin.Context, err error, message string) {
	if errors.Is(err, ErrInvalidQuery) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   message,
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   message,
		Details:   err.Error(),
	})
}

func bindQuery(c *gin.Context, query interface{}) bool {
	if err := c.ShouldBindQuery(query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return false
	}
	return true
}

// HandleMetrics handles GET /v1/dashboard/metrics
// Returns today's scalar counters in one response.
func (e *Engine) HandleMetrics(c *gin.Context) {
	ctx := c.Request.Context()

	todayLogins, err := e.TodayLoginAttempts(ctx)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute metrics")
		return
	}
	yesterdayLogins, err := e.YesterdayLoginAttempts(ctx)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute metrics")
		return
	}
	blockedIPs, err := e.TodayBlockedIPs(ctx)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute metrics")
		return
	}
	alerts, err := e.TodaySecurityAlerts(ctx)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute metrics")
		return
	}
	whitelist, err := e.ActiveWhitelistEntries(ctx)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute metrics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"today_logins":      todayLogins,
		"yesterday_logins":  yesterdayLogins,
		"today_blocked_ips": blockedIPs,
		"today_alerts":      alerts,
		"active_whitelist":  whitelist,
	})
}

// HandleHourlyActivity handles GET /v1/dashboard/hourly-activity
// Query parameters: days_back
func (e *Engine) HandleHourlyActivity(c *gin.Context) {
	var query struct {
		DaysBack int `form:"days_back"`
	}
	if !bindQuery(c, &query) {
		return
	}

	buckets, err := e.HourlyActivity(c.Request.Context(), query.DaysBack)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute hourly activity")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hourly_activity": buckets})
}

// HandleWeeklyTrends handles GET /v1/dashboard/weekly-trends
func (e *Engine) HandleWeeklyTrends(c *gin.Context) {
	trends, err := e.WeeklyTrends(c.Request.Context())
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute weekly trends")
		return
	}
	c.JSON(http.StatusOK, gin.H{"weekly_trends": trends})
}

// HandleRiskDistribution handles GET /v1/dashboard/risk-distribution
func (e *Engine) HandleRiskDistribution(c *gin.Context) {
	dist, err := e.RiskDistribution(c.Request.Context())
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute risk distribution")
		return
	}
	c.JSON(http.StatusOK, gin.H{"risk_distribution": dist})
}

// HandleRecentEvents handles GET /v1/dashboard/recent-events
// Query parameters: limit, risk_level
func (e *Engine) HandleRecentEvents(c *gin.Context) {
	var query struct {
		Limit     int    `form:"limit"`
		RiskLevel string `form:"risk_level"`
	}
	if !bindQuery(c, &query) {
		return
	}

	events, err := e.RecentEvents(c.Request.Context(), query.Limit, query.RiskLevel)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to fetch recent events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recent_events": events})
}

// HandleTopBlockedIPs handles GET /v1/dashboard/top-blocked-ips
// Query parameters: limit
func (e *Engine) HandleTopBlockedIPs(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if !bindQuery(c, &query) {
		return
	}

	ips, err := e.TopBlockedIPs(c.Request.Context(), query.Limit)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute top blocked IPs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"top_blocked_ips": ips})
}

// HandleTopLoginHours handles GET /v1/dashboard/top-login-times
func (e *Engine) HandleTopLoginHours(c *gin.Context) {
	hours, err := e.TopLoginHours(c.Request.Context())
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute top login times")
		return
	}
	c.JSON(http.StatusOK, gin.H{"top_login_times": hours})
}

// HandleTopUsers handles GET /v1/dashboard/user-frequency
// Query parameters: limit
func (e *Engine) HandleTopUsers(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if !bindQuery(c, &query) {
		return
	}

	users, err := e.TopUsers(c.Request.Context(), query.Limit)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute user frequency")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_frequency": users})
}

// HandleMonthlySummary handles GET /v1/dashboard/monthly-summary
// Query parameters: month_offset
func (e *Engine) HandleMonthlySummary(c *gin.Context) {
	var query struct {
		MonthOffset int `form:"month_offset"`
	}
	if !bindQuery(c, &query) {
		return
	}

	summary, err := e.MonthlySummary(c.Request.Context(), query.MonthOffset)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute monthly summary")
		return
	}
	c.JSON(http.StatusOK, gin.H{"monthly_summary": summary})
}

// HandleDashboardData handles GET /v1/dashboard/all
// Query parameters: days_back (hourly activity only)
func (e *Engine) HandleDashboardData(c *gin.Context) {
	var query struct {
		DaysBack int `form:"days_back"`
	}
	if !bindQuery(c, &query) {
		return
	}

	metrics.DashboardQueries.Inc()

	data, err := e.DashboardData(c.Request.Context(), query.DaysBack)
	if err != nil {
		respondAnalyticsError(c, err, "Failed to compute dashboard data")
		return
	}
	c.JSON(http.StatusOK, data)
}
