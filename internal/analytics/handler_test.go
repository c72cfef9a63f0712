package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(engine *Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	engine.RegisterRoutes(r)
	return r
}

func TestHandleMetrics(t *testing.T) {
	today := dayStart(fixedNow)
	logins := &fakeLoginStore{events: []model.LoginEvent{
		login(today.Add(time.Hour), true),
		login(today.Add(-time.Hour), true),
	}}
	access := &fakeAccessStore{activeAllowed: 3}
	engine, _ := newTestEngine(logins, nil, access, nil)
	router := newTestRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/metrics", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body["today_logins"])
	require.Equal(t, 1, body["yesterday_logins"])
	require.Equal(t, 3, body["active_whitelist"])
	require.Equal(t, 0, body["today_blocked_ips"])
}

func TestHandleHourlyActivityValidation(t *testing.T) {
	engine, _ := newTestEngine(nil, nil, nil, nil)
	router := newTestRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/hourly-activity?days_back=-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "invalid_query", body["error_type"])
}

func TestHandleHourlyActivityReturns24Buckets(t *testing.T) {
	engine, _ := newTestEngine(nil, nil, nil, nil)
	router := newTestRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/hourly-activity", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		HourlyActivity []HourlyBucket `json:"hourly_activity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.HourlyActivity, HoursPerDay)
}

func TestHandleRecentEventsRiskFilter(t *testing.T) {
	today := dayStart(fixedNow)
	events := &fakeSecurityStore{events: []model.SecurityEvent{
		{ID: "e1", EventType: model.EventSystemEvent, RiskLevel: model.RiskLow,
			IPAddress: "10.0.0.1", Timestamp: today.Add(time.Hour)},
		{ID: "e2", EventType: model.EventUnauthorizedAccess, RiskLevel: model.RiskCritical,
			IPAddress: "203.0.113.7", Timestamp: today.Add(2 * time.Hour)},
	}}
	engine, _ := newTestEngine(nil, events, nil, nil)
	router := newTestRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/recent-events?risk_level=critical", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		RecentEvents []EventSummary `json:"recent_events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.RecentEvents, 1)
	require.Equal(t, "e2", body.RecentEvents[0].ID)

	// unknown risk level is a 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/dashboard/recent-events?risk_level=severe", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDashboardData(t *testing.T) {
	today := dayStart(fixedNow)
	logins := &fakeLoginStore{events: []model.LoginEvent{
		login(today.Add(9*time.Hour), true),
	}}
	engine, _ := newTestEngine(logins, nil, nil, nil)
	router := newTestRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/all", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body DashboardData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.TodayLogins)
	require.Len(t, body.HourlyActivity, HoursPerDay)
	require.Len(t, body.WeeklyTrends, 7)
	require.Equal(t, "March 2026", body.MonthlySummary.Month)
}
