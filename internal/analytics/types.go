package analytics

import (
	"github.com/shopspring/decimal"
)

// HoursPerDay is the fixed size of every hourly activity result.
const HoursPerDay = 24

// HourlyBucket holds the per-hour login/security counts of one hour-of-day
// slot. Buckets with no matching rows stay zero; the slot is always present.
type HourlyBucket struct {
	Successful int `json:"successful"`
	Suspicious int `json:"suspicious"`
	Blocked    int `json:"blocked"`
}

// DailyTrend is one day of the weekly access trend, oldest first.
type DailyTrend struct {
	Date        string          `json:"date"` // YYYY-MM-DD
	Day         string          `json:"day"`  // weekday abbreviation, e.g. "Mon"
	Total       int             `json:"total"`
	Successful  int             `json:"successful"`
	Blocked     int             `json:"blocked"`
	SuccessRate decimal.Decimal `json:"success_rate"`
}

// RiskDistribution counts today's security events per risk level.
// All four keys are always present.
type RiskDistribution struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Total returns the sum over all risk levels.
func (d RiskDistribution) Total() int {
	return d.Low + d.Medium + d.High + d.Critical
}

// EventSummary is the projection of a security event served by the recent
// events feed.
type EventSummary struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"` // YYYY-MM-DD HH:MM:SS
	IPAddress   string `json:"ip_address"`
	EventType   string `json:"event_type"`
	RiskLevel   string `json:"risk_level"`
	Description string `json:"description"`
	GeoLocation string `json:"geo_location"`
}

// BlockedIP is one entry of the top blocked IPs ranking.
type BlockedIP struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// LoginHour is one entry of the top login hours ranking.
type LoginHour struct {
	Hour  string `json:"hour"` // zero-padded "HH:00"
	Count int    `json:"count"`
}

// UserActivity is one entry of the user login frequency ranking.
type UserActivity struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// MonthlySummary aggregates one calendar month.
type MonthlySummary struct {
	Month            string          `json:"month"` // "January 2006"
	TotalLogins      int             `json:"total_logins"`
	SuccessfulLogins int             `json:"successful_logins"`
	BlockedAttempts  int             `json:"blocked_attempts"`
	PeakHour         string          `json:"peak_hour"` // "HH:00"; "00:00" when the month has no data
	MostActiveUser   string          `json:"most_active_user"`
	SuccessRate      decimal.Decimal `json:"success_rate"`
}

// DashboardData is the composite result of the bulk fetch: every read-only
// metric in one structure.
type DashboardData struct {
	TodayLogins      int              `json:"today_logins"`
	YesterdayLogins  int              `json:"yesterday_logins"`
	TodayBlockedIPs  int              `json:"today_blocked_ips"`
	ActiveWhitelist  int              `json:"active_whitelist"`
	TodayAlerts      int              `json:"today_alerts"`
	HourlyActivity   []HourlyBucket   `json:"hourly_activity"`
	WeeklyTrends     []DailyTrend     `json:"weekly_trends"`
	RiskDistribution RiskDistribution `json:"risk_distribution"`
	RecentEvents     []EventSummary   `json:"recent_events"`
	TopBlockedIPs    []BlockedIP      `json:"top_blocked_ips"`
	TopLoginTimes    []LoginHour      `json:"top_login_times"`
	UserFrequency    []UserActivity   `json:"user_frequency"`
	MonthlySummary   MonthlySummary   `json:"monthly_summary"`
}
