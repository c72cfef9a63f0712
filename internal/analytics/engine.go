package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/reportrule"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRecentEventsLimit = 20
	defaultRankingLimit      = 10

	trendWindowDays = 7

	// riskLevelAll is the sentinel that disables the recent-events
	// risk-level filter.
	riskLevelAll = "all"
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid analytics query")

// Engine computes time-bucketed security metrics over the event stores.
// All operations are stateless reads except GenerateDailyReport, which
// upserts one snapshot row per calendar date.
//
// Every time-windowed operation derives its windows from a single instant
// captured at call time, so results straddling midnight are internally
// consistent. Day boundaries are UTC midnight.
type Engine struct {
	logins  LoginEventStore
	events  SecurityEventStore
	access  AccessEntryStore
	reports ReportStore
	rules   []reportrule.ThresholdRule
	nowFn   func() time.Time
}

// NewEngine creates an analytics engine over the given stores. rules may be
// empty; they only enrich generated daily reports.
func NewEngine(
	logins LoginEventStore,
	events SecurityEventStore,
	access AccessEntryStore,
	reports ReportStore,
	rules []reportrule.ThresholdRule,
) *Engine {
	return &Engine{
		logins:  logins,
		events:  events,
		access:  access,
		reports: reports,
		rules:   rules,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// dayStart truncates t to UTC midnight.
func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// successRate returns successful/total as a percentage with two decimal
// places. Zero totals resolve to zero, not an error.
func successRate(successful, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(successful) * 100).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// TodayLoginAttempts counts all login attempts in today's UTC day.
func (e *Engine) TodayLoginAttempts(ctx context.Context) (int, error) {
	start := dayStart(e.nowFn())
	return e.logins.CountInRange(ctx, start, start.Add(24*time.Hour))
}

// YesterdayLoginAttempts counts all login attempts in yesterday's UTC day.
func (e *Engine) YesterdayLoginAttempts(ctx context.Context) (int, error) {
	todayStart := dayStart(e.nowFn())
	return e.logins.CountInRange(ctx, todayStart.Add(-24*time.Hour), todayStart)
}

// TodayBlockedIPs counts today's unauthorized-access events with high or
// critical risk.
func (e *Engine) TodayBlockedIPs(ctx context.Context) (int, error) {
	start := dayStart(e.nowFn())
	return e.events.CountBlockedInRange(ctx, start, start.Add(24*time.Hour))
}

// TodaySecurityAlerts counts today's high/critical events of any type.
func (e *Engine) TodaySecurityAlerts(ctx context.Context) (int, error) {
	start := dayStart(e.nowFn())
	return e.events.CountAlertsInRange(ctx, start, start.Add(24*time.Hour))
}

// ActiveWhitelistEntries counts active allow-list entries. No time window.
func (e *Engine) ActiveWhitelistEntries(ctx context.Context) (int, error) {
	return e.access.CountActiveAllowed(ctx)
}

// HourlyActivity returns exactly 24 hour-of-day buckets for the day
// daysBack days before today. Empty hours stay zero.
func (e *Engine) HourlyActivity(ctx context.Context, daysBack int) ([]HourlyBucket, error) {
	if daysBack < 0 {
		return nil, invalidQueryf("days_back must be >= 0, got %d", daysBack)
	}
	return e.hourlyActivity(ctx, e.nowFn(), daysBack)
}

func (e *Engine) hourlyActivity(ctx context.Context, now time.Time, daysBack int) ([]HourlyBucket, error) {
	start := dayStart(now.AddDate(0, 0, -daysBack))
	end := start.Add(24 * time.Hour)

	buckets := make([]HourlyBucket, HoursPerDay)

	successful, err := e.logins.CountByHour(ctx, start, end, true)
	if err != nil {
		return nil, fmt.Errorf("successful logins by hour: %w", err)
	}
	suspicious, err := e.logins.CountByHour(ctx, start, end, false)
	if err != nil {
		return nil, fmt.Errorf("failed logins by hour: %w", err)
	}
	blocked, err := e.events.BlockedCountByHour(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("blocked events by hour: %w", err)
	}

	for hour, count := range successful {
		if hour >= 0 && hour < HoursPerDay {
			buckets[hour].Successful = count
		}
	}
	for hour, count := range suspicious {
		if hour >= 0 && hour < HoursPerDay {
			buckets[hour].Suspicious = count
		}
	}
	for hour, count := range blocked {
		if hour >= 0 && hour < HoursPerDay {
			buckets[hour].Blocked = count
		}
	}

	return buckets, nil
}

// WeeklyTrends returns exactly 7 per-day entries for the 7-day window ending
// today, oldest first. Each entry is queried independently.
func (e *Engine) WeeklyTrends(ctx context.Context) ([]DailyTrend, error) {
	return e.weeklyTrends(ctx, e.nowFn())
}

func (e *Engine) weeklyTrends(ctx context.Context, now time.Time) ([]DailyTrend, error) {
	weekAgo := dayStart(now).AddDate(0, 0, -(trendWindowDays - 1))

	trends := make([]DailyTrend, 0, trendWindowDays)
	for i := 0; i < trendWindowDays; i++ {
		start := weekAgo.AddDate(0, 0, i)
		end := start.Add(24 * time.Hour)

		total, err := e.logins.CountInRange(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("trend day %s total: %w", start.Format("2006-01-02"), err)
		}
		successful, err := e.logins.CountSuccessfulInRange(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("trend day %s successful: %w", start.Format("2006-01-02"), err)
		}
		blocked, err := e.events.CountBlockedInRange(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("trend day %s blocked: %w", start.Format("2006-01-02"), err)
		}

		trends = append(trends, DailyTrend{
			Date:        start.Format("2006-01-02"),
			Day:         start.Format("Mon"),
			Total:       total,
			Successful:  successful,
			Blocked:     blocked,
			SuccessRate: successRate(successful, total),
		})
	}

	return trends, nil
}

// RiskDistribution counts today's security events per risk level. All four
// levels are always present, zero when no rows match.
func (e *Engine) RiskDistribution(ctx context.Context) (RiskDistribution, error) {
	start := dayStart(e.nowFn())
	return e.riskDistribution(ctx, start, start.Add(24*time.Hour))
}

func (e *Engine) riskDistribution(ctx context.Context, start, end time.Time) (RiskDistribution, error) {
	counts, err := e.events.CountByRiskLevel(ctx, start, end)
	if err != nil {
		return RiskDistribution{}, fmt.Errorf("risk distribution: %w", err)
	}
	return RiskDistribution{
		Low:      counts[model.RiskLow],
		Medium:   counts[model.RiskMedium],
		High:     counts[model.RiskHigh],
		Critical: counts[model.RiskCritical],
	}, nil
}

// RecentEvents returns up to limit most recent security events, newest
// first. level filters by exact risk level; empty or "all" disables the
// filter. limit <= 0 uses the default of 20.
func (e *Engine) RecentEvents(ctx context.Context, limit int, level string) ([]EventSummary, error) {
	if limit < 0 {
		return nil, invalidQueryf("limit must be >= 0, got %d", limit)
	}
	if limit == 0 {
		limit = defaultRecentEventsLimit
	}

	filter := model.RiskLevel("")
	if level != "" && level != riskLevelAll {
		filter = model.RiskLevel(level)
		if !model.ValidRiskLevel(filter) {
			return nil, invalidQueryf("unknown risk_level %q", level)
		}
	}

	events, err := e.events.RecentEvents(ctx, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events))
	for _, evt := range events {
		summaries = append(summaries, EventSummary{
			ID:          evt.ID,
			Timestamp:   evt.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			IPAddress:   evt.IPAddress,
			EventType:   string(evt.EventType),
			RiskLevel:   string(evt.RiskLevel),
			Description: evt.Description,
			GeoLocation: evt.GeoLocation,
		})
	}
	return summaries, nil
}

// TopBlockedIPs returns the most frequently blocked IPs, all-time, ordered by
// count descending with ascending IP as tie-break. limit <= 0 uses the
// default of 10.
func (e *Engine) TopBlockedIPs(ctx context.Context, limit int) ([]BlockedIP, error) {
	if limit < 0 {
		return nil, invalidQueryf("limit must be >= 0, got %d", limit)
	}
	if limit == 0 {
		limit = defaultRankingLimit
	}

	counts, err := e.events.TopBlockedIPs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top blocked ips: %w", err)
	}

	result := make([]BlockedIP, 0, len(counts))
	for _, c := range counts {
		result = append(result, BlockedIP{IP: c.IP, Count: c.Count})
	}
	return result, nil
}

// TopLoginHours ranks the hours of the day by login attempts over the last
// 7 days. Only hours with at least one attempt appear.
func (e *Engine) TopLoginHours(ctx context.Context) ([]LoginHour, error) {
	return e.topLoginHours(ctx, e.nowFn())
}

func (e *Engine) topLoginHours(ctx context.Context, now time.Time) ([]LoginHour, error) {
	histogram, err := e.logins.HourHistogram(ctx, now.AddDate(0, 0, -trendWindowDays), now)
	if err != nil {
		return nil, fmt.Errorf("top login hours: %w", err)
	}

	result := make([]LoginHour, 0, len(histogram))
	for _, h := range histogram {
		result = append(result, LoginHour{Hour: formatHour(h.Hour), Count: h.Count})
	}
	return result, nil
}

// TopUsers ranks usernames by login attempts over the last 7 days.
// limit <= 0 uses the default of 10.
func (e *Engine) TopUsers(ctx context.Context, limit int) ([]UserActivity, error) {
	if limit < 0 {
		return nil, invalidQueryf("limit must be >= 0, got %d", limit)
	}
	if limit == 0 {
		limit = defaultRankingLimit
	}
	return e.topUsers(ctx, e.nowFn(), limit)
}

func (e *Engine) topUsers(ctx context.Context, now time.Time, limit int) ([]UserActivity, error) {
	counts, err := e.logins.TopUsers(ctx, now.AddDate(0, 0, -trendWindowDays), now, limit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}

	result := make([]UserActivity, 0, len(counts))
	for _, c := range counts {
		result = append(result, UserActivity{Username: c.Username, Count: c.Count})
	}
	return result, nil
}

// MonthlySummary aggregates the calendar month monthOffset months before the
// current one. Offset 0 is the current month. Month boundaries roll over
// years correctly, including December to January.
func (e *Engine) MonthlySummary(ctx context.Context, monthOffset int) (MonthlySummary, error) {
	if monthOffset < 0 {
		return MonthlySummary{}, invalidQueryf("month_offset must be >= 0, got %d", monthOffset)
	}
	return e.monthlySummary(ctx, e.nowFn(), monthOffset)
}

func (e *Engine) monthlySummary(ctx context.Context, now time.Time, monthOffset int) (MonthlySummary, error) {
	// time.Date normalizes out-of-range months, so January minus one month
	// lands in December of the previous year.
	firstDay := time.Date(now.Year(), now.Month()-time.Month(monthOffset), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := firstDay.AddDate(0, 1, 0)

	summary := MonthlySummary{
		Month:          firstDay.Format("January 2006"),
		PeakHour:       formatHour(0),
		MostActiveUser: "N/A",
	}

	total, err := e.logins.CountInRange(ctx, firstDay, nextMonth)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("monthly total: %w", err)
	}
	successful, err := e.logins.CountSuccessfulInRange(ctx, firstDay, nextMonth)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("monthly successful: %w", err)
	}
	blocked, err := e.events.CountBlockedInRange(ctx, firstDay, nextMonth)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("monthly blocked: %w", err)
	}

	summary.TotalLogins = total
	summary.SuccessfulLogins = successful
	summary.BlockedAttempts = blocked
	summary.SuccessRate = successRate(successful, total)

	histogram, err := e.logins.HourHistogram(ctx, firstDay, nextMonth)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("monthly peak hour: %w", err)
	}
	if len(histogram) > 0 {
		summary.PeakHour = formatHour(histogram[0].Hour)
	}

	topUsers, err := e.logins.TopUsers(ctx, firstDay, nextMonth, 1)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("monthly most active user: %w", err)
	}
	if len(topUsers) > 0 {
		summary.MostActiveUser = topUsers[0].Username
	}

	return summary, nil
}

// DashboardData runs every read-only metric concurrently and returns them as
// one structure. daysBack applies only to the hourly activity sub-call.
// All sub-queries share the instant captured at call time, so the composite
// is identical to calling each function independently at that instant.
func (e *Engine) DashboardData(ctx context.Context, daysBack int) (*DashboardData, error) {
	if daysBack < 0 {
		return nil, invalidQueryf("days_back must be >= 0, got %d", daysBack)
	}

	now := e.nowFn()
	todayStart := dayStart(now)
	todayEnd := todayStart.Add(24 * time.Hour)

	var data DashboardData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := e.logins.CountInRange(gctx, todayStart, todayEnd)
		data.TodayLogins = n
		return err
	})
	g.Go(func() error {
		n, err := e.logins.CountInRange(gctx, todayStart.Add(-24*time.Hour), todayStart)
		data.YesterdayLogins = n
		return err
	})
	g.Go(func() error {
		n, err := e.events.CountBlockedInRange(gctx, todayStart, todayEnd)
		data.TodayBlockedIPs = n
		return err
	})
	g.Go(func() error {
		n, err := e.access.CountActiveAllowed(gctx)
		data.ActiveWhitelist = n
		return err
	})
	g.Go(func() error {
		n, err := e.events.CountAlertsInRange(gctx, todayStart, todayEnd)
		data.TodayAlerts = n
		return err
	})
	g.Go(func() error {
		buckets, err := e.hourlyActivity(gctx, now, daysBack)
		data.HourlyActivity = buckets
		return err
	})
	g.Go(func() error {
		trends, err := e.weeklyTrends(gctx, now)
		data.WeeklyTrends = trends
		return err
	})
	g.Go(func() error {
		dist, err := e.riskDistribution(gctx, todayStart, todayEnd)
		data.RiskDistribution = dist
		return err
	})
	g.Go(func() error {
		events, err := e.RecentEvents(gctx, defaultRecentEventsLimit, "")
		data.RecentEvents = events
		return err
	})
	g.Go(func() error {
		ips, err := e.TopBlockedIPs(gctx, defaultRankingLimit)
		data.TopBlockedIPs = ips
		return err
	})
	g.Go(func() error {
		hours, err := e.topLoginHours(gctx, now)
		data.TopLoginTimes = hours
		return err
	})
	g.Go(func() error {
		users, err := e.topUsers(gctx, now, defaultRankingLimit)
		data.UserFrequency = users
		return err
	})
	g.Go(func() error {
		summary, err := e.monthlySummary(gctx, now, 0)
		data.MonthlySummary = summary
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard data: %w", err)
	}
	return &data, nil
}

// GetDailyReport fetches the stored report for one calendar date.
func (e *Engine) GetDailyReport(ctx context.Context, date time.Time) (*model.DailyReport, error) {
	return e.reports.GetByDate(ctx, dayStart(date))
}

// ListDailyReports returns up to limit stored reports, newest first.
// limit <= 0 uses the default of 10.
func (e *Engine) ListDailyReports(ctx context.Context, limit int) ([]model.DailyReport, error) {
	if limit < 0 {
		return nil, invalidQueryf("limit must be >= 0, got %d", limit)
	}
	if limit == 0 {
		limit = defaultRankingLimit
	}
	return e.reports.ListRecent(ctx, limit)
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
