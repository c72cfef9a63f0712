package analytics

import (
	"context"
	"time"

	"github.com/bastion-lab/project-bastion/internal/core/model"
)

// HourCount is a per-hour-of-day row count.
type HourCount struct {
	Hour  int
	Count int
}

// UserCount is a per-username row count.
type UserCount struct {
	Username string
	Count    int
}

// IPCount is a per-IP row count.
type IPCount struct {
	IP    string
	Count int
}

// LoginEventStore provides aggregate range queries over login events.
// All ranges are half-open [start, end).
type LoginEventStore interface {
	// CountInRange counts all login attempts regardless of outcome.
	CountInRange(ctx context.Context, start, end time.Time) (int, error)

	// CountSuccessfulInRange counts login attempts with success = true.
	CountSuccessfulInRange(ctx context.Context, start, end time.Time) (int, error)

	// CountByHour groups attempts with the given outcome by the hour-of-day
	// component of their stored timestamp. Only hours with at least one row
	// appear in the result.
	CountByHour(ctx context.Context, start, end time.Time, success bool) (map[int]int, error)

	// HourHistogram returns per-hour attempt counts ordered by count
	// descending, hour ascending. Only hours with at least one row appear.
	HourHistogram(ctx context.Context, start, end time.Time) ([]HourCount, error)

	// TopUsers joins login events to users and returns per-username counts
	// ordered by count descending, username ascending.
	TopUsers(ctx context.Context, start, end time.Time, limit int) ([]UserCount, error)
}

// SecurityEventStore provides aggregate and feed queries over audit-log
// events. "Blocked" always means event_type = unauthorized_access with
// risk_level in {high, critical}.
type SecurityEventStore interface {
	// CountBlockedInRange counts blocked events in [start, end).
	CountBlockedInRange(ctx context.Context, start, end time.Time) (int, error)

	// CountAlertsInRange counts high/critical events of any type in [start, end).
	CountAlertsInRange(ctx context.Context, start, end time.Time) (int, error)

	// CountByRiskLevel groups events in [start, end) by risk level.
	// Levels with no rows are absent from the map.
	CountByRiskLevel(ctx context.Context, start, end time.Time) (map[model.RiskLevel]int, error)

	// BlockedCountByHour groups blocked events in [start, end) by hour-of-day.
	BlockedCountByHour(ctx context.Context, start, end time.Time) (map[int]int, error)

	// DistinctBlockedIPs returns the set-cardinality count of ip_address over
	// blocked events in [start, end).
	DistinctBlockedIPs(ctx context.Context, start, end time.Time) (int, error)

	// TopBlockedIPs returns all-time per-IP blocked counts ordered by count
	// descending, IP ascending.
	TopBlockedIPs(ctx context.Context, limit int) ([]IPCount, error)

	// RecentEvents returns up to limit events ordered by timestamp
	// descending. An empty level means no risk-level filter.
	RecentEvents(ctx context.Context, limit int, level model.RiskLevel) ([]model.SecurityEvent, error)
}

// AccessEntryStore provides the whitelist count over the access-control list.
type AccessEntryStore interface {
	// CountActiveAllowed counts entries with active = true and
	// access_level = allow. No time window.
	CountActiveAllowed(ctx context.Context) (int, error)
}

// ReportStore persists daily report snapshots keyed by calendar date.
type ReportStore interface {
	// Upsert atomically inserts the report or overwrites every computed
	// field of the existing row for the same date. All-or-nothing per date.
	Upsert(ctx context.Context, report *model.DailyReport) error

	// GetByDate fetches the report for one calendar date.
	// Returns storage.ErrNotFound when no report has been generated for it.
	GetByDate(ctx context.Context, date time.Time) (*model.DailyReport, error)

	// ListRecent returns up to limit reports ordered by report date descending.
	ListRecent(ctx context.Context, limit int) ([]model.DailyReport, error)
}
