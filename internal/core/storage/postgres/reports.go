package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
)

const (
	queryUpsertReport = `
		INSERT INTO daily_reports (report_date, total_login_attempts, successful_logins, blocked_attempts, distinct_ips_blocked, low_risk_events, medium_risk_events, high_risk_events, critical_risk_events, peak_activity_hour, most_active_user, success_rate, notable_patterns, recommendations, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (report_date) DO UPDATE SET
			total_login_attempts = EXCLUDED.total_login_attempts,
			successful_logins = EXCLUDED.successful_logins,
			blocked_attempts = EXCLUDED.blocked_attempts,
			distinct_ips_blocked = EXCLUDED.distinct_ips_blocked,
			low_risk_events = EXCLUDED.low_risk_events,
			medium_risk_events = EXCLUDED.medium_risk_events,
			high_risk_events = EXCLUDED.high_risk_events,
			critical_risk_events = EXCLUDED.critical_risk_events,
			peak_activity_hour = EXCLUDED.peak_activity_hour,
			most_active_user = EXCLUDED.most_active_user,
			success_rate = EXCLUDED.success_rate,
			notable_patterns = EXCLUDED.notable_patterns,
			recommendations = EXCLUDED.recommendations,
			generated_at = EXCLUDED.generated_at
	`

	queryGetReportByDate = `
		SELECT report_date, total_login_attempts, successful_logins, blocked_attempts, distinct_ips_blocked, low_risk_events, medium_risk_events, high_risk_events, critical_risk_events, peak_activity_hour, most_active_user, success_rate, notable_patterns, recommendations, generated_at
		FROM daily_reports
		WHERE report_date = $1
	`

	queryListRecentReports = `
		SELECT report_date, total_login_attempts, successful_logins, blocked_attempts, distinct_ips_blocked, low_risk_events, medium_risk_events, high_risk_events, critical_risk_events, peak_activity_hour, most_active_user, success_rate, notable_patterns, recommendations, generated_at
		FROM daily_reports
		ORDER BY report_date DESC
		LIMIT $1
	`
)

// ReportAdapter implements analytics.ReportStore over PostgreSQL. One row
// exists per report date; regeneration overwrites every computed column.
type ReportAdapter struct {
	db *sql.DB
}

// NewReportAdapter creates a new ReportAdapter sharing the given connection.
func NewReportAdapter(db *sql.DB) *ReportAdapter {
	return &ReportAdapter{db: db}
}

// Upsert inserts the report or overwrites the existing row for the same date.
// The ON CONFLICT clause makes the replace atomic per date.
func (a *ReportAdapter) Upsert(ctx context.Context, report *model.DailyReport) error {
	var peakHour sql.NullInt64
	if report.PeakActivityHour != nil {
		peakHour = sql.NullInt64{Int64: int64(*report.PeakActivityHour), Valid: true}
	}

	patterns, err := json.Marshal(report.NotablePatterns)
	if err != nil {
		return fmt.Errorf("upsert daily report: marshal notable patterns: %w", err)
	}

	_, err = a.db.ExecContext(ctx, queryUpsertReport,
		report.ReportDate.UTC(),
		report.TotalLoginAttempts,
		report.SuccessfulLogins,
		report.BlockedAttempts,
		report.DistinctIPsBlocked,
		report.LowRiskEvents,
		report.MediumRiskEvents,
		report.HighRiskEvents,
		report.CriticalRiskEvents,
		peakHour,
		report.MostActiveUser,
		report.SuccessRate,
		patterns,
		report.Recommendations,
		report.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert daily report: %w", err)
	}

	slog.Debug("[Postgres] Upserted daily report",
		"report_date", report.ReportDate.Format("2006-01-02"))
	return nil
}

// GetByDate fetches the report for one calendar date.
// Returns storage.ErrNotFound when no report exists for it.
func (a *ReportAdapter) GetByDate(ctx context.Context, date time.Time) (*model.DailyReport, error) {
	report, err := scanReportRow(a.db.QueryRowContext(ctx, queryGetReportByDate, date.UTC()))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListRecent returns up to limit reports ordered by report date descending.
func (a *ReportAdapter) ListRecent(ctx context.Context, limit int) ([]model.DailyReport, error) {
	rows, err := a.db.QueryContext(ctx, queryListRecentReports, limit)
	if err != nil {
		return nil, fmt.Errorf("list daily reports: %w", err)
	}
	defer rows.Close()

	var reports []model.DailyReport
	for rows.Next() {
		report, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list daily reports: iterate rows: %w", err)
	}
	return reports, nil
}

func scanReportRow(row scanner) (*model.DailyReport, error) {
	var report model.DailyReport
	var peakHour sql.NullInt64
	var patterns []byte

	err := row.Scan(
		&report.ReportDate,
		&report.TotalLoginAttempts,
		&report.SuccessfulLogins,
		&report.BlockedAttempts,
		&report.DistinctIPsBlocked,
		&report.LowRiskEvents,
		&report.MediumRiskEvents,
		&report.HighRiskEvents,
		&report.CriticalRiskEvents,
		&peakHour,
		&report.MostActiveUser,
		&report.SuccessRate,
		&patterns,
		&report.Recommendations,
		&report.GeneratedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily report row: %w", err)
	}

	if peakHour.Valid {
		hour := int(peakHour.Int64)
		report.PeakActivityHour = &hour
	}
	if len(patterns) > 0 {
		if err := json.Unmarshal(patterns, &report.NotablePatterns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notable patterns: %w", err)
		}
	}
	return &report, nil
}
