package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestReportAdapter_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewReportAdapter(db)
	reportDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	generatedAt := time.Date(2026, 3, 11, 0, 0, 5, 0, time.UTC)
	peakHour := 14

	mock.ExpectExec(regexp.QuoteMeta(queryUpsertReport)).
		WithArgs(reportDate, 120, 100, 5, 3, 2, 1, 1, 0,
			int64(peakHour), "alice", decimal.NewFromFloat(83.33),
			[]byte(`["Elevated login volume"]`), "Review firewall rules", generatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = adapter.Upsert(context.Background(), &model.DailyReport{
		ReportDate:         reportDate,
		TotalLoginAttempts: 120,
		SuccessfulLogins:   100,
		BlockedAttempts:    5,
		DistinctIPsBlocked: 3,
		LowRiskEvents:      2,
		MediumRiskEvents:   1,
		HighRiskEvents:     1,
		CriticalRiskEvents: 0,
		PeakActivityHour:   &peakHour,
		MostActiveUser:     "alice",
		SuccessRate:        decimal.NewFromFloat(83.33),
		NotablePatterns:    []string{"Elevated login volume"},
		Recommendations:    "Review firewall rules",
		GeneratedAt:        generatedAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportAdapter_GetByDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewReportAdapter(db)
	reportDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	generatedAt := reportDate.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetReportByDate)).
		WithArgs(reportDate).
		WillReturnRows(sqlmock.NewRows([]string{
			"report_date", "total_login_attempts", "successful_logins", "blocked_attempts",
			"distinct_ips_blocked", "low_risk_events", "medium_risk_events", "high_risk_events",
			"critical_risk_events", "peak_activity_hour", "most_active_user", "success_rate",
			"notable_patterns", "recommendations", "generated_at",
		}).AddRow(reportDate, 120, 100, 5, 3, 2, 1, 1, 0,
			14, "alice", "83.33", []byte(`["Elevated login volume"]`), "Review firewall rules", generatedAt))

	report, err := adapter.GetByDate(context.Background(), reportDate)
	require.NoError(t, err)
	require.Equal(t, 120, report.TotalLoginAttempts)
	require.NotNil(t, report.PeakActivityHour)
	require.Equal(t, 14, *report.PeakActivityHour)
	require.Equal(t, "83.33", report.SuccessRate.StringFixed(2))
	require.Equal(t, []string{"Elevated login volume"}, report.NotablePatterns)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportAdapter_GetByDateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewReportAdapter(db)
	reportDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetReportByDate)).
		WithArgs(reportDate).
		WillReturnRows(sqlmock.NewRows([]string{
			"report_date", "total_login_attempts", "successful_logins", "blocked_attempts",
			"distinct_ips_blocked", "low_risk_events", "medium_risk_events", "high_risk_events",
			"critical_risk_events", "peak_activity_hour", "most_active_user", "success_rate",
			"notable_patterns", "recommendations", "generated_at",
		}))

	_, err = adapter.GetByDate(context.Background(), reportDate)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportAdapter_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewReportAdapter(db)
	day1 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, -1)

	mock.ExpectQuery(regexp.QuoteMeta(queryListRecentReports)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{
			"report_date", "total_login_attempts", "successful_logins", "blocked_attempts",
			"distinct_ips_blocked", "low_risk_events", "medium_risk_events", "high_risk_events",
			"critical_risk_events", "peak_activity_hour", "most_active_user", "success_rate",
			"notable_patterns", "recommendations", "generated_at",
		}).
			AddRow(day1, 120, 100, 5, 3, 2, 1, 1, 0, 14, "alice", "83.33", nil, "", day1.AddDate(0, 0, 1)).
			AddRow(day2, 0, 0, 0, 0, 0, 0, 0, 0, nil, "N/A", "0", nil, "", day1))

	reports, err := adapter.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, day1, reports[0].ReportDate)
	require.Nil(t, reports[1].PeakActivityHour)
	require.Equal(t, "N/A", reports[1].MostActiveUser)
	require.NoError(t, mock.ExpectationsWereMet())
}
