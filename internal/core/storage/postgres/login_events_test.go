package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bastion-lab/project-bastion/internal/analytics"
	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestLoginEventAdapter_SaveLoginEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewLoginEventAdapter(db)
	loginTime := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(querySaveLoginEvent)).
		WithArgs("evt-1", int64(42), "10.0.0.5", loginTime, true, 300, "Firefox on Linux").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = adapter.SaveLoginEvent(context.Background(), &model.LoginEvent{
		ID:              "evt-1",
		UserID:          42,
		IPAddress:       "10.0.0.5",
		LoginTime:       loginTime,
		Success:         true,
		SessionDuration: 300,
		DeviceInfo:      "Firefox on Linux",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginEventAdapter_SaveLoginEventDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewLoginEventAdapter(db)
	loginTime := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

	// ON CONFLICT DO NOTHING reports zero rows affected
	mock.ExpectExec(regexp.QuoteMeta(querySaveLoginEvent)).
		WithArgs("evt-1", int64(42), "10.0.0.5", loginTime, true, 0, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = adapter.SaveLoginEvent(context.Background(), &model.LoginEvent{
		ID:        "evt-1",
		UserID:    42,
		IPAddress: "10.0.0.5",
		LoginTime: loginTime,
		Success:   true,
	})
	require.ErrorIs(t, err, storage.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginEventAdapter_CountInRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewLoginEventAdapter(db)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(queryCountLogins)).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	count, err := adapter.CountInRange(context.Background(), start, end)
	require.NoError(t, err)
	require.Equal(t, 17, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginEventAdapter_CountByHour(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewLoginEventAdapter(db)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(queryLoginsByHour)).
		WithArgs(start, end, true).
		WillReturnRows(sqlmock.NewRows([]string{"hour", "count"}).
			AddRow(9, 2).
			AddRow(14, 1))

	counts, err := adapter.CountByHour(context.Background(), start, end, true)
	require.NoError(t, err)
	require.Equal(t, map[int]int{9: 2, 14: 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginEventAdapter_HourHistogramPreservesOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewLoginEventAdapter(db)
	start := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	mock.ExpectQuery(regexp.QuoteMeta(queryLoginHourHistogram)).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"hour", "cnt"}).
			AddRow(9, 5).
			AddRow(14, 5).
			AddRow(20, 1))

	histogram, err := adapter.HourHistogram(context.Background(), start, end)
	require.NoError(t, err)
	require.Equal(t, []analytics.HourCount{{Hour: 9, Count: 5}, {Hour: 14, Count: 5}, {Hour: 20, Count: 1}}, histogram)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginEventAdapter_TopUsers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewLoginEventAdapter(db)
	start := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	mock.ExpectQuery(regexp.QuoteMeta(queryTopUsers)).
		WithArgs(start, end, 10).
		WillReturnRows(sqlmock.NewRows([]string{"username", "cnt"}).
			AddRow("alice", 12).
			AddRow("bob", 7))

	users, err := adapter.TopUsers(context.Background(), start, end, 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Username)
	require.Equal(t, 12, users[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}
