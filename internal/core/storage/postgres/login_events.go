package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bastion-lab/project-bastion/internal/analytics"
	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
)

const (
	querySaveLoginEvent = `
		INSERT INTO login_events (id, user_id, ip_address, login_time, success, session_duration, device_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	queryCountLogins = `
		SELECT COUNT(*)
		FROM login_events
		WHERE login_time >= $1 AND login_time < $2
	`

	queryCountSuccessfulLogins = `
		SELECT COUNT(*)
		FROM login_events
		WHERE login_time >= $1 AND login_time < $2 AND success = TRUE
	`

	queryLoginsByHour = `
		SELECT EXTRACT(HOUR FROM login_time)::int AS hour, COUNT(*)
		FROM login_events
		WHERE login_time >= $1 AND login_time < $2 AND success = $3
		GROUP BY hour
	`

	queryLoginHourHistogram = `
		SELECT EXTRACT(HOUR FROM login_time)::int AS hour, COUNT(*) AS cnt
		FROM login_events
		WHERE login_time >= $1 AND login_time < $2
		GROUP BY hour
		ORDER BY cnt DESC, hour ASC
	`

	queryTopUsers = `
		SELECT u.username, COUNT(l.id) AS cnt
		FROM login_events l
		JOIN users u ON u.id = l.user_id
		WHERE l.login_time >= $1 AND l.login_time < $2
		GROUP BY u.username
		ORDER BY cnt DESC, u.username ASC
		LIMIT $3
	`
)

// LoginEventAdapter implements analytics.LoginEventStore plus the ingest
// write path over PostgreSQL. Aggregation is pushed into SQL; timestamps are
// stored in UTC.
type LoginEventAdapter struct {
	db *sql.DB
}

// NewLoginEventAdapter creates a new LoginEventAdapter sharing the given connection.
func NewLoginEventAdapter(db *sql.DB) *LoginEventAdapter {
	return &LoginEventAdapter{db: db}
}

// SaveLoginEvent persists a login attempt. The event ID is the idempotency
// key: a duplicate returns storage.ErrDuplicate.
func (a *LoginEventAdapter) SaveLoginEvent(ctx context.Context, event *model.LoginEvent) error {
	var userID sql.NullInt64
	if event.UserID != 0 {
		userID = sql.NullInt64{Int64: event.UserID, Valid: true}
	}

	result, err := a.db.ExecContext(ctx, querySaveLoginEvent,
		event.ID,
		userID,
		event.IPAddress,
		event.LoginTime.UTC(),
		event.Success,
		event.SessionDuration,
		event.DeviceInfo,
	)
	if err != nil {
		return fmt.Errorf("save login event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save login event: rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrDuplicate
	}

	slog.Debug("[Postgres] Saved login event",
		"event_id", event.ID,
		"success", event.Success)
	return nil
}

// CountInRange counts login attempts in [start, end).
func (a *LoginEventAdapter) CountInRange(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, queryCountLogins, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count logins: %w", err)
	}
	return count, nil
}

// CountSuccessfulInRange counts successful login attempts in [start, end).
func (a *LoginEventAdapter) CountSuccessfulInRange(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, queryCountSuccessfulLogins, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count successful logins: %w", err)
	}
	return count, nil
}

// CountByHour groups attempts with the given outcome by hour-of-day.
func (a *LoginEventAdapter) CountByHour(ctx context.Context, start, end time.Time, success bool) (map[int]int, error) {
	rows, err := a.db.QueryContext(ctx, queryLoginsByHour, start, end, success)
	if err != nil {
		return nil, fmt.Errorf("logins by hour: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var hour, count int
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, fmt.Errorf("logins by hour: scan row: %w", err)
		}
		counts[hour] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("logins by hour: iterate rows: %w", err)
	}
	return counts, nil
}

// HourHistogram returns per-hour attempt counts ordered by count descending,
// hour ascending.
func (a *LoginEventAdapter) HourHistogram(ctx context.Context, start, end time.Time) ([]analytics.HourCount, error) {
	rows, err := a.db.QueryContext(ctx, queryLoginHourHistogram, start, end)
	if err != nil {
		return nil, fmt.Errorf("login hour histogram: %w", err)
	}
	defer rows.Close()

	var result []analytics.HourCount
	for rows.Next() {
		var hc analytics.HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, fmt.Errorf("login hour histogram: scan row: %w", err)
		}
		result = append(result, hc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("login hour histogram: iterate rows: %w", err)
	}
	return result, nil
}

// TopUsers returns per-username attempt counts ordered by count descending,
// username ascending.
func (a *LoginEventAdapter) TopUsers(ctx context.Context, start, end time.Time, limit int) ([]analytics.UserCount, error) {
	rows, err := a.db.QueryContext(ctx, queryTopUsers, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	defer rows.Close()

	var result []analytics.UserCount
	for rows.Next() {
		var uc analytics.UserCount
		if err := rows.Scan(&uc.Username, &uc.Count); err != nil {
			return nil, fmt.Errorf("top users: scan row: %w", err)
		}
		result = append(result, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top users: iterate rows: %w", err)
	}
	return result, nil
}
