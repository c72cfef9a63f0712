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

// blockedPredicate is the shared definition of a "blocked" event.
const blockedPredicate = `event_type = 'unauthorized_access' AND risk_level IN ('high', 'critical')`

const (
	querySaveSecurityEvent = `
		INSERT INTO security_events (id, event_type, description, ip_address, geo_location, device_info, risk_level, user_id, timestamp, resolved, resolution_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	queryCountBlocked = `
		SELECT COUNT(*)
		FROM security_events
		WHERE timestamp >= $1 AND timestamp < $2
		  AND ` + blockedPredicate + `
	`

	queryCountAlerts = `
		SELECT COUNT(*)
		FROM security_events
		WHERE timestamp >= $1 AND timestamp < $2
		  AND risk_level IN ('high', 'critical')
	`

	queryCountByRiskLevel = `
		SELECT risk_level, COUNT(*)
		FROM security_events
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY risk_level
	`

	queryBlockedByHour = `
		SELECT EXTRACT(HOUR FROM timestamp)::int AS hour, COUNT(*)
		FROM security_events
		WHERE timestamp >= $1 AND timestamp < $2
		  AND ` + blockedPredicate + `
		GROUP BY hour
	`

	queryDistinctBlockedIPs = `
		SELECT COUNT(DISTINCT ip_address)
		FROM security_events
		WHERE timestamp >= $1 AND timestamp < $2
		  AND ` + blockedPredicate + `
	`

	queryTopBlockedIPs = `
		SELECT ip_address, COUNT(*) AS cnt
		FROM security_events
		WHERE ` + blockedPredicate + `
		GROUP BY ip_address
		ORDER BY cnt DESC, ip_address ASC
		LIMIT $1
	`

	queryRecentEvents = `
		SELECT id, event_type, description, ip_address, geo_location, device_info, risk_level, user_id, timestamp, resolved, resolution_notes
		FROM security_events
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	queryRecentEventsByRisk = `
		SELECT id, event_type, description, ip_address, geo_location, device_info, risk_level, user_id, timestamp, resolved, resolution_notes
		FROM security_events
		WHERE risk_level = $2
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`
)

// SecurityEventAdapter implements analytics.SecurityEventStore plus the
// ingest write path over PostgreSQL.
type SecurityEventAdapter struct {
	db *sql.DB
}

// NewSecurityEventAdapter creates a new SecurityEventAdapter sharing the given connection.
func NewSecurityEventAdapter(db *sql.DB) *SecurityEventAdapter {
	return &SecurityEventAdapter{db: db}
}

// SaveSecurityEvent persists an audit-log event. The event ID is the
// idempotency key: a duplicate returns storage.ErrDuplicate.
func (a *SecurityEventAdapter) SaveSecurityEvent(ctx context.Context, event *model.SecurityEvent) error {
	var userID sql.NullInt64
	if event.UserID != 0 {
		userID = sql.NullInt64{Int64: event.UserID, Valid: true}
	}

	result, err := a.db.ExecContext(ctx, querySaveSecurityEvent,
		event.ID,
		string(event.EventType),
		event.Description,
		event.IPAddress,
		event.GeoLocation,
		event.DeviceInfo,
		string(event.RiskLevel),
		userID,
		event.Timestamp.UTC(),
		event.Resolved,
		event.ResolutionNotes,
	)
	if err != nil {
		return fmt.Errorf("save security event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save security event: rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrDuplicate
	}

	slog.Debug("[Postgres] Saved security event",
		"event_id", event.ID,
		"event_type", event.EventType,
		"risk_level", event.RiskLevel)
	return nil
}

// CountBlockedInRange counts blocked events in [start, end).
func (a *SecurityEventAdapter) CountBlockedInRange(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, queryCountBlocked, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count blocked events: %w", err)
	}
	return count, nil
}

// CountAlertsInRange counts high/critical events of any type in [start, end).
func (a *SecurityEventAdapter) CountAlertsInRange(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, queryCountAlerts, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count alert events: %w", err)
	}
	return count, nil
}

// CountByRiskLevel groups events in [start, end) by risk level.
func (a *SecurityEventAdapter) CountByRiskLevel(ctx context.Context, start, end time.Time) (map[model.RiskLevel]int, error) {
	rows, err := a.db.QueryContext(ctx, queryCountByRiskLevel, start, end)
	if err != nil {
		return nil, fmt.Errorf("count by risk level: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.RiskLevel]int)
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("count by risk level: scan row: %w", err)
		}
		counts[model.RiskLevel(level)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count by risk level: iterate rows: %w", err)
	}
	return counts, nil
}

// BlockedCountByHour groups blocked events in [start, end) by hour-of-day.
func (a *SecurityEventAdapter) BlockedCountByHour(ctx context.Context, start, end time.Time) (map[int]int, error) {
	rows, err := a.db.QueryContext(ctx, queryBlockedByHour, start, end)
	if err != nil {
		return nil, fmt.Errorf("blocked by hour: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var hour, count int
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, fmt.Errorf("blocked by hour: scan row: %w", err)
		}
		counts[hour] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blocked by hour: iterate rows: %w", err)
	}
	return counts, nil
}

// DistinctBlockedIPs counts distinct IPs over blocked events in [start, end).
func (a *SecurityEventAdapter) DistinctBlockedIPs(ctx context.Context, start, end time.Time) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, queryDistinctBlockedIPs, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("distinct blocked ips: %w", err)
	}
	return count, nil
}

// TopBlockedIPs returns all-time per-IP blocked counts ordered by count
// descending, IP ascending.
func (a *SecurityEventAdapter) TopBlockedIPs(ctx context.Context, limit int) ([]analytics.IPCount, error) {
	rows, err := a.db.QueryContext(ctx, queryTopBlockedIPs, limit)
	if err != nil {
		return nil, fmt.Errorf("top blocked ips: %w", err)
	}
	defer rows.Close()

	var result []analytics.IPCount
	for rows.Next() {
		var ic analytics.IPCount
		if err := rows.Scan(&ic.IP, &ic.Count); err != nil {
			return nil, fmt.Errorf("top blocked ips: scan row: %w", err)
		}
		result = append(result, ic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top blocked ips: iterate rows: %w", err)
	}
	return result, nil
}

// RecentEvents returns up to limit events ordered by timestamp descending.
// An empty level means no risk-level filter.
func (a *SecurityEventAdapter) RecentEvents(ctx context.Context, limit int, level model.RiskLevel) ([]model.SecurityEvent, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if level == "" {
		rows, err = a.db.QueryContext(ctx, queryRecentEvents, limit)
	} else {
		rows, err = a.db.QueryContext(ctx, queryRecentEventsByRisk, limit, string(level))
	}
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []model.SecurityEvent
	for rows.Next() {
		evt, err := scanSecurityEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent events: iterate rows: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSecurityEventRow scans a database row into a SecurityEvent.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanSecurityEventRow(row scanner) (*model.SecurityEvent, error) {
	var evt model.SecurityEvent
	var eventType, riskLevel string
	var userID sql.NullInt64
	var geoLocation, deviceInfo, resolutionNotes sql.NullString

	err := row.Scan(
		&evt.ID,
		&eventType,
		&evt.Description,
		&evt.IPAddress,
		&geoLocation,
		&deviceInfo,
		&riskLevel,
		&userID,
		&evt.Timestamp,
		&evt.Resolved,
		&resolutionNotes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan security event row: %w", err)
	}

	evt.EventType = model.EventType(eventType)
	evt.RiskLevel = model.RiskLevel(riskLevel)
	evt.UserID = userID.Int64
	evt.GeoLocation = geoLocation.String
	evt.DeviceInfo = deviceInfo.String
	evt.ResolutionNotes = resolutionNotes.String
	return &evt, nil
}
