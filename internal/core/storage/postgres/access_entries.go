package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
)

const (
	queryCountActiveAllowed = `
		SELECT COUNT(*)
		FROM access_entries
		WHERE active = TRUE AND access_level = 'allow'
	`

	queryInsertAccessEntry = `
		INSERT INTO access_entries (ip_address, device_id, access_level, added_by, added_at, notes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ip_address) DO NOTHING
		RETURNING id
	`

	queryUpdateAccessEntry = `
		UPDATE access_entries
		SET device_id = $2, access_level = $3, notes = $4, active = $5
		WHERE id = $1
	`

	queryDeactivateAccessEntry = `
		UPDATE access_entries
		SET active = FALSE
		WHERE id = $1
	`

	queryGetAccessEntry = `
		SELECT id, ip_address, device_id, access_level, added_by, added_at, notes, active
		FROM access_entries
		WHERE id = $1
	`

	queryListAccessEntries = `
		SELECT id, ip_address, device_id, access_level, added_by, added_at, notes, active
		FROM access_entries
		ORDER BY added_at DESC, id DESC
	`

	queryListActiveAccessEntries = `
		SELECT id, ip_address, device_id, access_level, added_by, added_at, notes, active
		FROM access_entries
		WHERE active = TRUE
		ORDER BY added_at DESC, id DESC
	`
)

// AccessEntryAdapter implements analytics.AccessEntryStore and the
// access-list CRUD store over PostgreSQL.
type AccessEntryAdapter struct {
	db *sql.DB
}

// NewAccessEntryAdapter creates a new AccessEntryAdapter sharing the given connection.
func NewAccessEntryAdapter(db *sql.DB) *AccessEntryAdapter {
	return &AccessEntryAdapter{db: db}
}

// CountActiveAllowed counts entries with active = true and access_level = allow.
func (a *AccessEntryAdapter) CountActiveAllowed(ctx context.Context) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, queryCountActiveAllowed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active whitelist: %w", err)
	}
	return count, nil
}

// Insert persists a new access entry and populates its ID. The IP address is
// unique: a duplicate returns storage.ErrDuplicate.
func (a *AccessEntryAdapter) Insert(ctx context.Context, entry *model.AccessEntry) error {
	var addedBy sql.NullInt64
	if entry.AddedBy != 0 {
		addedBy = sql.NullInt64{Int64: entry.AddedBy, Valid: true}
	}

	err := a.db.QueryRowContext(ctx, queryInsertAccessEntry,
		entry.IPAddress,
		entry.DeviceID,
		string(entry.AccessLevel),
		addedBy,
		entry.AddedAt.UTC(),
		entry.Notes,
		entry.Active,
	).Scan(&entry.ID)
	if err == sql.ErrNoRows {
		// ON CONFLICT DO NOTHING - entry for this IP already exists
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert access entry: %w", err)
	}

	slog.Debug("[Postgres] Saved access entry",
		"entry_id", entry.ID,
		"ip_address", entry.IPAddress,
		"access_level", entry.AccessLevel)
	return nil
}

// Update overwrites the mutable fields of an existing entry.
// Returns storage.ErrNotFound when the entry does not exist.
func (a *AccessEntryAdapter) Update(ctx context.Context, entry *model.AccessEntry) error {
	result, err := a.db.ExecContext(ctx, queryUpdateAccessEntry,
		entry.ID,
		entry.DeviceID,
		string(entry.AccessLevel),
		entry.Notes,
		entry.Active,
	)
	if err != nil {
		return fmt.Errorf("update access entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update access entry: rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Deactivate marks an entry inactive without deleting its history.
// Returns storage.ErrNotFound when the entry does not exist.
func (a *AccessEntryAdapter) Deactivate(ctx context.Context, id int64) error {
	result, err := a.db.ExecContext(ctx, queryDeactivateAccessEntry, id)
	if err != nil {
		return fmt.Errorf("deactivate access entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate access entry: rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get fetches one entry by ID. Returns storage.ErrNotFound when missing.
func (a *AccessEntryAdapter) Get(ctx context.Context, id int64) (*model.AccessEntry, error) {
	entry, err := scanAccessEntryRow(a.db.QueryRowContext(ctx, queryGetAccessEntry, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns entries newest first, optionally only active ones.
func (a *AccessEntryAdapter) List(ctx context.Context, activeOnly bool) ([]model.AccessEntry, error) {
	query := queryListAccessEntries
	if activeOnly {
		query = queryListActiveAccessEntries
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list access entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AccessEntry
	for rows.Next() {
		entry, err := scanAccessEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list access entries: iterate rows: %w", err)
	}
	return entries, nil
}

func scanAccessEntryRow(row scanner) (*model.AccessEntry, error) {
	var entry model.AccessEntry
	var accessLevel string
	var addedBy sql.NullInt64
	var deviceID, notes sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.IPAddress,
		&deviceID,
		&accessLevel,
		&addedBy,
		&entry.AddedAt,
		&notes,
		&entry.Active,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan access entry row: %w", err)
	}

	entry.AccessLevel = model.AccessLevel(accessLevel)
	entry.AddedBy = addedBy.Int64
	entry.DeviceID = deviceID.String
	entry.Notes = notes.String
	return &entry, nil
}
