package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestAccessEntryAdapter_CountActiveAllowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAccessEntryAdapter(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryCountActiveAllowed)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(8))

	count, err := adapter.CountActiveAllowed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessEntryAdapter_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAccessEntryAdapter(db)
	addedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryInsertAccessEntry)).
		WithArgs("10.0.0.5", "laptop-01", "allow", int64(1), addedAt, "office device", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	entry := &model.AccessEntry{
		IPAddress:   "10.0.0.5",
		DeviceID:    "laptop-01",
		AccessLevel: model.AccessAllow,
		AddedBy:     1,
		AddedAt:     addedAt,
		Notes:       "office device",
		Active:      true,
	}
	err = adapter.Insert(context.Background(), entry)
	require.NoError(t, err)
	require.Equal(t, int64(7), entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessEntryAdapter_InsertDuplicateIP(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAccessEntryAdapter(db)
	addedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// ON CONFLICT DO NOTHING returns no rows from RETURNING
	mock.ExpectQuery(regexp.QuoteMeta(queryInsertAccessEntry)).
		WithArgs("10.0.0.5", "", "block", int64(0), addedAt, "", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err = adapter.Insert(context.Background(), &model.AccessEntry{
		IPAddress:   "10.0.0.5",
		AccessLevel: model.AccessBlock,
		AddedAt:     addedAt,
		Active:      true,
	})
	require.ErrorIs(t, err, storage.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessEntryAdapter_UpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAccessEntryAdapter(db)

	mock.ExpectExec(regexp.QuoteMeta(queryUpdateAccessEntry)).
		WithArgs(int64(99), "", "allow", "", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = adapter.Update(context.Background(), &model.AccessEntry{
		ID:          99,
		IPAddress:   "10.0.0.5",
		AccessLevel: model.AccessAllow,
		Active:      true,
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessEntryAdapter_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAccessEntryAdapter(db)

	mock.ExpectExec(regexp.QuoteMeta(queryDeactivateAccessEntry)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = adapter.Deactivate(context.Background(), 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessEntryAdapter_ListActiveOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewAccessEntryAdapter(db)
	addedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryListActiveAccessEntries)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "ip_address", "device_id", "access_level", "added_by", "added_at", "notes", "active",
		}).AddRow(int64(7), "10.0.0.5", "laptop-01", "allow", int64(1), addedAt, nil, true))

	entries, err := adapter.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.AccessAllow, entries[0].AccessLevel)
	require.Equal(t, "laptop-01", entries[0].DeviceID)
	require.NoError(t, mock.ExpectationsWereMet())
}
