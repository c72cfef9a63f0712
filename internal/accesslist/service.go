// Package accesslist manages the IP access-control list backing the
// dashboard's whitelist counter. Entries are soft-deleted: deactivation
// keeps the row so historical counts stay stable.
package accesslist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bastion-lab/project-bastion/internal/core/model"
)

// ErrInvalidEntry marks entry validation failures that should return HTTP 400.
var ErrInvalidEntry = errors.New("invalid access entry")

// Store is the persistence boundary for access-list entries.
type Store interface {
	// Insert persists a new entry and populates its ID.
	// Returns storage.ErrDuplicate when the IP address is already listed.
	Insert(ctx context.Context, entry *model.AccessEntry) error

	// Get fetches one entry by ID. Returns storage.ErrNotFound when missing.
	Get(ctx context.Context, id int64) (*model.AccessEntry, error)

	// Update overwrites the mutable fields of an existing entry.
	// Returns storage.ErrNotFound when the entry does not exist.
	Update(ctx context.Context, entry *model.AccessEntry) error

	// Deactivate marks an entry inactive. Returns storage.ErrNotFound when
	// the entry does not exist.
	Deactivate(ctx context.Context, id int64) error

	// List returns entries newest first, optionally only active ones.
	List(ctx context.Context, activeOnly bool) ([]model.AccessEntry, error)
}

// Service is the access-list CRUD layer.
type Service struct {
	store Store
	nowFn func() time.Time
}

// NewService creates an access-list service over the given store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Create validates and persists a new entry. New entries are active; AddedAt
// defaults to the current time when the client omits it.
func (s *Service) Create(ctx context.Context, entry *model.AccessEntry) error {
	if entry.AddedAt.IsZero() {
		entry.AddedAt = s.nowFn()
	}
	entry.Active = true

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEntry, err)
	}
	return s.store.Insert(ctx, entry)
}

// Get fetches one entry by ID.
func (s *Service) Get(ctx context.Context, id int64) (*model.AccessEntry, error) {
	return s.store.Get(ctx, id)
}

// Update overwrites the mutable fields (device, access level, notes, active)
// of the entry with the given ID. The IP address itself is immutable.
func (s *Service) Update(ctx context.Context, id int64, entry *model.AccessEntry) (*model.AccessEntry, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current.DeviceID = entry.DeviceID
	current.AccessLevel = entry.AccessLevel
	current.Notes = entry.Notes
	current.Active = entry.Active

	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEntry, err)
	}
	if err := s.store.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Deactivate soft-deletes the entry with the given ID.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.store.Deactivate(ctx, id)
}

// List returns entries newest first, optionally only active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]model.AccessEntry, error) {
	return s.store.List(ctx, activeOnly)
}
