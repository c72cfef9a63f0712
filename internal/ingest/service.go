// Package ingest accepts login and security events over HTTP and persists
// them for the analytics engine. Event IDs are the idempotency keys: clients
// may supply their own UUIDs for safe retries, otherwise the server assigns
// one.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/metrics"
	"github.com/google/uuid"
)

// ErrInvalidEvent marks event validation failures that should return HTTP 400.
var ErrInvalidEvent = errors.New("invalid event")

// LoginEventWriter persists login events.
type LoginEventWriter interface {
	// SaveLoginEvent writes one event. Returns storage.ErrDuplicate when an
	// event with the same ID already exists.
	SaveLoginEvent(ctx context.Context, event *model.LoginEvent) error
}

// SecurityEventWriter persists security events.
type SecurityEventWriter interface {
	// SaveSecurityEvent writes one event. Returns storage.ErrDuplicate when
	// an event with the same ID already exists.
	SaveSecurityEvent(ctx context.Context, event *model.SecurityEvent) error
}

// Service is the ingest write path.
type Service struct {
	logins           LoginEventWriter
	events           SecurityEventWriter
	maxBodySizeBytes int
	nowFn            func() time.Time
}

// NewService creates an ingest service. maxBodySizeMB bounds the accepted
// request body size.
func NewService(logins LoginEventWriter, events SecurityEventWriter, maxBodySizeMB int) *Service {
	return &Service{
		logins:           logins,
		events:           events,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// IngestLoginEvent fills server-side defaults, validates and persists one
// login event.
func (s *Service) IngestLoginEvent(ctx context.Context, event *model.LoginEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.LoginTime.IsZero() {
		event.LoginTime = s.nowFn()
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEvent, err)
	}
	if err := s.logins.SaveLoginEvent(ctx, event); err != nil {
		return err
	}
	metrics.EventsIngested.WithLabelValues("login").Inc()
	return nil
}

// IngestSecurityEvent fills server-side defaults, validates and persists one
// security event.
func (s *Service) IngestSecurityEvent(ctx context.Context, event *model.SecurityEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.nowFn()
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEvent, err)
	}
	if err := s.events.SaveSecurityEvent(ctx, event); err != nil {
		return err
	}
	metrics.EventsIngested.WithLabelValues("security").Inc()
	return nil
}
