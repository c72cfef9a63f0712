package ingest

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	httperr "github.com/bastion-lab/project-bastion/internal/core/errors"
	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
	"github.com/bastion-lab/project-bastion/internal/metrics"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Failed to persist event"
	msgDuplicateEvent = "Event already exists"
)

// RegisterRoutes registers the ingest API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events/logins", s.HandleIngestLoginEvent)
	r.POST("/v1/events/security", s.HandleIngestSecurityEvent)
}

// HandleIngestLoginEvent handles POST /v1/events/logins
func (s *Service) HandleIngestLoginEvent(c *gin.Context) {
	var event model.LoginEvent
	if !s.bindBody(c, &event) {
		return
	}

	if err := s.IngestLoginEvent(c.Request.Context(), &event); err != nil {
		s.writeIngestError(c, err, "login", event.ID)
		return
	}

	slog.Info("[Ingest] Login event accepted",
		"event_id", event.ID,
		"success", event.Success)
	c.JSON(http.StatusCreated, gin.H{"status": "created", "id": event.ID})
}

// HandleIngestSecurityEvent handles POST /v1/events/security
func (s *Service) HandleIngestSecurityEvent(c *gin.Context) {
	var event model.SecurityEvent
	if !s.bindBody(c, &event) {
		return
	}

	if err := s.IngestSecurityEvent(c.Request.Context(), &event); err != nil {
		s.writeIngestError(c, err, "security", event.ID)
		return
	}

	slog.Info("[Ingest] Security event accepted",
		"event_id", event.ID,
		"event_type", event.EventType,
		"risk_level", event.RiskLevel)
	c.JSON(http.StatusCreated, gin.H{"status": "created", "id": event.ID})
}

// bindBody reads the request body with the configured size cap and binds it
// as JSON. Writes the error response itself and returns false on failure.
func (s *Service) bindBody(c *gin.Context, target interface{}) bool {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   msgReadBodyFailed,
		})
		return false
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		c.JSON(http.StatusRequestEntityTooLarge, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Request body exceeds maximum allowed size",
			Details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		})
		return false
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	if err := c.ShouldBindJSON(target); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   msgInvalidJSON,
			Details:   err.Error(),
		})
		return false
	}
	return true
}

func (s *Service) writeIngestError(c *gin.Context, err error, kind, eventID string) {
	switch {
	case errors.Is(err, ErrInvalidEvent):
		slog.Warn("Event validation failed", "error", err, "event_id", eventID)
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   err.Error(),
		})
	case errors.Is(err, storage.ErrDuplicate):
		slog.Info("Duplicate event rejected", "event_id", eventID, "kind", kind)
		metrics.EventsDuplicate.WithLabelValues(kind).Inc()
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpDuplicateEntryError,
			Message:   msgDuplicateEvent,
		})
	default:
		slog.Error("Failed to persist event", "error", err, "event_id", eventID)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   msgPersistFailed,
		})
	}
}
