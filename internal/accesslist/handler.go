package accesslist

import (
	"errors"
	"log/slog"
	"net/http"

	httperr "github.com/bastion-lab/project-bastion/internal/core/errors"
	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the access-list API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/access-entries", s.HandleList)
	r.POST("/v1/access-entries", s.HandleCreate)
	r.GET("/v1/access-entries/:id", s.HandleGet)
	r.PUT("/v1/access-entries/:id", s.HandleUpdate)
	r.DELETE("/v1/access-entries/:id", s.HandleDeactivate)
}

type entryURI struct {
	ID int64 `uri:"id" binding:"required"`
}

func writeAccessError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidEntry):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   message,
			Details:   err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Access entry not found",
		})
	case errors.Is(err, storage.ErrDuplicate):
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpDuplicateEntryError,
			Message:   "An entry for this IP address already exists",
		})
	default:
		slog.Error("Access list operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   message,
			Details:   err.Error(),
		})
	}
}

// HandleList handles GET /v1/access-entries
// Query parameters: active_only
func (s *Service) HandleList(c *gin.Context) {
	var query struct {
		ActiveOnly bool `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	entries, err := s.List(c.Request.Context(), query.ActiveOnly)
	if err != nil {
		writeAccessError(c, err, "Failed to list access entries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_entries": entries})
}

// HandleCreate handles POST /v1/access-entries
func (s *Service) HandleCreate(c *gin.Context) {
	var entry model.AccessEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	if err := s.Create(c.Request.Context(), &entry); err != nil {
		writeAccessError(c, err, "Failed to create access entry")
		return
	}

	slog.Info("[AccessList] Entry created",
		"entry_id", entry.ID,
		"ip_address", entry.IPAddress,
		"access_level", entry.AccessLevel)
	c.JSON(http.StatusCreated, entry)
}

// HandleGet handles GET /v1/access-entries/:id
func (s *Service) HandleGet(c *gin.Context) {
	var uri entryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	entry, err := s.Get(c.Request.Context(), uri.ID)
	if err != nil {
		writeAccessError(c, err, "Failed to fetch access entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// HandleUpdate handles PUT /v1/access-entries/:id
func (s *Service) HandleUpdate(c *gin.Context) {
	var uri entryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	var entry model.AccessEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	updated, err := s.Update(c.Request.Context(), uri.ID, &entry)
	if err != nil {
		writeAccessError(c, err, "Failed to update access entry")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// HandleDeactivate handles DELETE /v1/access-entries/:id
// Entries are soft-deleted: the row stays, marked inactive.
func (s *Service) HandleDeactivate(c *gin.Context) {
	var uri entryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	if err := s.Deactivate(c.Request.Context(), uri.ID); err != nil {
		writeAccessError(c, err, "Failed to deactivate access entry")
		return
	}

	slog.Info("[AccessList] Entry deactivated", "entry_id", uri.ID)
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
