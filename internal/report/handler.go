package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bastion-lab/project-bastion/internal/analytics"
	httperr "github.com/bastion-lab/project-bastion/internal/core/errors"
	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
	"github.com/bastion-lab/project-bastion/internal/metrics"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// Store is the report surface of the analytics engine: generate on demand
// and read back stored snapshots.
type Store interface {
	Generator
	GetDailyReport(ctx context.Context, date time.Time) (*model.DailyReport, error)
	ListDailyReports(ctx context.Context, limit int) ([]model.DailyReport, error)
}

// Handler serves the daily report API.
type Handler struct {
	store Store
}

// NewHandler creates a report handler over the given store.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers the report API routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/reports/generate", h.HandleGenerate)
	r.GET("/v1/reports", h.HandleList)
	r.GET("/v1/reports/:date", h.HandleGet)
}

// HandleGenerate handles POST /v1/reports/generate
// Query parameters: date (YYYY-MM-DD; empty means today)
func (h *Handler) HandleGenerate(c *gin.Context) {
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid date, expected YYYY-MM-DD",
				Details:   err.Error(),
			})
			return
		}
		date = parsed
	}

	report, err := h.store.GenerateDailyReport(c.Request.Context(), date)
	if err != nil {
		metrics.ReportFailures.Inc()
		slog.Error("Manual report generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to generate daily report",
			Details:   err.Error(),
		})
		return
	}

	metrics.ReportsGenerated.Inc()
	c.JSON(http.StatusOK, report)
}

// HandleGet handles GET /v1/reports/:date
func (h *Handler) HandleGet(c *gin.Context) {
	date, err := time.Parse(dateLayout, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid date, expected YYYY-MM-DD",
			Details:   err.Error(),
		})
		return
	}

	report, err := h.store.GetDailyReport(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpNotFoundError,
				Message:   "No report generated for this date",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to fetch daily report",
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleList handles GET /v1/reports
// Query parameters: limit
func (h *Handler) HandleList(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	reports, err := h.store.ListDailyReports(c.Request.Context(), query.Limit)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid report query",
				Details:   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to list daily reports",
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
