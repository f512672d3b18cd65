package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/domain/models"
	"github.com/vallesolidario/huellero/internal/reconcile"
	"github.com/vallesolidario/huellero/internal/service/attendance"
)

// RunService is the part of the attendance service exposed over HTTP.
type RunService interface {
	Run(ctx context.Context, from, to time.Time) (*models.RunReport, error)
	Get(ctx context.Context, id string) (*models.RunReport, error)
	Location() *time.Location
}

// RunRequest selects the days to reconcile, both inclusive. From defaults to
// yesterday and To to From.
type RunRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RunHandler triggers reconciliation runs and serves stored reports.
type RunHandler struct {
	svc    RunService
	now    func() time.Time
	logger *zap.Logger
}

// NewRunHandler constructs the HTTP handler adapter.
func NewRunHandler(svc RunService, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{svc: svc, now: time.Now, logger: logger}
}

// Create runs the pipeline over the requested window.
func (h *RunHandler) Create(c *gin.Context) {
	var req RunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid run request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	loc := h.svc.Location()
	yesterday := models.DateOf(h.now().In(loc)).AddDate(0, 0, -1)

	from, err := parseDate(req.From, yesterday, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
		return
	}
	to, err := parseDate(req.To, from, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
		return
	}

	report, err := h.svc.Run(c.Request.Context(), from, to)
	if err != nil {
		status := runErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("reconciliation run failed", zap.Error(err))
		} else {
			h.logger.Warn("reconciliation run rejected", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, report)
}

// Get returns a stored run.
func (h *RunHandler) Get(c *gin.Context) {
	report, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		h.logger.Error("failed loading run", zap.String("run_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, attendance.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrMalformedRow), errors.Is(err, reconcile.ErrInvalidPunch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseDate(value string, fallback time.Time, loc *time.Location) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseInLocation(time.DateOnly, value, loc)
}
