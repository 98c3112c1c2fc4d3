package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/groundwork/internal/middleware"
	"github.com/stwalsh4118/groundwork/internal/report"
	"github.com/stwalsh4118/groundwork/internal/repository"
)

// ReportHandler exposes the post-load validation report and table counts to
// operators.
type ReportHandler struct {
	validator *report.Validator
	stats     repository.StatsRepository
}

// NewReportHandler creates a new ReportHandler instance.
func NewReportHandler(validator *report.Validator, stats repository.StatsRepository) *ReportHandler {
	return &ReportHandler{validator: validator, stats: stats}
}

// Report handles GET /api/v1/report. It runs the full read-only validation
// pass and returns the structured report.
func (h *ReportHandler) Report(c *gin.Context) {
	r, err := h.validator.Run(c.Request.Context())
	if err != nil {
		if log := middleware.GetLogger(c); log != nil {
			log.Error("Validation run failed", err, nil)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":       "VALIDATION_RUN_FAILED",
				"message":    "Failed to run the validation report",
				"request_id": middleware.GetRequestID(c),
			},
		})
		return
	}

	c.JSON(http.StatusOK, r)
}

// TablesResponse represents the table counts response.
type TablesResponse struct {
	Tables map[string]int64 `json:"tables"`
}

// Tables handles GET /api/v1/tables. It returns row counts for every table
// the pipeline touches.
func (h *ReportHandler) Tables(c *gin.Context) {
	counts, err := h.stats.TableCounts(c.Request.Context())
	if err != nil {
		if log := middleware.GetLogger(c); log != nil {
			log.Error("Table count query failed", err, nil)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":       "TABLE_COUNTS_FAILED",
				"message":    "Failed to count table rows",
				"request_id": middleware.GetRequestID(c),
			},
		})
		return
	}

	c.JSON(http.StatusOK, TablesResponse{Tables: counts})
}
