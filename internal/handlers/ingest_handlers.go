package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/epeers/fundsync/internal/middleware"
	"github.com/epeers/fundsync/internal/models"
	"github.com/epeers/fundsync/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Ingester runs the pipeline and remembers the last outcome. *services.IngestionService satisfies it.
type Ingester interface {
	Run(ctx context.Context) (*services.RunReport, error)
	LastReport() *services.RunReport
}

// IngestFailureResponse is returned when a run stops at a failing stage.
type IngestFailureResponse struct {
	models.ErrorResponse
	Report *services.RunReport `json:"report"`
}

// IngestHandler handles the admin ingestion endpoints
type IngestHandler struct {
	ingester Ingester
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(ingester Ingester) *IngestHandler {
	return &IngestHandler{ingester: ingester}
}

// Run handles POST /admin/ingest
// @Summary Run the ingestion pipeline
// @Description Provision schema and accounts, fetch fund data and upsert it, then verify reader access
// @Tags admin
// @Produce json
// @Success 200 {object} services.RunReport
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} IngestFailureResponse
// @Router /admin/ingest [post]
func (h *IngestHandler) Run(c *gin.Context) {
	report, err := h.ingester.Run(c.Request.Context())
	if errors.Is(err, services.ErrRunInProgress) {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "run_in_progress",
			Message: err.Error(),
		})
		return
	}
	if err != nil {
		reqID, _ := middleware.GetRequestID(c)
		log.WithError(err).WithField("request_id", reqID).Error("Ingestion run failed")
		c.JSON(http.StatusInternalServerError, IngestFailureResponse{
			ErrorResponse: models.ErrorResponse{
				Error:   "ingest_failed",
				Message: err.Error(),
			},
			Report: report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// LastRun handles GET /admin/ingest/last
// @Summary Get the last ingestion report
// @Tags admin
// @Produce json
// @Success 200 {object} services.RunReport
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/ingest/last [get]
func (h *IngestHandler) LastRun(c *gin.Context) {
	report := h.ingester.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "no ingestion run has completed yet",
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Health handles GET /health
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
}
