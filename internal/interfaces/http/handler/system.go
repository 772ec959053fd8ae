package handler

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/ledgercrm/backend/internal/infrastructure/scheduler"
	"github.com/ledgercrm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// JobHistorySource exposes recent scheduled sync runs for monitoring.
type JobHistorySource interface {
	GetJobHistory(limit int) []scheduler.JobRecord
}

// SystemHandler handles system-related API endpoints
// @name HandlerSystemInfoResponse
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	jobs      JobHistorySource
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
	}
}

// SetJobHistorySource attaches the scheduler's job history. Left unset
// when the scheduler is disabled.
func (h *SystemHandler) SetJobHistorySource(src JobHistorySource) {
	h.jobs = src
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"LedgerCRM Backend API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns basic system information including version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "LedgerCRM Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// ListSyncJobs godoc
// @ID           listSystemSyncJobs
// @Summary      List recent scheduled sync jobs
// @Description  Returns the in-memory history of scheduled sync runs, newest first
// @Tags         system
// @Produce      json
// @Param        limit query int false "Maximum jobs returned" default(20)
// @Success      200 {object} APIResponse[[]scheduler.JobRecord]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/sync-jobs [get]
func (h *SystemHandler) ListSyncJobs(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.BadRequest(c, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	records := []scheduler.JobRecord{}
	if h.jobs != nil {
		records = h.jobs.GetJobHistory(limit)
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(records))
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Simple ping endpoint to check if the API is responsive
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
