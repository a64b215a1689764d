package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ticketbot/scheduler"
	"ticketbot/services"
)

// Status exposes the read-only operational surface: job table and recent
// report deliveries.
type Status struct {
	sched *scheduler.Scheduler
	runs  *services.RunRecorder
}

func NewStatus(sched *scheduler.Scheduler, runs *services.RunRecorder) *Status {
	return &Status{sched: sched, runs: runs}
}

func (h *Status) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Status) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.sched.Jobs())
}

func (h *Status) RecentRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	runs, err := h.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch report runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}
