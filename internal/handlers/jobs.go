package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fathomcrm/fathom-backend/internal/jobs"
	"github.com/fathomcrm/fathom-backend/internal/requestdata"
	"github.com/fathomcrm/fathom-backend/internal/services"
)

type JobsHandler struct {
	jobService services.JobService
	worker     *jobs.Worker
}

func NewJobsHandler(jobService services.JobService, worker *jobs.Worker) *JobsHandler {
	return &JobsHandler{jobService: jobService, worker: worker}
}

// RunPending triggers one worker sweep on demand. Useful for tests and
// deployments that run without the background ticker.
func (jh *JobsHandler) RunPending(c *gin.Context) {
	var req struct {
		Limit int `json:"limit"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	stats, err := jh.worker.RunPending(c.Request.Context(), req.Limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (jh *JobsHandler) Get(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	job, err := jh.jobService.GetForUser(c.Request.Context(), userID, jobID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, job)
}

func (jh *JobsHandler) List(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	var batchID *uuid.UUID
	if raw := c.Query("batch_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
			return
		}
		batchID = &parsed
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	list, err := jh.jobService.ListForUser(c.Request.Context(), userID, batchID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"jobs": list})
}
