package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fathomcrm/fathom-backend/internal/requestdata"
	"github.com/fathomcrm/fathom-backend/internal/services"
)

type SyncHandler struct {
	syncService   services.SyncService
	jobService    services.JobService
	statusService services.BatchStatusService
	undoService   services.UndoService
}

func NewSyncHandler(
	syncService services.SyncService,
	jobService services.JobService,
	statusService services.BatchStatusService,
	undoService services.UndoService,
) *SyncHandler {
	return &SyncHandler{
		syncService:   syncService,
		jobService:    jobService,
		statusService: statusService,
		undoService:   undoService,
	}
}

// Trigger starts a sync. With async=true the run happens on the job
// worker and the response carries the queued job; otherwise the
// ingestion runs inline and the response carries the batch result.
func (sh *SyncHandler) Trigger(c *gin.Context) {
	var req struct {
		Provider     string `json:"provider"`
		Incremental  bool   `json:"incremental"`
		OverlapHours *int   `json:"overlap_hours"`
		DaysBack     *int   `json:"days_back"`
		Async        bool   `json:"async"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	opts := services.SyncOptions{
		Provider:     req.Provider,
		Incremental:  req.Incremental,
		OverlapHours: req.OverlapHours,
		DaysBack:     req.DaysBack,
	}
	if req.Async {
		job, err := sh.jobService.EnqueueProviderSync(c.Request.Context(), userID, opts)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondOK(c, gin.H{"job": job})
		return
	}
	result, err := sh.syncService.Run(c.Request.Context(), userID, opts)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (sh *SyncHandler) BatchStatus(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	status, err := sh.statusService.GetBatchStatus(c.Request.Context(), userID, batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, status)
}

func (sh *SyncHandler) UndoBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	result, err := sh.undoService.Undo(c.Request.Context(), userID, batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
