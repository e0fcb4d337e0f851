package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fathomcrm/fathom-backend/internal/connector"
	"github.com/fathomcrm/fathom-backend/internal/jobs"
	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/services"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

// ProviderSyncHandler executes a queued sync request. The sync service
// does the actual work and enqueues the downstream stage jobs itself.
type ProviderSyncHandler struct {
	log  *logger.Logger
	sync services.SyncService
}

func NewProviderSyncHandler(baseLog *logger.Logger, sync services.SyncService) *ProviderSyncHandler {
	return &ProviderSyncHandler{
		log:  baseLog.With("handler", types.JobKindProviderSync),
		sync: sync,
	}
}

func (h *ProviderSyncHandler) Kind() string { return types.JobKindProviderSync }

func (h *ProviderSyncHandler) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	var payload struct {
		Provider     string `json:"provider"`
		Incremental  bool   `json:"incremental"`
		OverlapHours *int   `json:"overlap_hours"`
		DaysBack     *int   `json:"days_back"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobs.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	res, err := h.sync.Run(ctx, job.UserID, services.SyncOptions{
		Provider:     payload.Provider,
		Incremental:  payload.Incremental,
		OverlapHours: payload.OverlapHours,
		DaysBack:     payload.DaysBack,
	})
	if err != nil {
		// A missing or revoked connection will not heal on retry.
		if errors.Is(err, connector.ErrNotConnected) || errors.Is(err, services.ErrInvalidInput) {
			return nil, jobs.Permanent(err)
		}
		return nil, err
	}
	return map[string]any{
		"batch_id":       res.BatchID,
		"inserted_count": res.InsertedCount,
		"skipped_count":  res.SkippedCount,
	}, nil
}
