package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/fathomcrm/fathom-backend/internal/ai"
	"github.com/fathomcrm/fathom-backend/internal/jobs"
	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

const embedBatchSize = 64

// EmbedHandler computes and stores an embedding for every interaction
// in the batch that does not have one yet. Reruns only pick up rows
// still missing a vector, so a partial failure resumes where it left
// off.
type EmbedHandler struct {
	log          *logger.Logger
	jobs         repos.JobRepo
	interactions repos.InteractionRepo
	ai           ai.Client
}

func NewEmbedHandler(baseLog *logger.Logger, jobRepo repos.JobRepo, interactions repos.InteractionRepo, aiClient ai.Client) *EmbedHandler {
	return &EmbedHandler{
		log:          baseLog.With("handler", types.JobKindEmbed),
		jobs:         jobRepo,
		interactions: interactions,
		ai:           aiClient,
	}
}

func (h *EmbedHandler) Kind() string { return types.JobKindEmbed }

func (h *EmbedHandler) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	ready, err := predecessorDone(ctx, h.jobs, job, types.JobKindExtractContacts)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, jobs.ErrNotReady
	}
	batchID, err := batchIDFromPayload(job)
	if err != nil {
		return nil, err
	}
	rows, err := h.interactions.ListByBatch(ctx, nil, job.UserID, batchID)
	if err != nil {
		return nil, err
	}
	if h.ai == nil {
		h.log.Warn("No embedding client configured, skipping batch", "batch_id", batchID)
		return map[string]any{"interactions_seen": len(rows), "embedded": 0, "skipped": true}, nil
	}
	pending := make([]*types.Interaction, 0, len(rows))
	for _, row := range rows {
		if row.EmbeddedAt != nil {
			continue
		}
		if strings.TrimSpace(row.Title+row.Snippet) == "" {
			continue
		}
		pending = append(pending, row)
	}
	embedded := 0
	for start := 0; start < len(pending); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]
		n, err := h.embedChunk(ctx, chunk)
		embedded += n
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"interactions_seen": len(rows),
		"embedded":          embedded,
	}, nil
}

func (h *EmbedHandler) embedChunk(ctx context.Context, chunk []*types.Interaction) (int, error) {
	inputs := make([]string, len(chunk))
	for i, row := range chunk {
		inputs[i] = embedText(row)
	}
	vectors, err := h.ai.Embed(ctx, inputs)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunk) {
		return 0, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(chunk), len(vectors))
	}
	stored := 0
	for i, row := range chunk {
		raw, err := json.Marshal(vectors[i])
		if err != nil {
			return stored, err
		}
		if err := h.interactions.SetEmbedding(ctx, nil, row.ID, datatypes.JSON(raw)); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

func embedText(row *types.Interaction) string {
	if row.Snippet == "" {
		return row.Title
	}
	return row.Title + "\n" + row.Snippet
}
