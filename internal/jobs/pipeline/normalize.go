package pipeline

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

const snippetMaxLen = 512

// NormalizeHandler derives one Interaction per RawEvent in the batch.
// The unique raw_event_id index makes the derivation idempotent; reruns
// insert nothing new.
type NormalizeHandler struct {
	log          *logger.Logger
	rawEvents    repos.RawEventRepo
	interactions repos.InteractionRepo
}

func NewNormalizeHandler(baseLog *logger.Logger, rawEvents repos.RawEventRepo, interactions repos.InteractionRepo) *NormalizeHandler {
	return &NormalizeHandler{
		log:          baseLog.With("handler", types.JobKindNormalize),
		rawEvents:    rawEvents,
		interactions: interactions,
	}
}

func (h *NormalizeHandler) Kind() string { return types.JobKindNormalize }

func (h *NormalizeHandler) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	batchID, err := batchIDFromPayload(job)
	if err != nil {
		return nil, err
	}
	events, err := h.rawEvents.ListByBatch(ctx, nil, job.UserID, batchID)
	if err != nil {
		return nil, err
	}
	rows := make([]*types.Interaction, 0, len(events))
	for _, ev := range events {
		row, err := interactionFrom(ev)
		if err != nil {
			h.log.Warn("Skipping malformed raw event", "raw_event_id", ev.ID, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	created, err := h.interactions.CreateIgnoreDuplicates(ctx, nil, rows)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"events_processed":     len(events),
		"interactions_created": created,
	}, nil
}

func interactionFrom(ev *types.RawEvent) (*types.Interaction, error) {
	var payload map[string]any
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return nil, err
		}
	}
	kind := types.InteractionKindEmail
	title := stringField(payload, "subject")
	snippet := stringField(payload, "snippet", "body")
	if ev.Provider == types.ProviderCalendar {
		kind = types.InteractionKindMeeting
		title = stringField(payload, "summary", "title")
		snippet = stringField(payload, "description", "snippet")
	}
	row := &types.Interaction{
		ID:         uuid.New(),
		UserID:     ev.UserID,
		RawEventID: ev.ID,
		BatchID:    ev.BatchID,
		Kind:       kind,
		Title:      title,
		Snippet:    truncate(snippet, snippetMaxLen),
		OccurredAt: ev.OccurredAt,
	}
	if participants := payloadParticipants(payload); len(participants) > 0 {
		raw, err := json.Marshal(participants)
		if err != nil {
			return nil, err
		}
		row.Participants = datatypes.JSON(raw)
	}
	return row, nil
}

func stringField(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
