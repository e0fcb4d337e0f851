package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/repos/testutil"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

func TestNormalizeHandlerDerivesInteractionsOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	rawEvents := repos.NewRawEventRepo(tx, log)
	interactions := repos.NewInteractionRepo(tx, log)

	userID := uuid.New()
	batchID := uuid.New()
	now := time.Now().UTC()
	sourceA := "msg-a"
	sourceB := "evt-b"
	seed := []*types.RawEvent{
		{
			ID:         uuid.New(),
			UserID:     userID,
			Provider:   types.ProviderEmail,
			SourceID:   &sourceA,
			Payload:    datatypes.JSON([]byte(`{"subject":"Kickoff","snippet":"See agenda","from":"peer@acme.com"}`)),
			OccurredAt: now.Add(-time.Hour),
			BatchID:    &batchID,
		},
		{
			ID:         uuid.New(),
			UserID:     userID,
			Provider:   types.ProviderCalendar,
			SourceID:   &sourceB,
			Payload:    datatypes.JSON([]byte(`{"summary":"Kickoff call","description":"Dial-in below"}`)),
			OccurredAt: now,
			BatchID:    &batchID,
		},
	}
	if _, err := rawEvents.InsertIfAbsent(ctx, tx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h := NewNormalizeHandler(log, rawEvents, interactions)
	job := stageJob(userID, batchID, types.JobKindNormalize, types.JobStatusProcessing)

	result, err := h.Run(ctx, job)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result["events_processed"] != 2 {
		t.Fatalf("expected 2 events processed, got %v", result["events_processed"])
	}
	if result["interactions_created"] != int64(2) {
		t.Fatalf("expected 2 interactions created, got %v", result["interactions_created"])
	}

	rows, err := interactions.ListByBatch(ctx, tx, userID, batchID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 interactions, got %d", len(rows))
	}
	kinds := map[string]bool{}
	for _, row := range rows {
		kinds[row.Kind] = true
	}
	if !kinds[types.InteractionKindEmail] || !kinds[types.InteractionKindMeeting] {
		t.Fatalf("expected one email and one meeting, got %v", kinds)
	}

	// Rerunning the stage derives nothing new.
	result, err = h.Run(ctx, job)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if result["interactions_created"] != int64(0) {
		t.Fatalf("expected rerun to create nothing, got %v", result["interactions_created"])
	}
}
