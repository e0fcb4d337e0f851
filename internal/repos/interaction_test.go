package repos_test

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

func newInteraction(userID, rawEventID uuid.UUID, batchID uuid.UUID) *types.Interaction {
	return &types.Interaction{
		ID:         uuid.New(),
		UserID:     userID,
		RawEventID: rawEventID,
		BatchID:    &batchID,
		Kind:       types.InteractionKindEmail,
		Title:      "subject",
		OccurredAt: time.Now().UTC(),
	}
}

func TestInteractionCreateIgnoreDuplicates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewInteractionRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	batchID := uuid.New()
	rawA := uuid.New()
	rawB := uuid.New()

	created, err := repo.CreateIgnoreDuplicates(ctx, tx, []*types.Interaction{
		newInteraction(userID, rawA, batchID),
		newInteraction(userID, rawB, batchID),
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 created, got %d", created)
	}

	// Re-deriving the same raw events inserts nothing.
	created, err = repo.CreateIgnoreDuplicates(ctx, tx, []*types.Interaction{
		newInteraction(userID, rawA, batchID),
		newInteraction(userID, rawB, batchID),
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected rerun to create nothing, got %d", created)
	}

	rows, err := repo.ListByBatch(ctx, tx, userID, batchID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestInteractionSetEmbedding(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewInteractionRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	batchID := uuid.New()
	row := newInteraction(userID, uuid.New(), batchID)
	if _, err := repo.CreateIgnoreDuplicates(ctx, tx, []*types.Interaction{row}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := repo.SetEmbedding(ctx, tx, row.ID, datatypes.JSON([]byte(`[0.1,0.2]`))); err != nil {
		t.Fatalf("set embedding: %v", err)
	}

	rows, err := repo.ListByBatch(ctx, tx, userID, batchID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].EmbeddedAt == nil {
		t.Fatalf("expected embedded_at set")
	}
	if len(rows[0].Embedding) == 0 {
		t.Fatalf("expected embedding stored")
	}
}
