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

func strPtr(s string) *string { return &s }

func newRawEvent(userID uuid.UUID, provider, sourceID string, batchID uuid.UUID, occurredAt time.Time) *types.RawEvent {
	return &types.RawEvent{
		ID:         uuid.New(),
		UserID:     userID,
		Provider:   provider,
		SourceID:   strPtr(sourceID),
		Payload:    datatypes.JSON([]byte(`{"subject":"hello"}`)),
		OccurredAt: occurredAt,
		BatchID:    &batchID,
	}
}

func TestRawEventInsertIfAbsentDeduplicates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewRawEventRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	batchA := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	first := []*types.RawEvent{
		newRawEvent(userID, types.ProviderEmail, "msg-1", batchA, now.Add(-2*time.Hour)),
		newRawEvent(userID, types.ProviderEmail, "msg-2", batchA, now.Add(-1*time.Hour)),
	}
	inserted, err := repo.InsertIfAbsent(ctx, tx, first)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted, got %d", inserted)
	}

	// Same source ids in a later batch: both rows already exist.
	batchB := uuid.New()
	second := []*types.RawEvent{
		newRawEvent(userID, types.ProviderEmail, "msg-1", batchB, now.Add(-2*time.Hour)),
		newRawEvent(userID, types.ProviderEmail, "msg-2", batchB, now.Add(-1*time.Hour)),
		newRawEvent(userID, types.ProviderEmail, "msg-3", batchB, now),
	}
	inserted, err = repo.InsertIfAbsent(ctx, tx, second)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 inserted on overlap, got %d", inserted)
	}

	// Same source id, different user: no collision.
	otherUser := uuid.New()
	inserted, err = repo.InsertIfAbsent(ctx, tx, []*types.RawEvent{
		newRawEvent(otherUser, types.ProviderEmail, "msg-1", uuid.New(), now),
	})
	if err != nil {
		t.Fatalf("other user insert: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected insert for other user, got %d", inserted)
	}
}

func TestRawEventLatestOccurredAt(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewRawEventRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	latest, err := repo.LatestOccurredAt(ctx, tx, userID, types.ProviderEmail)
	if err != nil {
		t.Fatalf("empty store: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil latest for empty store, got %v", latest)
	}

	batchID := uuid.New()
	newest := time.Now().UTC().Truncate(time.Second)
	events := []*types.RawEvent{
		newRawEvent(userID, types.ProviderEmail, "a", batchID, newest.Add(-48*time.Hour)),
		newRawEvent(userID, types.ProviderEmail, "b", batchID, newest),
		newRawEvent(userID, types.ProviderCalendar, "c", batchID, newest.Add(24*time.Hour)),
	}
	if _, err := repo.InsertIfAbsent(ctx, tx, events); err != nil {
		t.Fatalf("seed: %v", err)
	}

	latest, err = repo.LatestOccurredAt(ctx, tx, userID, types.ProviderEmail)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || !latest.Equal(newest) {
		t.Fatalf("expected %v, got %v", newest, latest)
	}
}

func TestRawEventDeleteByBatchScopedToUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewRawEventRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	otherUser := uuid.New()
	batchID := uuid.New()
	now := time.Now().UTC()

	seed := []*types.RawEvent{
		newRawEvent(userID, types.ProviderEmail, "x1", batchID, now),
		newRawEvent(userID, types.ProviderEmail, "x2", batchID, now),
		newRawEvent(otherUser, types.ProviderEmail, "x3", batchID, now),
	}
	if _, err := repo.InsertIfAbsent(ctx, tx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	deleted, err := repo.DeleteByBatch(ctx, tx, userID, batchID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	remaining, err := repo.CountByBatch(ctx, tx, otherUser, batchID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected other user's row to survive, got %d", remaining)
	}
}
