package repos_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/repos/testutil"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

func newQueuedJob(userID uuid.UUID, kind string, batchID uuid.UUID) *types.Job {
	return &types.Job{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    kind,
		BatchID: &batchID,
		Status:  types.JobStatusQueued,
		Payload: datatypes.JSON([]byte(`{}`)),
		Result:  datatypes.JSON([]byte(`{}`)),
	}
}

func TestJobClaimPendingTransitionsAndIsExclusive(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewJobRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	batchID := uuid.New()
	seed := []*types.Job{
		newQueuedJob(userID, types.JobKindNormalize, batchID),
		newQueuedJob(userID, types.JobKindExtractContacts, batchID),
	}
	if _, err := repo.Create(ctx, tx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	claimed, err := repo.ClaimPending(ctx, tx, 10, 10*time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed, got %d", len(claimed))
	}
	for _, job := range claimed {
		if job.Status != types.JobStatusProcessing {
			t.Fatalf("expected processing, got %s", job.Status)
		}
		if job.ClaimedAt == nil {
			t.Fatalf("expected claimed_at to be set")
		}
	}

	// A second sweep finds nothing claimable.
	again, err := repo.ClaimPending(ctx, tx, 10, 10*time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected nothing on second claim, got %d", len(again))
	}
}

func TestJobClaimPendingConcurrentSweepsAreDisjoint(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRepo(db, log)
	ctx := context.Background()

	// Committed rows on the shared pool, so each sweep runs in its own
	// connection and the row locks actually contend.
	userID := uuid.New()
	batchID := uuid.New()
	const total = 20
	seed := make([]*types.Job, 0, total)
	for i := 0; i < total; i++ {
		seed = append(seed, newQueuedJob(userID, types.JobKindNormalize, batchID))
	}
	if _, err := repo.Create(ctx, nil, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	t.Cleanup(func() {
		db.Where("user_id = ?", userID).Delete(&types.Job{})
	})

	const sweeps = 4
	claims := make([][]*types.Job, sweeps)
	errs := make([]error, sweeps)
	var wg sync.WaitGroup
	for i := 0; i < sweeps; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claims[i], errs[i] = repo.ClaimPending(ctx, nil, total, 10*time.Minute)
		}(i)
	}
	wg.Wait()

	seen := map[uuid.UUID]int{}
	claimedTotal := 0
	for i := 0; i < sweeps; i++ {
		if errs[i] != nil {
			t.Fatalf("sweep %d: %v", i, errs[i])
		}
		claimedTotal += len(claims[i])
		for _, job := range claims[i] {
			seen[job.ID]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Fatalf("job %s claimed by %d sweeps", id, n)
		}
	}
	if claimedTotal != total {
		t.Fatalf("expected every job claimed exactly once, got %d of %d", claimedTotal, total)
	}
}

func TestJobClaimPendingReclaimsStaleProcessing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewJobRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	batchID := uuid.New()
	job := newQueuedJob(userID, types.JobKindNormalize, batchID)
	if _, err := repo.Create(ctx, tx, []*types.Job{job}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Simulate a worker that died mid-run an hour ago.
	staleAt := time.Now().Add(-1 * time.Hour)
	if err := tx.Model(&types.Job{}).Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":     types.JobStatusProcessing,
			"claimed_at": staleAt,
		}).Error; err != nil {
		t.Fatalf("mark stale: %v", err)
	}

	claimed, err := repo.ClaimPending(ctx, tx, 10, 10*time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != job.ID {
		t.Fatalf("expected stale job reclaimed, got %d", len(claimed))
	}

	// A fresh processing job is not reclaimable.
	fresh := newQueuedJob(userID, types.JobKindEmbed, batchID)
	if _, err := repo.Create(ctx, tx, []*types.Job{fresh}); err != nil {
		t.Fatalf("seed fresh: %v", err)
	}
	if err := tx.Model(&types.Job{}).Where("id = ?", fresh.ID).
		Updates(map[string]interface{}{
			"status":     types.JobStatusProcessing,
			"claimed_at": time.Now(),
		}).Error; err != nil {
		t.Fatalf("mark fresh: %v", err)
	}
	claimed, err = repo.ClaimPending(ctx, tx, 10, 10*time.Minute)
	if err != nil {
		t.Fatalf("claim fresh: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected fresh processing job left alone, got %d", len(claimed))
	}
}

func TestJobMarkFailedRetriesThenParksTerminal(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewJobRepo(db, log)
	ctx := context.Background()

	const maxAttempts = 3
	userID := uuid.New()
	batchID := uuid.New()
	job := newQueuedJob(userID, types.JobKindNormalize, batchID)
	if _, err := repo.Create(ctx, tx, []*types.Job{job}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		claimed, err := repo.ClaimPending(ctx, tx, 1, 10*time.Minute)
		if err != nil {
			t.Fatalf("claim attempt %d: %v", attempt, err)
		}
		if len(claimed) != 1 {
			t.Fatalf("attempt %d: expected 1 claimed, got %d", attempt, len(claimed))
		}
		terminal, err := repo.MarkFailed(ctx, tx, job.ID, maxAttempts, "boom")
		if err != nil {
			t.Fatalf("mark failed attempt %d: %v", attempt, err)
		}
		wantTerminal := attempt == maxAttempts
		if terminal != wantTerminal {
			t.Fatalf("attempt %d: terminal = %v, want %v", attempt, terminal, wantTerminal)
		}
	}

	got, err := repo.GetByID(ctx, tx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.JobStatusError {
		t.Fatalf("expected terminal error status, got %s", got.Status)
	}
	if got.Attempts != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, got.Attempts)
	}
	if got.LastError == nil || *got.LastError != "boom" {
		t.Fatalf("expected last_error recorded, got %v", got.LastError)
	}
}

func TestJobRequeueDoesNotConsumeAttempt(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewJobRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	batchID := uuid.New()
	job := newQueuedJob(userID, types.JobKindEmbed, batchID)
	if _, err := repo.Create(ctx, tx, []*types.Job{job}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := repo.ClaimPending(ctx, tx, 1, 10*time.Minute); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.Requeue(ctx, tx, job.ID); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.JobStatusQueued {
		t.Fatalf("expected queued, got %s", got.Status)
	}
	if got.Attempts != 0 {
		t.Fatalf("expected attempts unchanged, got %d", got.Attempts)
	}
	if got.ClaimedAt != nil {
		t.Fatalf("expected claimed_at cleared")
	}
}

func TestJobMarkDoneStoresResult(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewJobRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	batchID := uuid.New()
	job := newQueuedJob(userID, types.JobKindNormalize, batchID)
	if _, err := repo.Create(ctx, tx, []*types.Job{job}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.ClaimPending(ctx, tx, 1, 10*time.Minute); err != nil {
		t.Fatalf("claim: %v", err)
	}

	result := datatypes.JSON([]byte(`{"events_processed":7}`))
	if err := repo.MarkDone(ctx, tx, job.ID, result); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.JobStatusDone {
		t.Fatalf("expected done, got %s", got.Status)
	}
	var metrics map[string]int
	if err := json.Unmarshal(got.Result, &metrics); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if metrics["events_processed"] != 7 {
		t.Fatalf("unexpected result: %s", got.Result)
	}
}

func TestJobMarkBatchDoneIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewJobRepo(db, log)
	ctx := context.Background()

	userID := uuid.New()
	batchID := uuid.New()
	seed := []*types.Job{
		newQueuedJob(userID, types.JobKindNormalize, batchID),
		newQueuedJob(userID, types.JobKindExtractContacts, batchID),
	}
	if _, err := repo.Create(ctx, tx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	affected, err := repo.MarkBatchDone(ctx, tx, userID, batchID)
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 affected, got %d", affected)
	}

	affected, err = repo.MarkBatchDone(ctx, tx, userID, batchID)
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected no-op on repeat, got %d", affected)
	}

	// A foreign batch id is a no-op too.
	affected, err = repo.MarkBatchDone(ctx, tx, userID, uuid.New())
	if err != nil {
		t.Fatalf("foreign batch: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected no-op for foreign batch, got %d", affected)
	}
}
