package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/repos/testutil"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

func seedStatusJob(t *testing.T, tx *gorm.DB, userID, batchID uuid.UUID, kind, status, result string) {
	t.Helper()
	log := testutil.Logger(t)
	job := &types.Job{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    kind,
		BatchID: &batchID,
		Status:  status,
	}
	if result != "" {
		job.Result = datatypes.JSON([]byte(result))
	}
	if _, err := repos.NewJobRepo(tx, log).Create(context.Background(), tx, []*types.Job{job}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func TestBatchStatusPrecedenceAndMetrics(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	svc := NewBatchStatusService(tx, log, repos.NewJobRepo(tx, log))
	ctx := context.Background()
	userID := uuid.New()

	t.Run("unknown batch is not_found", func(t *testing.T) {
		status, err := svc.GetBatchStatus(ctx, userID, uuid.New())
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if status.Status != BatchStatusNotFound {
			t.Fatalf("expected not_found, got %s", status.Status)
		}
	})

	t.Run("any error job makes the batch failed", func(t *testing.T) {
		batchID := uuid.New()
		seedStatusJob(t, tx, userID, batchID, types.JobKindNormalize, types.JobStatusDone, `{"events_processed":5}`)
		seedStatusJob(t, tx, userID, batchID, types.JobKindExtractContacts, types.JobStatusError, "")
		seedStatusJob(t, tx, userID, batchID, types.JobKindEmbed, types.JobStatusProcessing, "")

		status, err := svc.GetBatchStatus(ctx, userID, batchID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if status.Status != BatchStatusFailed {
			t.Fatalf("expected failed, got %s", status.Status)
		}
		if status.Summary.TotalJobs != 3 || status.Summary.Failed != 1 || status.Summary.Processing != 1 {
			t.Fatalf("unexpected summary: %+v", status.Summary)
		}
	})

	t.Run("processing beats queued", func(t *testing.T) {
		batchID := uuid.New()
		seedStatusJob(t, tx, userID, batchID, types.JobKindNormalize, types.JobStatusProcessing, "")
		seedStatusJob(t, tx, userID, batchID, types.JobKindEmbed, types.JobStatusQueued, "")

		status, err := svc.GetBatchStatus(ctx, userID, batchID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if status.Status != BatchStatusProcessing {
			t.Fatalf("expected processing, got %s", status.Status)
		}
	})

	t.Run("all done is completed with merged metrics", func(t *testing.T) {
		batchID := uuid.New()
		seedStatusJob(t, tx, userID, batchID, types.JobKindNormalize, types.JobStatusDone, `{"events_processed":8,"interactions_created":8}`)
		seedStatusJob(t, tx, userID, batchID, types.JobKindExtractContacts, types.JobStatusDone, `{"contacts_linked":5}`)
		seedStatusJob(t, tx, userID, batchID, types.JobKindEmbed, types.JobStatusDone, `{"embedded":8}`)

		status, err := svc.GetBatchStatus(ctx, userID, batchID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if status.Status != BatchStatusCompleted {
			t.Fatalf("expected completed, got %s", status.Status)
		}
		s := status.Summary
		if s.EventsProcessed != 8 || s.ContactsLinked != 5 || s.Embedded != 8 {
			t.Fatalf("unexpected metrics: %+v", s)
		}
		if s.Kinds[types.JobKindNormalize].Done != 1 {
			t.Fatalf("expected per-kind counts, got %+v", s.Kinds)
		}
	})

	t.Run("foreign user sees not_found", func(t *testing.T) {
		batchID := uuid.New()
		seedStatusJob(t, tx, userID, batchID, types.JobKindNormalize, types.JobStatusDone, "")

		status, err := svc.GetBatchStatus(ctx, uuid.New(), batchID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if status.Status != BatchStatusNotFound {
			t.Fatalf("expected not_found for foreign user, got %s", status.Status)
		}
	})
}
