package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/jobs"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

// fakeJobLister stubs just the batch listing the readiness guard needs.
type fakeJobLister struct {
	repos.JobRepo
	siblings []*types.Job
}

func (f *fakeJobLister) ListByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) ([]*types.Job, error) {
	return f.siblings, nil
}

func stageJob(userID uuid.UUID, batchID uuid.UUID, kind, status string) *types.Job {
	return &types.Job{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    kind,
		BatchID: &batchID,
		Status:  status,
		Payload: datatypes.JSON([]byte(`{"batch_id":"` + batchID.String() + `"}`)),
	}
}

func TestPredecessorDone(t *testing.T) {
	userID := uuid.New()
	batchID := uuid.New()
	job := stageJob(userID, batchID, types.JobKindExtractContacts, types.JobStatusProcessing)

	cases := []struct {
		name             string
		normalizeStatus  string
		wantReady        bool
		wantPermanentErr bool
	}{
		{name: "queued predecessor", normalizeStatus: types.JobStatusQueued, wantReady: false},
		{name: "processing predecessor", normalizeStatus: types.JobStatusProcessing, wantReady: false},
		{name: "done predecessor", normalizeStatus: types.JobStatusDone, wantReady: true},
		{name: "failed predecessor", normalizeStatus: types.JobStatusError, wantPermanentErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lister := &fakeJobLister{siblings: []*types.Job{
				stageJob(userID, batchID, types.JobKindNormalize, tc.normalizeStatus),
				job,
			}}
			ready, err := predecessorDone(context.Background(), lister, job, types.JobKindNormalize)
			if tc.wantPermanentErr {
				var perm *jobs.PermanentError
				if !errors.As(err, &perm) {
					t.Fatalf("expected permanent error, got ready=%v err=%v", ready, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ready != tc.wantReady {
				t.Fatalf("ready = %v, want %v", ready, tc.wantReady)
			}
		})
	}

	// No predecessor row at all: nothing to wait for.
	lister := &fakeJobLister{siblings: []*types.Job{job}}
	ready, err := predecessorDone(context.Background(), lister, job, types.JobKindNormalize)
	if err != nil {
		t.Fatalf("no predecessor: %v", err)
	}
	if !ready {
		t.Fatalf("expected ready with no predecessor row")
	}
}

func TestExtractContactsReturnsNotReady(t *testing.T) {
	userID := uuid.New()
	batchID := uuid.New()
	lister := &fakeJobLister{siblings: []*types.Job{
		stageJob(userID, batchID, types.JobKindNormalize, types.JobStatusQueued),
	}}
	h := &ExtractContactsHandler{jobs: lister}

	job := stageJob(userID, batchID, types.JobKindExtractContacts, types.JobStatusProcessing)
	_, err := h.Run(context.Background(), job)
	if !errors.Is(err, jobs.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}
