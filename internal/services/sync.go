package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/connector"
	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

const (
	defaultOverlapHours = 24
	maxOverlapHours     = 72
	defaultDaysBack     = 90
	maxDaysBack         = 365
)

// SyncOptions controls one ingestion run. Nil OverlapHours/DaysBack take
// the service defaults; values outside the documented bounds are rejected.
type SyncOptions struct {
	Provider     string
	Incremental  bool
	OverlapHours *int
	DaysBack     *int
}

type SyncResult struct {
	BatchID       uuid.UUID `json:"batch_id"`
	InsertedCount int64     `json:"inserted_count"`
	SkippedCount  int64     `json:"skipped_count"`
}

type SyncService interface {
	// Run executes one sync pass: compute the fetch window, drain the
	// connector page by page into the raw event store, then enqueue the
	// pipeline stage jobs for the new batch. Connector failures abort the
	// run before any job is enqueued.
	Run(ctx context.Context, userID uuid.UUID, opts SyncOptions) (*SyncResult, error)
}

type syncService struct {
	db          *gorm.DB
	log         *logger.Logger
	connectors  *connector.Registry
	connections repos.UserConnectionRepo
	rawEvents   repos.RawEventRepo
	jobs        repos.JobRepo
	notify      JobNotifier
}

func NewSyncService(
	db *gorm.DB,
	baseLog *logger.Logger,
	connectors *connector.Registry,
	connections repos.UserConnectionRepo,
	rawEvents repos.RawEventRepo,
	jobs repos.JobRepo,
	notify JobNotifier,
) SyncService {
	return &syncService{
		db:          db,
		log:         baseLog.With("service", "SyncService"),
		connectors:  connectors,
		connections: connections,
		rawEvents:   rawEvents,
		jobs:        jobs,
		notify:      notify,
	}
}

func (s *syncService) Run(ctx context.Context, userID uuid.UUID, opts SyncOptions) (*SyncResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user id: %w", ErrInvalidInput)
	}
	overlap, daysBack, err := resolveWindowBounds(opts)
	if err != nil {
		return nil, err
	}

	conn, err := s.connections.GetByUserProvider(ctx, nil, userID, opts.Provider)
	if err != nil {
		return nil, fmt.Errorf("load connection: %w", err)
	}
	if conn == nil || conn.Status != types.ConnectionStatusActive {
		return nil, connector.ErrNotConnected
	}

	c, ok := s.connectors.Get(opts.Provider)
	if !ok {
		return nil, fmt.Errorf("no connector registered for provider=%s: %w", opts.Provider, ErrInvalidInput)
	}

	now := time.Now()
	window, err := s.computeWindow(ctx, userID, opts, now, overlap, daysBack)
	if err != nil {
		return nil, err
	}

	batchID := uuid.New()
	log := s.log.With("user_id", userID, "provider", opts.Provider, "batch_id", batchID)
	log.Info("Starting sync run", "since", window.Since, "incremental", opts.Incremental)

	var inserted, skipped int64
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sync canceled: %w", err)
		}
		page, err := c.FetchPage(ctx, conn, window, cursor)
		if err != nil {
			if errors.Is(err, connector.ErrNotConnected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("fetch page: %w", connector.FetchFailed(err))
		}
		if page == nil {
			break
		}
		rows := make([]*types.RawEvent, 0, len(page.Events))
		for _, ev := range page.Events {
			row, err := rawEventFrom(userID, opts.Provider, batchID, ev)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		n, err := s.rawEvents.InsertIfAbsent(ctx, nil, rows)
		if err != nil {
			return nil, fmt.Errorf("persist events: %w", err)
		}
		inserted += n
		skipped += int64(len(rows)) - n
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	// All pages are durably stored before any stage job exists, so no
	// handler can ever observe a half-written batch.
	stageJobs, err := s.enqueueStages(ctx, userID, batchID)
	if err != nil {
		return nil, err
	}
	for _, job := range stageJobs {
		s.notify.JobQueued(job)
	}

	log.Info("Sync run complete", "inserted", inserted, "skipped", skipped)
	return &SyncResult{
		BatchID:       batchID,
		InsertedCount: inserted,
		SkippedCount:  skipped,
	}, nil
}

func resolveWindowBounds(opts SyncOptions) (time.Duration, int, error) {
	if opts.Provider != types.ProviderEmail && opts.Provider != types.ProviderCalendar {
		return 0, 0, fmt.Errorf("unknown provider %q: %w", opts.Provider, ErrInvalidInput)
	}
	overlapHours := defaultOverlapHours
	if opts.OverlapHours != nil {
		overlapHours = *opts.OverlapHours
		if overlapHours < 0 || overlapHours > maxOverlapHours {
			return 0, 0, fmt.Errorf("overlap_hours must be within 0..%d: %w", maxOverlapHours, ErrInvalidInput)
		}
	}
	daysBack := defaultDaysBack
	if opts.DaysBack != nil {
		daysBack = *opts.DaysBack
		if daysBack < 1 || daysBack > maxDaysBack {
			return 0, 0, fmt.Errorf("days_back must be within 1..%d: %w", maxDaysBack, ErrInvalidInput)
		}
	}
	return time.Duration(overlapHours) * time.Hour, daysBack, nil
}

func (s *syncService) computeWindow(ctx context.Context, userID uuid.UUID, opts SyncOptions, now time.Time, overlap time.Duration, daysBack int) (connector.Window, error) {
	window := connector.Window{Until: now}
	if opts.Incremental {
		latest, err := s.rawEvents.LatestOccurredAt(ctx, nil, userID, opts.Provider)
		if err != nil {
			return window, fmt.Errorf("resolve incremental bound: %w", err)
		}
		if latest != nil {
			window.Since = latest.Add(-overlap)
			return window, nil
		}
		window.Since = now.AddDate(0, 0, -daysBack)
		return window, nil
	}
	// Full sync: bounded only when the caller asked for a lookback.
	if opts.DaysBack != nil {
		window.Since = now.AddDate(0, 0, -daysBack)
	}
	return window, nil
}

func rawEventFrom(userID uuid.UUID, provider string, batchID uuid.UUID, ev connector.Event) (*types.RawEvent, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode event payload: %w", err)
	}
	var meta datatypes.JSON
	if len(ev.Meta) > 0 {
		raw, err := json.Marshal(ev.Meta)
		if err != nil {
			return nil, fmt.Errorf("encode event meta: %w", err)
		}
		meta = datatypes.JSON(raw)
	}
	now := time.Now()
	row := &types.RawEvent{
		ID:         uuid.New(),
		UserID:     userID,
		Provider:   provider,
		Payload:    datatypes.JSON(payload),
		SourceMeta: meta,
		OccurredAt: ev.OccurredAt,
		BatchID:    &batchID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ev.SourceID != "" {
		sourceID := ev.SourceID
		row.SourceID = &sourceID
	}
	return row, nil
}

// enqueueStages creates the three stage jobs in pipeline order inside one
// transaction. Ordering across sweeps is still only best-effort FIFO;
// handlers guard their own readiness.
func (s *syncService) enqueueStages(ctx context.Context, userID uuid.UUID, batchID uuid.UUID) ([]*types.Job, error) {
	payload, err := json.Marshal(map[string]any{"batch_id": batchID})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	kinds := []string{types.JobKindNormalize, types.JobKindExtractContacts, types.JobKindEmbed}
	stageJobs := make([]*types.Job, 0, len(kinds))
	// created_at is staggered so oldest-first claiming sees stages in order.
	for i, kind := range kinds {
		stageJobs = append(stageJobs, &types.Job{
			ID:        uuid.New(),
			UserID:    userID,
			Kind:      kind,
			BatchID:   &batchID,
			Status:    types.JobStatusQueued,
			Payload:   datatypes.JSON(payload),
			Result:    datatypes.JSON([]byte(`{}`)),
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: now,
		})
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.jobs.Create(ctx, tx, stageJobs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue stage jobs: %w", err)
	}
	return stageJobs, nil
}
