package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/services"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type Options struct {
	SweepInterval   time.Duration
	SweepLimit      int
	Concurrency     int
	MaxAttempts     int
	StaleProcessing time.Duration
}

func (o Options) withDefaults() Options {
	if o.SweepInterval <= 0 {
		o.SweepInterval = 1 * time.Second
	}
	if o.SweepLimit <= 0 {
		o.SweepLimit = 10
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.StaleProcessing <= 0 {
		o.StaleProcessing = 10 * time.Minute
	}
	return o
}

// RunStats summarizes one sweep. Requeued jobs (stage not ready yet)
// count as processed but neither succeeded nor failed.
type RunStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Requeued  int `json:"requeued"`
	Failed    int `json:"failed"`
}

type Worker struct {
	log      *logger.Logger
	repo     repos.JobRepo
	registry *Registry
	notify   services.JobNotifier
	opts     Options
}

func NewWorker(baseLog *logger.Logger, repo repos.JobRepo, registry *Registry, notify services.JobNotifier, opts Options) *Worker {
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		opts:     opts.withDefaults(),
	}
}

// Start launches the background sweep loop. It returns immediately; the
// loop stops when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.RunPending(ctx, w.opts.SweepLimit); err != nil {
					w.log.Warn("Sweep failed", "error", err)
				}
			}
		}
	}()
}

// RunPending claims up to limit runnable jobs and executes them. It is
// safe to call from concurrent sweeps: the claim is a conditional status
// transition, so each job runs at most once per claim.
func (w *Worker) RunPending(ctx context.Context, limit int) (*RunStats, error) {
	if limit <= 0 {
		limit = w.opts.SweepLimit
	}
	ctx, span := otel.Tracer("jobs").Start(ctx, "worker.RunPending")
	defer span.End()

	claimed, err := w.repo.ClaimPending(ctx, nil, limit, w.opts.StaleProcessing)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	stats := &RunStats{Processed: len(claimed)}
	span.SetAttributes(attribute.Int("jobs.claimed", len(claimed)))
	if len(claimed) == 0 {
		return stats, nil
	}
	outcomes := make([]string, len(claimed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)
	for i, job := range claimed {
		g.Go(func() error {
			outcomes[i] = w.runOne(gctx, job)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	for _, outcome := range outcomes {
		switch outcome {
		case outcomeDone:
			stats.Succeeded++
		case outcomeRequeued:
			stats.Requeued++
		case outcomeFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

const (
	outcomeDone     = "done"
	outcomeRequeued = "requeued"
	outcomeFailed   = "failed"
)

func (w *Worker) runOne(ctx context.Context, job *types.Job) string {
	log := w.log.With("job_id", job.ID, "kind", job.Kind)
	w.notify.JobStarted(job)

	h, ok := w.registry.Get(job.Kind)
	if !ok {
		log.Warn("No handler registered")
		return w.fail(ctx, job, 0, &missingHandlerError{Kind: job.Kind})
	}

	result, err := w.execute(ctx, h, job)
	if err == nil {
		raw, mErr := json.Marshal(result)
		if mErr != nil {
			return w.fail(ctx, job, w.opts.MaxAttempts, mErr)
		}
		if err := w.repo.MarkDone(ctx, nil, job.ID, datatypes.JSON(raw)); err != nil {
			log.Error("MarkDone failed", "error", err)
			return outcomeFailed
		}
		w.notify.JobSucceeded(job)
		return outcomeDone
	}
	if errors.Is(err, ErrNotReady) {
		if err := w.repo.Requeue(ctx, nil, job.ID); err != nil {
			log.Error("Requeue failed", "error", err)
			return outcomeFailed
		}
		return outcomeRequeued
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		log.Warn("Job failed permanently", "error", err)
		return w.fail(ctx, job, 0, err)
	}
	log.Warn("Job failed", "error", err, "attempts", job.Attempts)
	return w.fail(ctx, job, w.opts.MaxAttempts, err)
}

// fail records the failure; maxAttempts of zero forces a terminal error.
func (w *Worker) fail(ctx context.Context, job *types.Job, maxAttempts int, cause error) string {
	terminal, err := w.repo.MarkFailed(ctx, nil, job.ID, maxAttempts, cause.Error())
	if err != nil {
		w.log.Error("MarkFailed failed", "job_id", job.ID, "error", err)
		return outcomeFailed
	}
	w.notify.JobFailed(job, terminal)
	return outcomeFailed
}

func (w *Worker) execute(ctx context.Context, h Handler, job *types.Job) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic", "job_id", job.ID, "kind", job.Kind, "panic", r)
			err = &panicError{Val: r}
		}
	}()
	return h.Run(ctx, job)
}
