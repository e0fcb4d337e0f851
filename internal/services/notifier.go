package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

// JobNotifier publishes job lifecycle events for anything watching a sync
// (UI polling fallback stays the status endpoint; this is the push side).
type JobNotifier interface {
	JobQueued(job *types.Job)
	JobStarted(job *types.Job)
	JobSucceeded(job *types.Job)
	JobFailed(job *types.Job, terminal bool)
	Close() error
}

type jobEvent struct {
	Event   string    `json:"event"`
	JobID   string    `json:"job_id"`
	UserID  string    `json:"user_id"`
	Kind    string    `json:"kind"`
	BatchID string    `json:"batch_id,omitempty"`
	At      time.Time `json:"at"`
}

type redisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisJobNotifier connects to Redis and publishes job events on a
// single channel. Missing REDIS_ADDR is an error; callers that want to run
// without Redis use NewNoopJobNotifier instead.
func NewRedisJobNotifier(log *logger.Logger) (JobNotifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_JOB_CHANNEL"))
	if ch == "" {
		ch = "jobs"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisNotifier{
		log:     log.With("service", "RedisJobNotifier"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (n *redisNotifier) publish(event string, job *types.Job) {
	if job == nil {
		return
	}
	msg := jobEvent{
		Event:  event,
		JobID:  job.ID.String(),
		UserID: job.UserID.String(),
		Kind:   job.Kind,
		At:     time.Now(),
	}
	if job.BatchID != nil {
		msg.BatchID = job.BatchID.String()
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		// Notification loss is acceptable; the jobs table stays authoritative.
		n.log.Warn("publish job event failed", "event", event, "job_id", job.ID, "error", err)
	}
}

func (n *redisNotifier) JobQueued(job *types.Job)    { n.publish("job.queued", job) }
func (n *redisNotifier) JobStarted(job *types.Job)   { n.publish("job.started", job) }
func (n *redisNotifier) JobSucceeded(job *types.Job) { n.publish("job.succeeded", job) }
func (n *redisNotifier) JobFailed(job *types.Job, terminal bool) {
	if terminal {
		n.publish("job.failed", job)
		return
	}
	n.publish("job.retrying", job)
}
func (n *redisNotifier) Close() error { return n.rdb.Close() }

type noopNotifier struct{}

func NewNoopJobNotifier() JobNotifier { return noopNotifier{} }

func (noopNotifier) JobQueued(*types.Job)       {}
func (noopNotifier) JobStarted(*types.Job)      {}
func (noopNotifier) JobSucceeded(*types.Job)    {}
func (noopNotifier) JobFailed(*types.Job, bool) {}
func (noopNotifier) Close() error               { return nil }
