package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/fathomcrm/fathom-backend/internal/types"
)

// Handler runs one job kind. Run returns the metrics to persist on the
// job row; handlers must be idempotent because a job can be re-executed
// after a crash or a stale reclaim.
type Handler interface {
	Kind() string
	Run(ctx context.Context, job *types.Job) (map[string]any, error)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	kind := h.Kind()
	if kind == "" {
		return fmt.Errorf("handler Kind() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("handler already registered for kind=%s", kind)
	}
	r.handlers[kind] = h
	return nil
}

func (r *Registry) Get(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}
