package connector

import (
	"fmt"
	"sync"
)

type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

func (r *Registry) Register(c Connector) error {
	if c == nil {
		return fmt.Errorf("nil connector")
	}
	p := c.Provider()
	if p == "" {
		return fmt.Errorf("connector Provider() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connectors[p]; exists {
		return fmt.Errorf("connector already registered for provider=%s", p)
	}
	r.connectors[p] = c
	return nil
}

func (r *Registry) Get(provider string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[provider]
	return c, ok
}
