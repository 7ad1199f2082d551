package memory

import (
	"context"
	"sync"

	"ballotproxy/contexts/governance/upgrade-proxy/domain/entities"
	"ballotproxy/contexts/governance/upgrade-proxy/ports"
	"ballotproxy/internal/shared/dispatch"
)

// Registry maps deployment addresses to logic providers.
type Registry struct {
	mu    sync.RWMutex
	logic map[entities.Address]dispatch.Logic
}

func NewRegistry() *Registry {
	return &Registry{logic: make(map[entities.Address]dispatch.Logic)}
}

// Register deploys logic at address, replacing any previous deployment there.
func (r *Registry) Register(address string, logic dispatch.Logic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logic[entities.NormalizeAddress(address)] = logic
}

func (r *Registry) Lookup(_ context.Context, address string) (dispatch.Logic, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	logic, ok := r.logic[entities.NormalizeAddress(address)]
	return logic, ok, nil
}

var _ ports.Registry = (*Registry)(nil)
