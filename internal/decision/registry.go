// Package decision holds the reference deciders and resolves a decider
// for each request by agentType.
package decision

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"botfarm.ai/internal/agentsync"
	"botfarm.ai/internal/protocol"
)

// Registry dispatches requests to the decider registered for their
// agentType, or to the fallback when none is.
type Registry struct {
	mu       sync.RWMutex
	deciders map[string]agentsync.Decider
	fallback agentsync.Decider
}

func NewRegistry(fallback agentsync.Decider) *Registry {
	return &Registry{deciders: map[string]agentsync.Decider{}, fallback: fallback}
}

// Register binds agentType to d.
func (r *Registry) Register(agentType string, d agentsync.Decider) error {
	if agentType == "" {
		return fmt.Errorf("decision: empty agent type")
	}
	if d == nil {
		return fmt.Errorf("decision: nil decider for %q", agentType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.deciders[agentType]; exists {
		return fmt.Errorf("decision: agent type %q already registered", agentType)
	}
	r.deciders[agentType] = d
	return nil
}

// Resolve returns the decider for agentType, falling back to the default.
func (r *Registry) Resolve(agentType string) (agentsync.Decider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.deciders[agentType]; ok {
		return d, true
	}
	return r.fallback, r.fallback != nil
}

// AgentTypes lists the explicitly registered agent types.
func (r *Registry) AgentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.deciders))
	for t := range r.deciders {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Decide(ctx context.Context, req protocol.AgentSyncRequest) (protocol.AgentSyncResponse, error) {
	d, ok := r.Resolve(req.Input.AgentType)
	if !ok {
		return protocol.AgentSyncResponse{}, &agentsync.FaultError{
			Code:  protocol.ErrNoDecision,
			Cause: fmt.Errorf("no decider for agent type %q", req.Input.AgentType),
		}
	}
	return d.Decide(ctx, req)
}
