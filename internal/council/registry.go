package council

import (
	"log"
	"sync"
	"time"
)

// Registry owns one orchestrator per user so the host application can hand
// out and expire them. Orchestrators are never shared between users.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Orchestrator
	newFn    func(userID string) *Orchestrator
}

func NewRegistry(newFn func(userID string) *Orchestrator) *Registry {
	return &Registry{
		sessions: make(map[string]*Orchestrator),
		newFn:    newFn,
	}
}

// Get returns the user's orchestrator, creating it on first use.
func (r *Registry) Get(userID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.sessions[userID]; ok {
		return o
	}
	o := r.newFn(userID)
	r.sessions[userID] = o
	return o
}

// Len is the number of live orchestrators.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SweepExpired shuts down and removes orchestrators idle for longer than
// ttl. Returns how many were removed.
func (r *Registry) SweepExpired(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	removed := 0
	for userID, o := range r.sessions {
		if o.LastActivity().After(cutoff) {
			continue
		}
		if p := o.Phase(); p == PhaseStreaming || p == PhaseIntegrating {
			continue
		}
		o.Shutdown()
		delete(r.sessions, userID)
		removed++
	}
	if removed > 0 {
		log.Printf("🧹 Swept %d expired council sessions", removed)
	}
	return removed
}
