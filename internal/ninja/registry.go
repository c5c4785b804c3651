package ninja

import (
	"sync"
	"time"
)

// Registry holds at most one run per key, such as a session token id.
// Runs older than maxAge are stopped and dropped when a new run starts.
type Registry struct {
	mu     sync.Mutex
	runs   map[string]*registryEntry
	maxAge time.Duration
	now    func() time.Time
}

type registryEntry struct {
	run       *Run
	startedAt time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(maxAge time.Duration) *Registry {
	return &Registry{
		runs:   make(map[string]*registryEntry),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Start replaces any run held under key with a new run over levels
func (g *Registry) Start(key string, levels []Level) *Run {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked()
	if old, ok := g.runs[key]; ok {
		old.run.Stop()
	}

	run := NewRun(levels, nil)
	g.runs[key] = &registryEntry{run: run, startedAt: g.now()}
	return run
}

// Get returns the run held under key
func (g *Registry) Get(key string) (*Run, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.runs[key]
	if !ok {
		return nil, false
	}
	return entry.run, true
}

// Remove stops and drops the run held under key
func (g *Registry) Remove(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if entry, ok := g.runs[key]; ok {
		entry.run.Stop()
		delete(g.runs, key)
	}
}

// Len returns the number of runs held
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.runs)
}

func (g *Registry) pruneLocked() {
	if g.maxAge <= 0 {
		return
	}
	now := g.now()
	for key, entry := range g.runs {
		if now.Sub(entry.startedAt) > g.maxAge {
			entry.run.Stop()
			delete(g.runs, key)
		}
	}
}
