// Package installed provides the installed-pack registry port: given a
// catalog ref and a pack name, which version (if any) is currently
// installed on the wiki.
//
// The engine consumes only the Lookup interface. StaticLookup serves
// tests and CLI runs; MongoRegistry persists versions for deployments
// and doubles as the executor's bookkeeping target.
package installed

import (
	"context"
	"sync"
)

// Lookup reports the currently installed version of a pack.
type Lookup interface {
	// CurrentVersion returns the installed version of pack under refID.
	// The second return value is false when the pack is not installed.
	CurrentVersion(ctx context.Context, refID, pack string) (string, bool, error)
}

// StaticLookup is a fixed pack→version table for a single ref.
type StaticLookup map[string]string

// CurrentVersion looks the pack up in the table, ignoring refID.
func (l StaticLookup) CurrentVersion(ctx context.Context, refID, pack string) (string, bool, error) {
	v, ok := l[pack]
	return v, ok, nil
}

// MemoryRegistry is a mutable in-process registry keyed by (refID, pack).
// It implements both Lookup and the recording side used by executors.
type MemoryRegistry struct {
	mu       sync.RWMutex
	versions map[string]map[string]string // refID -> pack -> version
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{versions: make(map[string]map[string]string)}
}

// CurrentVersion returns the recorded version for (refID, pack).
func (r *MemoryRegistry) CurrentVersion(ctx context.Context, refID, pack string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.versions[refID][pack]
	return v, ok, nil
}

// Record stores the installed version for (refID, pack).
func (r *MemoryRegistry) Record(ctx context.Context, refID, pack, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.versions[refID] == nil {
		r.versions[refID] = make(map[string]string)
	}
	r.versions[refID][pack] = version
	return nil
}

// Remove drops the installed record for (refID, pack).
func (r *MemoryRegistry) Remove(ctx context.Context, refID, pack string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions[refID], pack)
	return nil
}

// Ensure MemoryRegistry implements Lookup.
var _ Lookup = (*MemoryRegistry)(nil)
