// Package cache provides keyed, TTL-bounded byte storage used by the
// session store and the catalog provider.
//
// Backends:
//   - memory: in-process map for development and tests
//   - file: on-disk entries for CLI usage
//   - redis: shared storage for multi-instance deployments
//   - null: disabled caching
//
// All backends expose the same Cache interface with get/set/delete
// semantics; expired entries read as misses.
package cache

import (
	"context"
	"time"
)

// Cache is the interface implemented by all storage backends.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A zero TTL stores the value
	// without expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the application's storage concerns.
type Keyer interface {
	// SessionKey generates the key under which one user's selection
	// session for one catalog ref is stored.
	SessionKey(userID, refID string) string

	// ManifestKey generates the key for a cached catalog document.
	ManifestKey(repoURL, ref string) string
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// SessionKey returns "session:" followed by a hash of (userID, refID).
func (k *DefaultKeyer) SessionKey(userID, refID string) string {
	return hashKey("session", userID, refID)
}

// ManifestKey returns "manifest:" followed by a hash of (repoURL, ref).
func (k *DefaultKeyer) ManifestKey(repoURL, ref string) string {
	return hashKey("manifest", repoURL, ref)
}

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to all keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SessionKey generates a prefixed session key.
func (k *ScopedKeyer) SessionKey(userID, refID string) string {
	return k.prefix + k.inner.SessionKey(userID, refID)
}

// ManifestKey generates a prefixed manifest key.
func (k *ScopedKeyer) ManifestKey(repoURL, ref string) string {
	return k.prefix + k.inner.ManifestKey(repoURL, ref)
}
