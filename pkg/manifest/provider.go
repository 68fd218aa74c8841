package manifest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/packhouse/packhouse/pkg/cache"
	pherrors "github.com/packhouse/packhouse/pkg/errors"
	"github.com/packhouse/packhouse/pkg/observability"
)

// Provider returns the parsed catalog for a (repoURL, ref) pair. The
// catalog fetch itself (mirroring, checkout, raw document retrieval) is
// owned by an external collaborator; implementations here only adapt
// already-available documents.
type Provider interface {
	Manifest(ctx context.Context, repoURL, ref string) (*Manifest, error)
}

// StaticProvider serves one preloaded manifest for every request.
// Used in tests and in CLI invocations that load a catalog from disk.
type StaticProvider struct {
	m *Manifest
}

// NewStaticProvider wraps a manifest as a Provider.
func NewStaticProvider(m *Manifest) *StaticProvider {
	return &StaticProvider{m: m}
}

// Manifest returns the wrapped manifest regardless of repoURL and ref.
func (p *StaticProvider) Manifest(ctx context.Context, repoURL, ref string) (*Manifest, error) {
	if p.m == nil {
		return nil, pherrors.New(pherrors.ErrCodeNotFound, "no catalog loaded")
	}
	return p.m, nil
}

// FileProvider loads the manifest from a local file on every request.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider reading the catalog at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Manifest loads and parses the catalog file.
func (p *FileProvider) Manifest(ctx context.Context, repoURL, ref string) (*Manifest, error) {
	return LoadFile(p.path)
}

// CachedProvider wraps a Provider with TTL-bounded caching of the parsed
// manifest, keyed by (repoURL, ref).
type CachedProvider struct {
	inner Provider
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// DefaultManifestTTL bounds how stale a cached catalog may be.
const DefaultManifestTTL = 5 * time.Minute

// NewCachedProvider creates a caching wrapper. A nil cache disables
// caching; a nil keyer uses the default key scheme; a zero ttl uses
// DefaultManifestTTL.
func NewCachedProvider(inner Provider, c cache.Cache, keyer cache.Keyer, ttl time.Duration) *CachedProvider {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if ttl <= 0 {
		ttl = DefaultManifestTTL
	}
	return &CachedProvider{inner: inner, cache: c, keyer: keyer, ttl: ttl}
}

// Manifest returns the cached catalog when present, delegating to the
// wrapped provider on a miss. Cache failures degrade to a fetch rather
// than failing the request.
func (p *CachedProvider) Manifest(ctx context.Context, repoURL, ref string) (*Manifest, error) {
	key := p.keyer.ManifestKey(repoURL, ref)

	if data, hit, err := p.cache.Get(ctx, key); err == nil && hit {
		var m Manifest
		if err := json.Unmarshal(data, &m); err == nil {
			observability.Cache().OnCacheHit(ctx, "manifest")
			return m.Normalize(), nil
		}
		_ = p.cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "manifest")

	m, err := p.inner.Manifest(ctx, repoURL, ref)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(m); err == nil {
		if err := p.cache.Set(ctx, key, data, p.ttl); err == nil {
			observability.Cache().OnCacheSet(ctx, "manifest", len(data))
		}
	}
	return m, nil
}
