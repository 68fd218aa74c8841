package session

import (
	"context"
	"time"

	"github.com/packhouse/packhouse/pkg/cache"
	pherrors "github.com/packhouse/packhouse/pkg/errors"
	"github.com/packhouse/packhouse/pkg/observability"
)

// DefaultTTL bounds how long an idle session survives between commands.
const DefaultTTL = 30 * time.Minute

// Store keeps sessions in a keyed, TTL-bounded cache. The store is
// externally owned: the engine loads, mutates and writes back per
// command invocation and never assumes exclusive ownership of the
// backing cache's lifecycle.
type Store struct {
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// NewStore creates a session store over a cache backend. A nil keyer
// uses the default key scheme; a non-positive ttl uses DefaultTTL.
func NewStore(c cache.Cache, keyer cache.Keyer, ttl time.Duration) *Store {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, keyer: keyer, ttl: ttl}
}

// Get loads the session for (userID, refID). Returns nil without error
// when no session exists or the stored entry has expired.
func (st *Store) Get(ctx context.Context, userID, refID string) (*State, error) {
	key := st.keyer.SessionKey(userID, refID)
	data, hit, err := st.cache.Get(ctx, key)
	if err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeStore, err, "load session")
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "session")
		return nil, nil
	}
	observability.Cache().OnCacheHit(ctx, "session")

	s, err := FromSnapshot(data)
	if err != nil {
		// A corrupt entry reads as absent; the next command rebuilds it.
		_ = st.cache.Delete(ctx, key)
		return nil, nil
	}
	return s, nil
}

// Set persists a session under its (userID, refID) key, refreshing the
// TTL.
func (st *Store) Set(ctx context.Context, s *State) error {
	data, err := s.Snapshot()
	if err != nil {
		return err
	}
	key := st.keyer.SessionKey(s.UserID, s.RefID)
	if err := st.cache.Set(ctx, key, data, st.ttl); err != nil {
		return pherrors.Wrap(pherrors.ErrCodeStore, err, "persist session")
	}
	observability.Cache().OnCacheSet(ctx, "session", len(data))
	return nil
}

// Delete removes the session for (userID, refID).
func (st *Store) Delete(ctx context.Context, userID, refID string) error {
	key := st.keyer.SessionKey(userID, refID)
	if err := st.cache.Delete(ctx, key); err != nil {
		return pherrors.Wrap(pherrors.ErrCodeStore, err, "delete session")
	}
	return nil
}

// TTL returns the store's configured session lifetime.
func (st *Store) TTL() time.Duration { return st.ttl }
