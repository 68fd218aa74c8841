// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about command handling, cache operations, executor actions,
// and catalog fetches.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCommandHooks(&myCommandHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Command Hooks
// =============================================================================

// CommandHooks receives events from the session command engine.
type CommandHooks interface {
	// OnCommandStart records the start of one command dispatch.
	OnCommandStart(ctx context.Context, command, refID string)

	// OnCommandComplete records the outcome of one command dispatch.
	OnCommandComplete(ctx context.Context, command, refID string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Executor Hooks
// =============================================================================

// ExecutorHooks receives events from action-list execution.
type ExecutorHooks interface {
	// OnActionStart records the start of one pack action.
	OnActionStart(ctx context.Context, pack, action string)

	// OnActionComplete records the outcome of one pack action.
	OnActionComplete(ctx context.Context, pack, action string, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, url string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, url string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, url string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopCommandHooks is a no-op implementation of CommandHooks.
type NoopCommandHooks struct{}

func (NoopCommandHooks) OnCommandStart(context.Context, string, string) {}
func (NoopCommandHooks) OnCommandComplete(context.Context, string, string, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopExecutorHooks is a no-op implementation of ExecutorHooks.
type NoopExecutorHooks struct{}

func (NoopExecutorHooks) OnActionStart(context.Context, string, string) {}
func (NoopExecutorHooks) OnActionComplete(context.Context, string, string, time.Duration, error) {
}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	commandHooks  CommandHooks  = NoopCommandHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	executorHooks ExecutorHooks = NoopExecutorHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetCommandHooks registers custom command hooks.
// This should be called once at application startup before any commands run.
func SetCommandHooks(h CommandHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		commandHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetExecutorHooks registers custom executor hooks.
// This should be called once at application startup before any apply runs.
func SetExecutorHooks(h ExecutorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		executorHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Command returns the registered command hooks.
func Command() CommandHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return commandHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Executor returns the registered executor hooks.
func Executor() ExecutorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return executorHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	commandHooks = NoopCommandHooks{}
	cacheHooks = NoopCacheHooks{}
	executorHooks = NoopExecutorHooks{}
	httpHooks = NoopHTTPHooks{}
}
