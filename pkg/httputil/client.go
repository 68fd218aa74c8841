package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/packhouse/packhouse/pkg/cache"
	"github.com/packhouse/packhouse/pkg/observability"
)

// maxBodySize bounds how large a fetched document may be (8 MiB).
const maxBodySize = 8 << 20

// Fetch retrieves url with bounded retry. Network failures and 5xx
// responses retry with backoff; other non-2xx statuses fail immediately.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var body []byte
	err := RetryWithBackoff(ctx, func() error {
		start := time.Now()
		observability.HTTP().OnRequest(ctx, http.MethodGet, url)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			observability.HTTP().OnError(ctx, http.MethodGet, url, err)
			return &RetryableError{Err: err}
		}
		defer resp.Body.Close()
		observability.HTTP().OnResponse(ctx, http.MethodGet, url, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 500 {
			return &RetryableError{Err: fmt.Errorf("GET %s: status %d", url, resp.StatusCode)}
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// CachedFetch is Fetch with a read-through cache keyed by the URL.
// Cache failures degrade to a plain fetch.
func CachedFetch(ctx context.Context, client *http.Client, c cache.Cache, url string, ttl time.Duration) ([]byte, error) {
	if c == nil {
		return Fetch(ctx, client, url)
	}
	key := "http:" + cache.Hash([]byte(url))

	if data, hit, err := c.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "http")
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, "http")

	body, err := Fetch(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, body, ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, "http", len(body))
	}
	return body, nil
}
