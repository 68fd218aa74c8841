package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/packhouse/packhouse/pkg/cache"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	if err := Retry(ctx, 3, time.Millisecond, func() error { calls++; return nil }); err != nil || calls != 1 {
		t.Errorf("success: err=%v calls=%d", err, calls)
	}

	calls = 0
	boom := errors.New("boom")
	if err := Retry(ctx, 3, time.Millisecond, func() error { calls++; return boom }); err != boom || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d, want immediate failure", err, calls)
	}

	calls = 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: boom}
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("retryable: err=%v calls=%d, want success on third attempt", err, calls)
	}

	calls = 0
	err = Retry(ctx, 2, time.Millisecond, func() error { calls++; return &RetryableError{Err: boom} })
	if !errors.Is(err, boom) || calls != 2 {
		t.Errorf("exhausted: err=%v calls=%d", err, calls)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := Retry(cancelled, 3, time.Minute, func() error { return &RetryableError{Err: boom} }); err != context.Canceled {
		t.Errorf("cancelled: err = %v, want context.Canceled", err)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("catalog body"))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "catalog body" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("err = %v, want status 404", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server hit %d times, want 1 (4xx must not retry)", calls.Load())
	}
}

func TestFetchServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	// Cancel during the first backoff wait so the test stays fast; the
	// retryable classification shows up as context.Canceled instead of
	// the immediate status error a 4xx would produce.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := Fetch(ctx, srv.Client(), srv.URL)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled while waiting to retry", err)
	}
}

func TestCachedFetch(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("cached body"))
	}))
	defer srv.Close()

	c := cache.NewMemoryCache()
	for i := 0; i < 3; i++ {
		body, err := CachedFetch(ctx, srv.Client(), c, srv.URL, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "cached body" {
			t.Fatalf("iteration %d body = %q", i, body)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server hit %d times, want 1 (read-through cache)", calls.Load())
	}

	// A nil cache degrades to a plain fetch.
	if _, err := CachedFetch(ctx, srv.Client(), nil, srv.URL, time.Minute); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("server hit %d times after nil-cache fetch, want 2", calls.Load())
	}
}
