package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Metadata-Flavor") != "Google" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("attribute-value"))
	}))
	defer server.Close()

	client := New(WithTimeout(2 * time.Second))
	resp, err := client.Get(context.Background(), server.URL, map[string]string{"Metadata-Flavor": "Google"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if resp.Reason != "OK" {
		t.Fatalf("unexpected reason: %q", resp.Reason)
	}
	if string(resp.Body) != "attribute-value" {
		t.Fatalf("unexpected body: %q", resp.Body)
	}
}

func TestGetNon200ReturnsResponseNotError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	resp, err := New().Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("expected non-200 to surface as a response, got error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if resp.Reason != "Not Found" {
		t.Fatalf("unexpected reason: %q", resp.Reason)
	}
}

func TestPostForm(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostFormValue("grant_type") != "testing" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	resp, err := New().PostForm(context.Background(), server.URL, nil, url.Values{"grant_type": {"testing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	if _, err := New().Get(context.Background(), server.URL, nil); err == nil {
		t.Fatal("expected error for refused connection")
	}
}

func TestRateLimitCancelledContext(t *testing.T) {
	t.Parallel()

	// Burst 1 with a tiny refill rate: the first request drains the bucket,
	// the second must block and then honour cancellation.
	client := New(WithRateLimit(0.001, 1))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	if _, err := client.Get(context.Background(), server.URL, nil); err != nil {
		t.Fatalf("unexpected error on first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Get(ctx, server.URL, nil); err == nil {
		t.Fatal("expected error when pacing outlives the context")
	}
}

func TestRateLimitDisabled(t *testing.T) {
	t.Parallel()

	if limiter := newTokenBucketLimiter(0, 10); limiter != nil {
		t.Fatal("expected nil limiter for non-positive rate")
	}
	if limiter := newTokenBucketLimiter(-1, 10); limiter != nil {
		t.Fatal("expected nil limiter for negative rate")
	}
	if limiter := newTokenBucketLimiter(5, 0); limiter == nil {
		t.Fatal("expected limiter for positive rate")
	}
}
