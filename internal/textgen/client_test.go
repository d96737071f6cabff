package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAIClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "gpt-4.1-nano" || len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Once upon a time."}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/")
	defer c.Close()
	out, err := c.Generate(context.Background(), Request{Model: "gpt-4.1-nano", Prompt: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Once upon a time." {
		t.Errorf("unexpected output %q", out)
	}
}

func TestOpenAIClientStatusErrors(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"error":{"type":"x","message":"nope"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL)
	_, err := c.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error for 429, got %v", err)
	}

	status = http.StatusUnauthorized
	_, err = c.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	if err == nil || IsRetryable(err) {
		t.Fatalf("expected permanent error for 401, got %v", err)
	}
}

func TestAnthropicClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "ak" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"Part one. "},{"type":"text","text":"Part two."}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak")
	c.url = srv.URL
	out, err := c.Generate(context.Background(), Request{Model: "claude", Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Part one. Part two." {
		t.Errorf("unexpected output %q", out)
	}
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Generate(context.Background(), Request{})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

type flakyGenerator struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (f *flakyGenerator) Generate(ctx context.Context, req Request) (string, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return "", f.err
	}
	return "ok", nil
}

type countingObserver struct{ n atomic.Int32 }

func (o *countingObserver) ObserveGeneration(string, time.Duration, error) { o.n.Add(1) }

func noWait(int) time.Duration { return 0 }

func TestRetryingRecoversFromTransientErrors(t *testing.T) {
	g := &flakyGenerator{failures: 2, err: &RetryableError{StatusCode: 503}}
	stats := NewLLMStats(time.Hour)
	obs := &countingObserver{}
	r := NewRetrying(g, 2, nil, WithBackoff(noWait), WithStats(stats), WithObserver(obs))

	out, err := r.Generate(context.Background(), Request{Model: "m"})
	if err != nil || out != "ok" {
		t.Fatalf("expected ok, got %q, %v", out, err)
	}
	if g.calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", g.calls.Load())
	}
	if snap := stats.Snapshot(); snap.Count != 3 || snap.Failures != 2 {
		t.Errorf("unexpected stats %+v", snap)
	}
	if obs.n.Load() != 3 {
		t.Errorf("expected observer to see 3 attempts, got %d", obs.n.Load())
	}
}

func TestRetryingGivesUp(t *testing.T) {
	g := &flakyGenerator{failures: 10, err: &RetryableError{StatusCode: 500}}
	r := NewRetrying(g, 1, nil, WithBackoff(noWait))
	if _, err := r.Generate(context.Background(), Request{}); !IsRetryable(err) {
		t.Fatalf("expected last retryable error, got %v", err)
	}
	if g.calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", g.calls.Load())
	}
}

func TestRetryingDoesNotRetryPermanentErrors(t *testing.T) {
	g := &flakyGenerator{failures: 10, err: errors.New("bad request")}
	r := NewRetrying(g, 3, nil, WithBackoff(noWait))
	if _, err := r.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if g.calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", g.calls.Load())
	}
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		if d < time.Second || d >= 45*time.Second {
			t.Errorf("attempt %d: backoff %s out of range", attempt, d)
		}
	}
}
