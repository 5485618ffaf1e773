package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_Allow(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 3, Now: c.Now})

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("a"); !ok {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	ok, retry := rl.Allow("a")
	if ok {
		t.Fatal("fourth request allowed")
	}
	if retry != time.Minute {
		t.Errorf("retry after = %v, want 1m", retry)
	}

	// Other keys are independent.
	if ok, _ := rl.Allow("b"); !ok {
		t.Error("other key rejected")
	}

	c.Advance(time.Minute)
	if ok, _ := rl.Allow("a"); !ok {
		t.Error("request in a new window rejected")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 1, Now: c.Now})
	rl.Allow("a")
	rl.Allow("b")

	if n := rl.Sweep(); n != 0 {
		t.Errorf("swept %d fresh keys", n)
	}
	c.Advance(11 * time.Minute)
	if n := rl.Sweep(); n != 2 {
		t.Errorf("swept %d, want 2", n)
	}
	if rl.ActiveClients() != 0 {
		t.Errorf("active clients = %d, want 0", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 1, Now: c.Now})
	h := rl.Middleware(func(r *http.Request) string { return r.Header.Get("X-Key") }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	send := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Key", "k")
		h.ServeHTTP(rec, r)
		return rec
	}

	if rec := send(); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}
	c.Advance(15 * time.Second)
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "45" {
		t.Errorf("Retry-After = %q, want 45", got)
	}
}
