package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Strob0t/StackForge/internal/middleware"
)

// memStore is an in-memory IdempotencyStore.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func makeTestHandler(counter *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*counter++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *counter)
	})
}

func post(h http.Handler, key, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", http.NoBody)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	req = req.WithContext(middleware.WithUserID(req.Context(), user))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_NoHeader(t *testing.T) {
	counter := 0
	store := newMemStore()
	handler := middleware.Idempotency(store)(makeTestHandler(&counter, http.StatusCreated))

	post(handler, "", "u1")
	post(handler, "", "u1")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
	if store.len() != 0 {
		t.Fatalf("expected nothing stored, got %d", store.len())
	}
}

func TestIdempotency_SecondRequestReplays(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemStore())(makeTestHandler(&counter, http.StatusCreated))

	first := post(handler, "key-1", "u1")
	second := post(handler, "key-1", "u1")

	if counter != 1 {
		t.Fatalf("expected handler called once, got %d", counter)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q, want %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected Idempotent-Replayed header")
	}
}

func TestIdempotency_ScopedPerUser(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemStore())(makeTestHandler(&counter, http.StatusCreated))

	post(handler, "same-key", "u1")
	post(handler, "same-key", "u2")

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}

func TestIdempotency_FailuresNotStored(t *testing.T) {
	counter := 0
	store := newMemStore()
	handler := middleware.Idempotency(store)(makeTestHandler(&counter, http.StatusBadGateway))

	post(handler, "key-fail", "u1")
	post(handler, "key-fail", "u1")

	if counter != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", counter)
	}
	if store.len() != 0 {
		t.Fatalf("expected nothing stored, got %d", store.len())
	}
}

func TestIdempotency_GETIgnored(t *testing.T) {
	counter := 0
	handler := middleware.Idempotency(newMemStore())(makeTestHandler(&counter, http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Idempotency-Key", "key-get")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if counter != 2 {
		t.Fatalf("expected 2 calls, got %d", counter)
	}
}
