package nats

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/StackForge/internal/logger"
	"github.com/Strob0t/StackForge/internal/port/messagequeue"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

func TestQueue_PublishRejectsInvalidPayload(t *testing.T) {
	// Validation runs before any network access, so a zero Queue suffices.
	q := &Queue{}

	err := q.Publish(context.Background(), messagequeue.SubjectProjectCreated, []byte(`{"owner_id":"u1"}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "missing project_id") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueue_IsConnectedZeroValue(t *testing.T) {
	q := &Queue{}
	if q.IsConnected() {
		t.Fatal("zero Queue reports connected")
	}
}

func TestQueue_PublishSubscribe(t *testing.T) {
	q := testConnect(t)

	want := messagequeue.ProjectEventPayload{
		ProjectID: "p-" + t.Name(),
		OwnerID:   "u1",
		Name:      "Demo App",
		Status:    "ACTIVE",
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var (
		mu       sync.Mutex
		received *messagequeue.ProjectEventPayload
		reqID    string
		done     = make(chan struct{})
		once     sync.Once
	)

	stop, err := q.Subscribe(context.Background(), messagequeue.SubjectProjectCreated, func(ctx context.Context, _ string, d []byte) error {
		var got messagequeue.ProjectEventPayload
		if err := json.Unmarshal(d, &got); err != nil {
			return err
		}
		if got.ProjectID != want.ProjectID {
			return nil
		}
		mu.Lock()
		received = &got
		reqID = logger.RequestID(ctx)
		mu.Unlock()
		once.Do(func() { close(done) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ctx := logger.WithRequestID(context.Background(), "req-abc-123")
	if err := q.Publish(ctx, messagequeue.SubjectProjectCreated, data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()

	if received.Name != want.Name {
		t.Errorf("name = %q, want %q", received.Name, want.Name)
	}
	if reqID != "req-abc-123" {
		t.Errorf("request ID = %q, want %q", reqID, "req-abc-123")
	}
	if !q.IsConnected() {
		t.Error("IsConnected() = false after Connect, want true")
	}
}

func TestQueue_KeyValue(t *testing.T) {
	q := testConnect(t)
	ctx := context.Background()

	kv, err := q.KeyValue(ctx, "stackforge-test-kv", 30*time.Second)
	if err != nil {
		t.Fatalf("KeyValue: %v", err)
	}
	if _, err := kv.Put(ctx, "greeting", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entry, err := kv.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(entry.Value()) != "hello" {
		t.Errorf("value = %q, want %q", entry.Value(), "hello")
	}
}
