package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestMemoryQueue_PublishSubscribe(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	var (
		mu       sync.Mutex
		received []string
	)
	if err := q.Subscribe("training", func(data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(data))
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for _, msg := range []string{"started", "completed"} {
		if err := q.Publish(context.Background(), "training", []byte(msg)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	})
	if received[0] != "started" || received[1] != "completed" {
		t.Errorf("unexpected order: %v", received)
	}
}

func TestMemoryQueue_PublishCopiesData(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	data := []byte("abc")
	if err := q.Publish(context.Background(), "s", data); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	data[0] = 'x'

	got := make(chan string, 1)
	_ = q.Subscribe("s", func(d []byte) error {
		got <- string(d)
		return nil
	})
	select {
	case v := <-got:
		if v != "abc" {
			t.Errorf("expected abc, got %s", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryQueue_Full(t *testing.T) {
	q := newMemoryQueueWithCapacity(2)
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	n, err := q.PublishBatch(ctx, []BatchMessage{
		{Subject: "s", Data: []byte("1")},
		{Subject: "s", Data: []byte("2")},
		{Subject: "s", Data: []byte("3")},
	})
	if err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 published, got %d", n)
	}
	if q.PendingCount("s") != 2 {
		t.Errorf("expected 2 pending, got %d", q.PendingCount("s"))
	}
	if err := q.Publish(ctx, "s", []byte("4")); err == nil {
		t.Error("expected error for full channel")
	}
}

func TestMemoryQueue_ContextCancelled(t *testing.T) {
	q := newMemoryQueue()
	defer func() { _ = q.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Publish(ctx, "s", []byte("x")); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestMemoryQueue_SubscriptionLifecycle(t *testing.T) {
	q := newMemoryQueue()

	handler := func([]byte) error { return nil }
	if err := q.Subscribe("s", handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := q.Subscribe("s", handler); err == nil {
		t.Error("expected error for double subscribe")
	}
	if err := q.Unsubscribe("s"); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
	if err := q.Unsubscribe("s"); err == nil {
		t.Error("expected error for double unsubscribe")
	}

	if err := q.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := q.Publish(context.Background(), "s", []byte("x")); err == nil {
		t.Error("expected error publishing to closed queue")
	}
}
