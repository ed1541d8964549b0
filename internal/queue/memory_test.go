package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueueDeliversToWorkers(t *testing.T) {
	q := NewMemoryQueue(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 3)
	q.Start(ctx, 2, func(ctx context.Context, msg Message) error {
		mu.Lock()
		seen[msg.DeliveryID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Send(ctx, Message{DeliveryID: id}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i+1)
		}
	}
	cancel()
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 deliveries, got %v", seen)
	}
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Send(context.Background(), Message{DeliveryID: "a"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Send(context.Background(), Message{DeliveryID: "b"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 buffered message, got %d", q.Len())
	}
}
