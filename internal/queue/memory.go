package queue

import (
	"context"
	"errors"
	"sync"

	"usely-backend/internal/shared/telemetry"
)

// ErrQueueFull is returned by MemoryQueue.Send when the buffer is exhausted.
var ErrQueueFull = errors.New("queue full")

// HandlerFunc processes one message.
type HandlerFunc func(ctx context.Context, msg Message) error

// MemoryQueue is an in-process queue drained by a fixed worker pool.
// Messages are lost on restart; it backs single-instance deployments.
type MemoryQueue struct {
	ch      chan Message
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &MemoryQueue{ch: make(chan Message, buffer)}
}

// Send enqueues without blocking.
func (q *MemoryQueue) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches workers that call handle until ctx is canceled.
// Handler errors are logged; there is no redelivery.
func (q *MemoryQueue) Start(ctx context.Context, workers int, handle HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func(worker int) {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-q.ch:
					if err := handle(ctx, msg); err != nil {
						telemetry.Error("queue.memory.handle_failed", map[string]any{
							"worker":      worker,
							"delivery_id": msg.DeliveryID,
							"endpoint_id": msg.EndpointID,
							"event":       msg.Event,
							"request_id":  msg.RequestID,
							"error":       err,
						})
					}
				}
			}
		}(i)
	}
}

// Wait blocks until all workers exit after their context is canceled.
func (q *MemoryQueue) Wait() {
	q.wg.Wait()
}

func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

var _ Client = (*MemoryQueue)(nil)
