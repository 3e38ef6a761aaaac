package queue

import (
	"context"
	"fmt"
	"sync"
)

// DefaultMemoryCapacity is the buffer size of each in-memory subject
const DefaultMemoryCapacity = 1024

// MemoryQueue implements Queue with buffered channels. Publishing to a full
// subject fails rather than blocking.
type MemoryQueue struct {
	capacity      int
	channels      map[string]chan []byte
	subscriptions map[string]context.CancelFunc
	closed        bool
	mu            sync.RWMutex
}

func newMemoryQueue() *MemoryQueue {
	return newMemoryQueueWithCapacity(DefaultMemoryCapacity)
}

func newMemoryQueueWithCapacity(capacity int) *MemoryQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryQueue{
		capacity:      capacity,
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// channelLocked returns the subject's buffer; q.mu must be held
func (q *MemoryQueue) channelLocked(subject string) (chan []byte, error) {
	if q.closed {
		return nil, fmt.Errorf("queue closed")
	}
	ch, exists := q.channels[subject]
	if !exists {
		ch = make(chan []byte, q.capacity)
		q.channels[subject] = ch
	}
	return ch, nil
}

// Publish copies data into the subject's buffer
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	ch, err := q.channelLocked(subject)
	if err != nil {
		return err
	}

	select {
	case ch <- append([]byte(nil), data...):
		return nil
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// PublishBatch publishes each message, counting successes
func (q *MemoryQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			continue
		}
		successCount++
	}
	return successCount, nil
}

// Subscribe starts a goroutine handing subject messages to handler.
// Handler errors drop the message.
func (q *MemoryQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch, err := q.channelLocked(subject)
	if err != nil {
		return err
	}
	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.subscriptions[subject] = cancel

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-ch:
				if !ok {
					return
				}
				_ = handler(data)
			}
		}
	}()

	return nil
}

// Unsubscribe stops delivery for a subject; buffered messages stay queued
func (q *MemoryQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close cancels subscriptions and closes every channel
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	for subject, ch := range q.channels {
		close(ch)
		delete(q.channels, subject)
	}
	return nil
}

// PendingCount returns the number of buffered messages for a subject
func (q *MemoryQueue) PendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}
