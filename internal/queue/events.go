package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// EventPublisher encodes events as JSON and publishes them to one subject
type EventPublisher struct {
	pub     Publisher
	subject string
}

// NewEventPublisher publishes to subject through pub. A nil pub yields a
// publisher that drops events.
func NewEventPublisher(pub Publisher, subject string) *EventPublisher {
	return &EventPublisher{pub: pub, subject: subject}
}

// Subject returns the subject events are published to
func (p *EventPublisher) Subject() string {
	return p.subject
}

// Enabled reports whether events reach a broker
func (p *EventPublisher) Enabled() bool {
	return p != nil && p.pub != nil
}

// PublishEvent JSON-encodes v and publishes it
func (p *EventPublisher) PublishEvent(ctx context.Context, v interface{}) error {
	if !p.Enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return p.pub.Publish(ctx, p.subject, data)
}

// PublishEvents JSON-encodes every value and publishes them as one batch.
// Returns the number of events the broker accepted.
func (p *EventPublisher) PublishEvents(ctx context.Context, vs ...interface{}) (int, error) {
	if !p.Enabled() || len(vs) == 0 {
		return 0, nil
	}
	batch := make([]BatchMessage, len(vs))
	for i, v := range vs {
		data, err := json.Marshal(v)
		if err != nil {
			return 0, fmt.Errorf("failed to encode event %d: %w", i, err)
		}
		batch[i] = BatchMessage{Subject: p.subject, Data: data}
	}
	return p.pub.PublishBatch(ctx, batch)
}

// Close closes the underlying publisher
func (p *EventPublisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.pub.Close()
}

// Recorder is a Publisher keeping every message in memory, for callers that
// need to inspect what was published
type Recorder struct {
	mu       sync.Mutex
	messages []BatchMessage
	batches  int
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, subject string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, BatchMessage{Subject: subject, Data: append([]byte(nil), data...)})
	return nil
}

func (r *Recorder) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	r.mu.Lock()
	r.batches++
	r.mu.Unlock()
	for _, m := range messages {
		_ = r.Publish(ctx, m.Subject, m.Data)
	}
	return len(messages), nil
}

func (r *Recorder) Close() error {
	return nil
}

// Messages returns a copy of everything published so far
func (r *Recorder) Messages() []BatchMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BatchMessage(nil), r.messages...)
}

// Batches returns how many PublishBatch calls were made
func (r *Recorder) Batches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches
}
