package queue

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestNewKafkaQueue(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("newKafkaQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	cfg := q.config
	if cfg.GroupID != "fuzzcast-group" {
		t.Errorf("expected default group, got %s", cfg.GroupID)
	}
	if cfg.BatchSize != 100 || cfg.BatchTimeout != 10*time.Millisecond {
		t.Errorf("unexpected batch defaults: %+v", cfg)
	}
	if cfg.RequiredAcks != int(kafka.RequireOne) {
		t.Errorf("expected RequireOne, got %d", cfg.RequiredAcks)
	}
}

func TestNewKafkaQueue_NoBrokers(t *testing.T) {
	if _, err := newKafkaQueue(KafkaConfig{}); err == nil {
		t.Error("expected error without brokers")
	}
}

func TestKafkaQueue_WriterPerTopic(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("newKafkaQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	a := q.writer("training")
	b := q.writer("training")
	c := q.writer("other")
	if a != b {
		t.Error("expected the writer to be reused for a topic")
	}
	if a == c {
		t.Error("expected separate writers per topic")
	}
	if a.Topic != "training" || !a.AllowAutoTopicCreation {
		t.Errorf("unexpected writer config: topic=%s", a.Topic)
	}
	if q.Stats("missing").Writes != 0 {
		t.Error("expected empty stats for unknown topic")
	}
}

func TestKafkaQueue_UnsubscribeUnknown(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("newKafkaQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	if err := q.Unsubscribe("missing"); err == nil {
		t.Error("expected error for unknown topic")
	}
}
