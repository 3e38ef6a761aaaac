package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/fuzzcast/internal/config"
)

// NewQueue creates a new Queue instance based on configuration.
// Default is NATS if type is not specified.
func NewQueue(cfg config.QueueConfig) (Queue, error) {
	queueType := Type(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = TypeNATS
	}

	switch queueType {
	case TypeNATS:
		return newNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		})

	case TypeRedis:
		return newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.RedisConsumer,
		})

	case TypeKafka:
		brokers := cfg.KafkaBrokers
		if len(brokers) == 0 && cfg.URL != "" {
			brokers = strings.Split(cfg.URL, ",")
		}
		return newKafkaQueue(KafkaConfig{
			Brokers: brokers,
			GroupID: cfg.KafkaGroupID,
		})

	case TypeMemory:
		return newMemoryQueue(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}

// NewEventPublisherFromConfig connects the configured backend and binds it
// to queue.subject. A disabled queue yields a publisher that drops events.
func NewEventPublisherFromConfig(cfg config.QueueConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return NewEventPublisher(nil, cfg.Subject), nil
	}
	q, err := NewQueue(cfg)
	if err != nil {
		return nil, err
	}
	if nq, ok := q.(*NATSQueue); ok {
		if err := nq.EnsureStream(cfg.Subject); err != nil {
			_ = nq.Close()
			return nil, err
		}
	}
	return NewEventPublisher(q, cfg.Subject), nil
}
