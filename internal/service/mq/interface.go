package mq

import "context"

// Message is one business event in transit
type Message struct {
	ID       string            // broker message id (Redis Stream ID, Kafka key)
	Topic    string
	Key      string            // partition key, e.g. "firm:42"
	Payload  []byte            // JSON
	Metadata map[string]string
}

// Producer publishes events. Key selects the partition so all events for
// one wallet owner stay ordered; empty key means any partition.
type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// Consumer subscribes to a topic. The handler returning an error leaves the
// message unacknowledged for redelivery, so handlers must be idempotent.
type Consumer interface {
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error
	Close() error
}
