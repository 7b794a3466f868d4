/*
Package memory provides an in-process broadcast broker for tests and
single-process demos: every Consumer on a topic, whatever subscriberID
it used, receives every Message published to that topic — including
ones published by its own Producer. That all-subscribers-get-everything
fan-out is exactly what the Paxos node's loopback requirement needs, so
no special-casing is needed to deliver a node's own broadcasts back to
itself; it only needs to have subscribed to its own topic first.
*/
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mnikhil-git/zpax/pkg/transport"
)

// Config holds configuration for the in-memory broker.
type Config struct {
	// BufferSize is the per-subscriber channel buffer. A slow
	// subscriber drops messages once its buffer is full rather than
	// blocking the publisher — acceptable for Paxos, which tolerates
	// message loss by design.
	BufferSize int `env:"MEMORY_BUFFER_SIZE" env-default:"256"`
}

// Broker is an in-memory, channel-backed pub/sub broker.
type Broker struct {
	config Config
	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

type topic struct {
	subscribers map[string]chan *transport.Message // subscriberID -> channel
}

// New creates a new in-memory broker.
func New(cfg Config) *Broker {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &Broker{
		config: cfg,
		topics: make(map[string]*topic),
	}
}

func (b *Broker) getOrCreateTopic(name string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[name]
	if !ok {
		t = &topic{subscribers: make(map[string]chan *transport.Message)}
		b.topics[name] = t
	}
	return t
}

// Producer creates a publisher bound to topicName.
func (b *Broker) Producer(topicName string) (transport.Producer, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, transport.ErrClosed(nil)
	}

	return &producer{broker: b, topic: b.getOrCreateTopic(topicName), topicName: topicName}, nil
}

// Consumer subscribes subscriberID to topicName.
func (b *Broker) Consumer(topicName, subscriberID string) (transport.Consumer, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, transport.ErrClosed(nil)
	}

	if subscriberID == "" {
		subscriberID = uuid.New().String()
	}

	t := b.getOrCreateTopic(topicName)
	ch := make(chan *transport.Message, b.config.BufferSize)

	b.mu.Lock()
	t.subscribers[subscriberID] = ch
	b.mu.Unlock()

	return &consumer{broker: b, topic: t, subscriberID: subscriberID, ch: ch}, nil
}

// Close shuts down the broker and every topic's subscriber channels.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, t := range b.topics {
		for _, ch := range t.subscribers {
			close(ch)
		}
	}
	return nil
}

type producer struct {
	broker    *Broker
	topic     *topic
	topicName string
}

func (p *producer) Publish(ctx context.Context, frames [][]byte) error {
	msg := &transport.Message{
		ID:        uuid.New().String(),
		Topic:     p.topicName,
		Frames:    frames,
		Timestamp: time.Now(),
	}

	p.broker.mu.Lock()
	subscribers := make([]chan *transport.Message, 0, len(p.topic.subscribers))
	for _, ch := range p.topic.subscribers {
		subscribers = append(subscribers, ch)
	}
	p.broker.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return transport.ErrTimeout("publish", ctx.Err())
		default:
			// Subscriber's buffer is full; drop, as a lossy bus would.
		}
	}
	return nil
}

func (p *producer) Close() error { return nil }

type consumer struct {
	broker       *Broker
	topic        *topic
	subscriberID string
	ch           chan *transport.Message
}

func (c *consumer) Consume(ctx context.Context, handler transport.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-c.ch:
			if !ok {
				return nil
			}
			_ = handler(ctx, msg)
		}
	}
}

func (c *consumer) Close() error {
	c.broker.mu.Lock()
	delete(c.topic.subscribers, c.subscriberID)
	c.broker.mu.Unlock()
	return nil
}
