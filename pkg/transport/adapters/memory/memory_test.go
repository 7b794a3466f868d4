package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mnikhil-git/zpax/pkg/transport"
)

func TestBrokerFanoutIncludesPublisher(t *testing.T) {
	b := New(Config{BufferSize: 8})
	defer b.Close()

	consumer, err := b.Consumer("zpax", "node-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mu sync.Mutex
	var received [][]byte
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.Consume(ctx, func(_ context.Context, msg *transport.Message) error {
		mu.Lock()
		received = append(received, msg.Frames[0])
		mu.Unlock()
		return nil
	})

	producer, err := b.Producer("zpax")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := producer.Publish(context.Background(), [][]byte{[]byte("hello")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("publisher never received its own broadcast")
}

func TestBrokerFanoutReachesAllSubscribers(t *testing.T) {
	b := New(Config{BufferSize: 8})
	defer b.Close()

	a, err := b.Consumer("zpax", "node-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := b.Consumer("zpax", "node-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	counts := map[string]int{}
	record := func(name string) transport.Handler {
		return func(_ context.Context, _ *transport.Message) error {
			mu.Lock()
			counts[name]++
			mu.Unlock()
			return nil
		}
	}
	go a.Consume(ctx, record("a"))
	go c.Consume(ctx, record("b"))

	producer, err := b.Producer("zpax")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := producer.Publish(context.Background(), [][]byte{[]byte("x")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := counts["a"] == 1 && counts["b"] == 1
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("not all subscribers received the broadcast: %v", counts)
}

func TestBrokerCloseStopsConsumers(t *testing.T) {
	b := New(Config{BufferSize: 8})
	consumer, err := b.Consumer("zpax", "node-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		consumer.Consume(context.Background(), func(_ context.Context, _ *transport.Message) error { return nil })
		close(done)
	}()

	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Consume did not return after broker Close")
	}

	if _, err := b.Producer("zpax"); err == nil {
		t.Fatalf("expected error producing on a closed broker")
	}
}
