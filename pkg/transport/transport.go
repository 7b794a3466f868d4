/*
Package transport defines the broadcast publish/subscribe primitive
the Paxos node needs from its message bus: publish a multipart frame
to a topic, and have every subscriber to that topic — including the
publisher itself — receive it. The concrete bus (NATS, an in-process
channel broker, …) is an adapter; pkg/node depends only on this
package's interfaces.
*/
package transport

import (
	"context"
	"time"

	nodeerrors "github.com/mnikhil-git/zpax/pkg/errors"
)

// Message is one multipart frame published to a topic. Frames is the
// wire payload split into its parts (for zpax: [header, paxos-fields]);
// adapters are free to join/split them however their underlying
// transport represents multipart data.
type Message struct {
	ID        string
	Topic     string
	Frames    [][]byte
	Timestamp time.Time
}

// Handler processes one inbound Message. The memory and NATS adapters
// discard a returned error; the Paxos layer has no notion of retrying
// a delivery.
type Handler func(ctx context.Context, msg *Message) error

// Producer publishes frames to one topic.
type Producer interface {
	Publish(ctx context.Context, frames [][]byte) error
	Close() error
}

// Consumer delivers every Message published to one topic — including
// ones published by the same process — to handler, until ctx is
// cancelled or Close is called.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Broker is a connection to a pub/sub bus capable of producing and
// consuming named topics.
type Broker interface {
	Producer(topic string) (Producer, error)
	// Consumer subscribes to topic under subscriberID. subscriberID
	// only needs to be unique per logical subscriber on this broker —
	// it does not provide Kafka-style consumer-group load balancing;
	// every subscriber, whatever its ID, receives every message.
	Consumer(topic, subscriberID string) (Consumer, error)
	Close() error
}

// ErrClosed reports that an operation was attempted on a closed broker.
func ErrClosed(err error) *nodeerrors.AppError {
	return nodeerrors.New(nodeerrors.CodeTransportClosed, "transport is closed", err)
}

// ErrTimeout reports that op did not complete before its context expired.
func ErrTimeout(op string, err error) *nodeerrors.AppError {
	return nodeerrors.New(nodeerrors.CodeInternal, "transport operation timed out: "+op, err)
}
