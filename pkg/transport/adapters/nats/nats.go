/*
Package nats provides a core NATS (no JetStream) pub/sub adapter for the
transport package. NATS core pub/sub already gives every subscriber on a
subject its own copy of every message, including ones published by the
same connection, which is exactly the broadcast/loopback semantics
transport.Broker requires — no queue groups, no durable consumers, no
ack/redelivery.

# Dependencies

This package requires: github.com/nats-io/nats.go
*/
package nats

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	nodeerrors "github.com/mnikhil-git/zpax/pkg/errors"
	"github.com/mnikhil-git/zpax/pkg/transport"
)

// Config holds configuration for the NATS broker.
type Config struct {
	// URL is the NATS server URL. Multiple URLs can be comma-separated.
	URL string `env:"NATS_URL" env-default:"nats://localhost:4222"`

	// Name is the client connection name.
	Name string `env:"NATS_CLIENT_NAME" env-default:"zpax"`

	// Token for token authentication.
	Token string `env:"NATS_TOKEN"`

	// User and password for basic auth.
	User     string `env:"NATS_USER"`
	Password string `env:"NATS_PASSWORD"`
}

// Broker is a core-NATS pub/sub broker.
type Broker struct {
	config Config
	conn   *natsgo.Conn
	mu     sync.RWMutex
	closed bool
}

// New connects to NATS and returns a Broker.
func New(cfg Config) (*Broker, error) {
	opts := []natsgo.Option{
		natsgo.Name(cfg.Name),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.MaxReconnects(-1),
	}

	if cfg.Token != "" {
		opts = append(opts, natsgo.Token(cfg.Token))
	} else if cfg.User != "" {
		opts = append(opts, natsgo.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, transport.ErrClosed(err)
	}

	return &Broker{config: cfg, conn: conn}, nil
}

// Producer creates a publisher bound to subject.
func (b *Broker) Producer(subject string) (transport.Producer, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, transport.ErrClosed(nil)
	}

	return &producer{broker: b, subject: subject}, nil
}

// Consumer subscribes to subject. NATS core pub/sub has no notion of a
// named subscriber identity — subscriberID only labels the returned
// Consumer for diagnostics.
func (b *Broker) Consumer(subject, subscriberID string) (transport.Consumer, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, transport.ErrClosed(nil)
	}

	if subscriberID == "" {
		subscriberID = uuid.New().String()
	}

	sub, err := b.conn.SubscribeSync(subject)
	if err != nil {
		return nil, transport.ErrClosed(err)
	}

	return &consumer{broker: b, subscriberID: subscriberID, sub: sub}, nil
}

// Close drains and closes the NATS connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.conn.Drain()
}

type producer struct {
	broker  *Broker
	subject string
}

// Publish joins frames into a single NATS message payload using a
// length-prefixed framing, then publishes it to the subject.
func (p *producer) Publish(ctx context.Context, frames [][]byte) error {
	data := encodeFrames(frames)
	if err := p.broker.conn.Publish(p.subject, data); err != nil {
		return transport.ErrTimeout("publish", err)
	}
	select {
	case <-ctx.Done():
		return transport.ErrTimeout("publish", ctx.Err())
	default:
	}
	return nil
}

func (p *producer) Close() error { return nil }

type consumer struct {
	broker       *Broker
	subscriberID string
	sub          *natsgo.Subscription
}

// Consume polls sub for messages until ctx is cancelled, decoding each
// payload back into frames before invoking handler.
func (c *consumer) Consume(ctx context.Context, handler transport.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		natsMsg, err := c.sub.NextMsgWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		frames, err := decodeFrames(natsMsg.Data)
		if err != nil {
			continue
		}

		msg := &transport.Message{
			ID:        uuid.New().String(),
			Topic:     natsMsg.Subject,
			Frames:    frames,
			Timestamp: time.Now(),
		}
		_ = handler(ctx, msg)
	}
}

func (c *consumer) Close() error {
	return c.sub.Unsubscribe()
}

// encodeFrames joins frames with a 4-byte big-endian length prefix per
// frame, since NATS core carries an opaque byte payload with no native
// multipart support.
func encodeFrames(frames [][]byte) []byte {
	size := 0
	for _, f := range frames {
		size += 4 + len(f)
	}
	out := make([]byte, 0, size)
	var lenBuf [4]byte
	for _, f := range frames {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f)))
		out = append(out, lenBuf[:]...)
		out = append(out, f...)
	}
	return out
}

func decodeFrames(data []byte) ([][]byte, error) {
	var frames [][]byte
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, nodeerrors.MalformedMessage(nil)
		}
		n := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, nodeerrors.MalformedMessage(nil)
		}
		frames = append(frames, data[:n])
		data = data[n:]
	}
	return frames, nil
}
