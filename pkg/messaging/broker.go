package messaging

import (
	"context"
	"sync"
)

// Broker publishes raw message payloads to named channels
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// Message is a published payload as seen by MemoryBroker
type Message struct {
	Channel string
	Payload []byte
}

// MemoryBroker keeps published messages in memory. Used by the dev driver and tests.
type MemoryBroker struct {
	mu       sync.Mutex
	messages []Message
	failWith error
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failWith != nil {
		return b.failWith
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.messages = append(b.messages, Message{Channel: channel, Payload: cp})
	return nil
}

// FailWith makes subsequent publishes return err; nil restores normal behaviour.
func (b *MemoryBroker) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = err
}

func (b *MemoryBroker) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

func (b *MemoryBroker) Close() error {
	return nil
}
