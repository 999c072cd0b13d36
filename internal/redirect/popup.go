package redirect

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPopupClosed means the popup went away before delivering a message.
	ErrPopupClosed = errors.New("popup closed before delivering a message")
)

// Message is a cross-window payload from the OAuth popup to its opener.
type Message struct {
	Origin string
	Data   map[string]string
}

// MessageChannel is a one-shot, origin-filtered channel for cross-window
// OAuth delivery: it resolves on the first message from the expected origin
// and tears itself down after that. Messages from any other origin are
// dropped without consuming the slot.
type MessageChannel struct {
	origin string
	ch     chan Message
	once   sync.Once
	closed chan struct{}
}

func NewMessageChannel(expectedOrigin string) *MessageChannel {
	return &MessageChannel{
		origin: expectedOrigin,
		ch:     make(chan Message, 1),
		closed: make(chan struct{}),
	}
}

// Deliver offers a message to the channel. It reports whether the message
// was accepted: wrong-origin messages and anything after the first accepted
// delivery are rejected.
func (c *MessageChannel) Deliver(msg Message) bool {
	if msg.Origin != c.origin {
		return false
	}

	accepted := false
	c.once.Do(func() {
		c.ch <- msg
		accepted = true
	})

	return accepted
}

// Await blocks until the first valid message, the popup closing, or the
// context expiring. The listener is deregistered either way; a channel is
// never awaited twice.
func (c *MessageChannel) Await(ctx context.Context) (Message, error) {
	select {
	case msg := <-c.ch:
		return msg, nil
	case <-c.closed:
		return Message{}, ErrPopupClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close signals that the popup was closed without delivering. Safe to call
// more than once.
func (c *MessageChannel) Close() {
	c.once.Do(func() {
		close(c.closed)
	})
}
