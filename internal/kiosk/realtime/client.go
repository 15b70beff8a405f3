package realtime

import "sync"

// Client is one connected websocket session.
//
// Send is never closed by the server, so concurrent senders cannot panic on
// a closing connection; done signals the connection goroutines to stop and
// Close is idempotent.
type Client struct {
	ConnID   string
	DeviceID string
	Send     chan Envelope

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(connID, deviceID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ConnID:   connID,
		DeviceID: deviceID,
		Send:     make(chan Envelope, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// Done returns a channel closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the connection goroutines to stop. It does not close Send.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// TrySend enqueues without blocking. A full queue or a closed client drops
// the message.
func (c *Client) TrySend(env Envelope) bool {
	if c == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- env:
		return true
	default:
		return false
	}
}
