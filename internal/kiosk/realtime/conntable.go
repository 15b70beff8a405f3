package realtime

import (
	"sync"
	"time"
)

// ConnTable maps connection ids to live clients and implements Sender for
// the registry. The gateway adds a client after the websocket handshake and
// removes it when the connection winds down.
type ConnTable struct {
	conns sync.Map // conn id -> *Client
}

func NewConnTable() *ConnTable {
	return &ConnTable{}
}

func (t *ConnTable) Add(c *Client) {
	t.conns.Store(c.ConnID, c)
}

func (t *ConnTable) Remove(connID string) {
	t.conns.Delete(connID)
}

func (t *ConnTable) Get(connID string) (*Client, bool) {
	v, ok := t.conns.Load(connID)
	if !ok {
		return nil, false
	}
	return v.(*Client), true
}

// Evict queues a directed disconnect notice on the connection, then signals
// it to close. The enqueue is non-blocking; if the connection's queue is
// full the close signal alone tears it down.
func (t *ConnTable) Evict(connID, reason string) {
	client, ok := t.Get(connID)
	if !ok {
		return
	}
	client.TrySend(newEnvelope(TypeDisconnect, DisconnectPayload{Reason: reason}, time.Now().UTC()))
	client.Close()
}
