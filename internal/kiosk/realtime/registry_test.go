package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu      sync.Mutex
	evicted []string // "connID:reason"
}

func (f *fakeSender) Evict(connID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, connID+":"+reason)
}

func (f *fakeSender) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.evicted...)
}

func TestRegistryRegisterReplaces(t *testing.T) {
	t.Parallel()

	r := NewRegistry(&fakeSender{}, nil)

	_, replaced := r.Register(Session{ConnID: "c1", DeviceID: "dev-1"})
	require.False(t, replaced)
	require.True(t, r.IsActive("dev-1"))

	prev, replaced := r.Register(Session{ConnID: "c2", DeviceID: "dev-1"})
	require.True(t, replaced)
	require.Equal(t, "c1", prev.ConnID)

	current, ok := r.Get("dev-1")
	require.True(t, ok)
	require.Equal(t, "c2", current.ConnID)
	require.Equal(t, 1, r.Size())
}

func TestRegistryUnregisterOnlyOwnSession(t *testing.T) {
	t.Parallel()

	r := NewRegistry(&fakeSender{}, nil)
	r.Register(Session{ConnID: "c1", DeviceID: "dev-1"})
	r.Register(Session{ConnID: "c2", DeviceID: "dev-1"})

	// The replaced connection winding down must not remove its successor.
	require.False(t, r.Unregister("dev-1", "c1"))
	require.True(t, r.IsActive("dev-1"))

	require.True(t, r.Unregister("dev-1", "c2"))
	require.False(t, r.IsActive("dev-1"))

	// Unregister after removal is a no-op.
	require.False(t, r.Unregister("dev-1", "c2"))
}

func TestRegistryEvict(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	r := NewRegistry(sender, nil)
	r.Register(Session{ConnID: "c1", DeviceID: "dev-1"})

	require.True(t, r.Evict("dev-1", ReasonSuperseded))
	require.False(t, r.IsActive("dev-1"))
	require.Equal(t, []string{"c1:" + ReasonSuperseded}, sender.calls())

	// Evicting a device with no session reports false and sends nothing.
	require.False(t, r.Evict("dev-1", ReasonSuperseded))
	require.Len(t, sender.calls(), 1)
}

func TestRegistrySnapshot(t *testing.T) {
	t.Parallel()

	r := NewRegistry(&fakeSender{}, nil)
	r.Register(Session{ConnID: "c1", DeviceID: "dev-1", StoreID: "s1", Sequence: 1})
	r.Register(Session{ConnID: "c2", DeviceID: "dev-2", StoreID: "s1", Sequence: 2})

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, 2, r.Size())
}

func TestConnTableEvict(t *testing.T) {
	t.Parallel()

	table := NewConnTable()
	client := NewClient("c1", "dev-1", 4)
	table.Add(client)

	table.Evict("c1", ReasonSuperseded)

	select {
	case env := <-client.Send:
		require.Equal(t, TypeDisconnect, env.Type)
		var p DisconnectPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		require.Equal(t, ReasonSuperseded, p.Reason)
	default:
		t.Fatal("expected a queued disconnect envelope")
	}

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("expected the client to be closed")
	}

	// Evicting an unknown connection is harmless.
	table.Evict("c-missing", ReasonSuperseded)
}

func TestClientTrySend(t *testing.T) {
	t.Parallel()

	t.Run("full queue drops", func(t *testing.T) {
		t.Parallel()
		c := NewClient("c1", "dev-1", 1)
		require.True(t, c.TrySend(newEnvelope(TypeHeartbeatAck, nil, time.Now())))
		require.False(t, c.TrySend(newEnvelope(TypeHeartbeatAck, nil, time.Now())))
	})

	t.Run("closed client drops", func(t *testing.T) {
		t.Parallel()
		c := NewClient("c1", "dev-1", 4)
		c.Close()
		c.Close() // idempotent
		require.False(t, c.TrySend(newEnvelope(TypeHeartbeatAck, nil, time.Now())))
	})
}
