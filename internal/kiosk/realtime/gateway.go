package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/gate"
	"github.com/storelink/kioskd/pkg/idx"

	"github.com/coder/websocket"
)

const (
	defaultSendQueueSize = 64
	defaultWriteTimeout  = 5 * time.Second
	defaultReadIdle      = 2 * time.Minute
	maxFrameBytes        = 32 * 1024
)

// DeviceToucher records that a device connected. Satisfied by store.Devices.
type DeviceToucher interface {
	TouchConnected(ctx context.Context, id string, at time.Time) error
}

// Gateway is the websocket entrypoint for kiosk terminals. Authentication
// happens before the upgrade: the device gate middleware runs in front of
// this handler, and a request that did not pass it is rejected outright
// rather than upgraded and then starved. The handshake is bearer-only; the
// legacy header tuple is not accepted here because the realtime channel has
// no per-message auth, so the upgrade is its sole gate.
type Gateway struct {
	Registry *Registry
	Conns    *ConnTable
	Devices  DeviceToucher
	Log      *slog.Logger

	// OriginPatterns is passed to websocket.Accept for cross-origin
	// handshakes. Empty means same-host only.
	OriginPatterns []string

	SendQueueSize int
	WriteTimeout  time.Duration
	ReadIdle      time.Duration
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := g.logger()

	principal, ok := gate.DeviceFromContext(r.Context())
	if !ok || principal.Legacy {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{protocolV1},
		OriginPatterns: g.OriginPatterns,
	})
	if err != nil {
		log.Warn("websocket accept failed", "err", err, "device", principal.Device.ID)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	device := principal.Device
	connID := idx.New().String()
	client := NewClient(connID, device.ID, g.queueSize())
	g.Conns.Add(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.Registry.Unregister(device.ID, connID)
			g.Conns.Remove(connID)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	now := time.Now().UTC()
	prev, replaced := g.Registry.Register(Session{
		ConnID:      connID,
		DeviceID:    device.ID,
		StoreID:     device.StoreID,
		Sequence:    device.Sequence,
		ConnectedAt: now,
	})
	if replaced && prev.ConnID != connID {
		// The same device reconnected; the old connection is no longer
		// the authoritative session.
		if c, ok := g.Conns.Get(prev.ConnID); ok {
			c.TrySend(newEnvelope(TypeDisconnect, DisconnectPayload{Reason: ReasonSuperseded}, now))
			c.Close()
		}
	}

	if g.Devices != nil {
		if err := g.Devices.TouchConnected(ctx, device.ID, now); err != nil {
			log.Warn("touch connected failed", "err", err, "device", device.ID)
		}
	}

	log.Info("realtime connected",
		"device", device.ID, "store", device.StoreID, "seq", device.Sequence,
		"conn", connID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				// Flush anything already queued, the eviction notice in
				// particular, then close the socket so the read loop is
				// not left waiting out its idle timeout.
				for {
					select {
					case env := <-client.Send:
						_ = g.write(ctx, conn, env)
					default:
						shutdown(websocket.StatusGoingAway, ReasonSuperseded)
						return
					}
				}
			case env := <-client.Send:
				if err := g.write(ctx, conn, env); err != nil {
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.readIdle())
		env, err := g.read(readCtx, conn)
		readCancel()

		if err != nil {
			var ce websocket.CloseError
			switch {
			case errors.As(err, &ce), errors.Is(err, io.EOF):
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case ctx.Err() != nil:
				shutdown(websocket.StatusNormalClosure, "context done")
			case errors.Is(err, errBadJSON):
				client.TrySend(newEnvelope(TypeError, ErrorPayload{Code: "bad_json", Message: "invalid JSON"}, time.Now().UTC()))
				continue readLoop
			default:
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			break readLoop
		}

		if err := env.Validate(); err != nil {
			client.TrySend(newEnvelope(TypeError, ErrorPayload{Code: "bad_envelope", Message: err.Error()}, time.Now().UTC()))
			continue readLoop
		}

		switch env.Type {
		case TypeHeartbeat:
			client.TrySend(newEnvelope(TypeHeartbeatAck, nil, time.Now().UTC()))

		case TypeStatus:
			var p StatusPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				client.TrySend(newEnvelope(TypeError, ErrorPayload{Code: "bad_payload", Message: "invalid status payload"}, time.Now().UTC()))
				continue readLoop
			}
			log.Info("device status", "device", device.ID, "state", p.State, "detail", p.Detail)

		default:
			client.TrySend(newEnvelope(TypeError, ErrorPayload{Code: "unsupported", Message: "unsupported type: " + env.Type}, time.Now().UTC()))
		}

		select {
		case <-client.Done():
			shutdown(websocket.StatusGoingAway, ReasonSuperseded)
			break readLoop
		default:
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	log.Info("realtime disconnected", "device", device.ID, "conn", connID)
}

var errBadJSON = errors.New("realtime: invalid json frame")

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, env Envelope) error {
	wctx, cancel := context.WithTimeout(ctx, g.writeTimeout())
	defer cancel()

	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(wctx, websocket.MessageText, raw)
}

func (g *Gateway) read(ctx context.Context, conn *websocket.Conn) (Envelope, error) {
	typ, raw, err := conn.Read(ctx)
	if err != nil {
		return Envelope{}, err
	}
	if typ != websocket.MessageText {
		return Envelope{}, errBadJSON
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errBadJSON
	}
	return env, nil
}

func (g *Gateway) logger() *slog.Logger {
	if g.Log != nil {
		return g.Log
	}
	return slog.Default()
}

func (g *Gateway) queueSize() int {
	if g.SendQueueSize > 0 {
		return g.SendQueueSize
	}
	return defaultSendQueueSize
}

func (g *Gateway) writeTimeout() time.Duration {
	if g.WriteTimeout > 0 {
		return g.WriteTimeout
	}
	return defaultWriteTimeout
}

func (g *Gateway) readIdle() time.Duration {
	if g.ReadIdle > 0 {
		return g.ReadIdle
	}
	return defaultReadIdle
}
