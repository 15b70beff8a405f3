package realtime

import (
	"encoding/json"
	"errors"
	"time"
)

const protocolV1 = "kioskd.realtime.v1"

// Envelope message types.
const (
	TypeHeartbeat    = "heartbeat"
	TypeHeartbeatAck = "heartbeat_ack"
	TypeStatus       = "status"
	TypeDisconnect   = "disconnect"
	TypeError        = "error"
)

// Disconnect reasons.
const (
	// ReasonSuperseded tells a terminal that a newer session for the same
	// device has been issued and this connection is no longer valid.
	ReasonSuperseded = "superseded"

	ReasonShutdown = "shutdown"
)

// Envelope is the single wire frame. Payload shape depends on Type.
type Envelope struct {
	Type    string          `json:"type"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatusPayload is what a terminal reports about itself.
type StatusPayload struct {
	State   string `json:"state"`
	Detail  string `json:"detail,omitempty"`
	Version string `json:"version,omitempty"`
}

// DisconnectPayload tells the peer why the server is closing.
type DisconnectPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload reports a per-message failure without closing the stream.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e Envelope) Validate() error {
	if e.Type == "" {
		return errors.New("realtime: missing envelope type")
	}
	return nil
}

func newEnvelope(typ string, payload any, at time.Time) Envelope {
	env := Envelope{Type: typ, At: at}
	if payload != nil {
		raw, _ := json.Marshal(payload)
		env.Payload = raw
	}
	return env
}
