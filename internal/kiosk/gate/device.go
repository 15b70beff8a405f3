package gate

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/store"
	"github.com/storelink/kioskd/pkg/httpx"
	"github.com/storelink/kioskd/pkg/jwtx"
	"github.com/storelink/kioskd/pkg/slogx"
)

// Legacy device identification headers. Older kiosk firmware identifies
// itself with these three headers instead of a bearer token.
const (
	HeaderDeviceStore = "X-Device-Store"
	HeaderDeviceID    = "X-Device-Id"
	HeaderDeviceSeq   = "X-Device-Seq"
)

// DeviceSource resolves device principals. Satisfied by store.Devices.
type DeviceSource interface {
	GetDeviceByID(ctx context.Context, id string) (domain.Device, error)
	GetDeviceByStoreSequence(ctx context.Context, storeID string, sequence int) (domain.Device, error)
}

// DeviceGate authenticates kiosk terminals. Like AccountGate it is
// fail-open: failures continue down the chain unauthenticated.
//
// A bearer token is always preferred. Unlike account tokens, a device token
// without a session-version snapshot is still accepted: deployed terminals
// hold long-lived tokens minted before the snapshot existed, and cutting
// them off would brick every kiosk in the field at once.
type DeviceGate struct {
	Codec   *jwtx.Codec
	Devices DeviceSource
	Metrics MetricsRecorder
}

// AuthenticateBearer verifies a device bearer token and checks its
// session-version snapshot, when present, against the device's counter.
func (g *DeviceGate) AuthenticateBearer(ctx context.Context, raw string) (DevicePrincipal, error) {
	claims, err := g.Codec.Verify(raw)
	if err != nil {
		return DevicePrincipal{}, err
	}
	if claims.Kind != jwtx.KindDevice {
		return DevicePrincipal{}, ErrTypeMismatch
	}

	device, err := g.Devices.GetDeviceByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DevicePrincipal{}, ErrPrincipalNotFound
		}
		return DevicePrincipal{}, err
	}
	if !device.Active() {
		return DevicePrincipal{}, ErrPrincipalDisabled
	}
	if claims.SessionVersion != nil && *claims.SessionVersion != device.SessionVersion {
		return DevicePrincipal{}, ErrVersionStale
	}

	return DevicePrincipal{Device: device, Claims: claims}, nil
}

// AuthenticateLegacy resolves the legacy header tuple. The device id the
// client sends is never trusted on its own: the (store, sequence) pair is
// the lookup key and the id must match what the store says, otherwise the
// headers are treated as forged.
func (g *DeviceGate) AuthenticateLegacy(ctx context.Context, storeID, deviceID, seq string) (DevicePrincipal, error) {
	if storeID == "" || deviceID == "" || seq == "" {
		return DevicePrincipal{}, ErrLegacyHeadersIncomplete
	}
	sequence, err := strconv.Atoi(seq)
	if err != nil {
		return DevicePrincipal{}, ErrLegacyHeadersIncomplete
	}

	device, err := g.Devices.GetDeviceByStoreSequence(ctx, storeID, sequence)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DevicePrincipal{}, ErrPrincipalNotFound
		}
		return DevicePrincipal{}, err
	}
	if device.ID != deviceID {
		return DevicePrincipal{}, ErrLegacyHeaderMismatch
	}
	if !device.Active() {
		return DevicePrincipal{}, ErrPrincipalDisabled
	}

	return DevicePrincipal{Device: device, Legacy: true}, nil
}

// Middleware attaches a device principal when the request carries a valid
// bearer token or a complete, correlated legacy header set. The header path
// is a fallback for bearer tokens that fail structurally (garbage, bad
// signature, expired); a token that parsed fine but carries a superseded
// session version does not get a second chance through the headers.
func (g *DeviceGate) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			if raw, ok := bearerToken(r); ok {
				principal, err := g.AuthenticateBearer(ctx, raw)
				if err == nil {
					g.outcome("ok")
					next.ServeHTTP(w, r.WithContext(WithDevice(ctx, principal)))
					return
				}

				log.Warn("device bearer auth failed", "err", err)
				g.outcome("denied")
				if !structuralFailure(err) {
					next.ServeHTTP(w, r)
					return
				}
			}

			storeID := r.Header.Get(HeaderDeviceStore)
			deviceID := r.Header.Get(HeaderDeviceID)
			seq := r.Header.Get(HeaderDeviceSeq)
			if storeID == "" && deviceID == "" && seq == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := g.AuthenticateLegacy(ctx, storeID, deviceID, seq)
			if err != nil {
				log.Warn("device legacy auth failed", "err", err, "store", storeID)
				g.outcome("denied_legacy")
				next.ServeHTTP(w, r)
				return
			}

			g.outcome("ok_legacy")
			next.ServeHTTP(w, r.WithContext(WithDevice(ctx, principal)))
		})
	}
}

func (g *DeviceGate) outcome(outcome string) {
	if g.Metrics != nil {
		g.Metrics.AuthOutcome("device", outcome)
	}
}

// structuralFailure reports whether a bearer failure happened before the
// token's claims could be trusted at all, as opposed to a token that decoded
// cleanly but names a revoked session or principal.
func structuralFailure(err error) bool {
	return errors.Is(err, jwtx.ErrMalformed) ||
		errors.Is(err, jwtx.ErrBadSignature) ||
		errors.Is(err, jwtx.ErrExpired) ||
		errors.Is(err, jwtx.ErrUnsupportedAlg) ||
		errors.Is(err, jwtx.ErrInvalidClaim)
}
