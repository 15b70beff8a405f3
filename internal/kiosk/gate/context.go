package gate

import (
	"context"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/pkg/jwtx"
)

// AccountPrincipal is an authenticated human caller.
type AccountPrincipal struct {
	Account domain.Account
	Claims  jwtx.Claims
}

// DevicePrincipal is an authenticated kiosk terminal. Legacy reports that
// the caller identified itself with the old header scheme rather than a
// bearer token.
type DevicePrincipal struct {
	Device domain.Device
	Claims jwtx.Claims
	Legacy bool
}

type ctxKey int

const (
	ctxKeyAccount ctxKey = iota
	ctxKeyDevice
)

// WithAccount attaches an account principal to the context.
func WithAccount(ctx context.Context, p AccountPrincipal) context.Context {
	return context.WithValue(ctx, ctxKeyAccount, p)
}

// AccountFromContext returns the account principal, if the request passed
// the account gate.
func AccountFromContext(ctx context.Context) (AccountPrincipal, bool) {
	p, ok := ctx.Value(ctxKeyAccount).(AccountPrincipal)
	return p, ok
}

// WithDevice attaches a device principal to the context.
func WithDevice(ctx context.Context, p DevicePrincipal) context.Context {
	return context.WithValue(ctx, ctxKeyDevice, p)
}

// DeviceFromContext returns the device principal, if the request passed
// the device gate.
func DeviceFromContext(ctx context.Context) (DevicePrincipal, bool) {
	p, ok := ctx.Value(ctxKeyDevice).(DevicePrincipal)
	return p, ok
}
