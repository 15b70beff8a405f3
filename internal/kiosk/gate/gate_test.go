package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/store"
	"github.com/storelink/kioskd/pkg/httpx"
	"github.com/storelink/kioskd/pkg/jwtx"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeAccounts struct {
	accounts map[string]domain.Account
}

func (f *fakeAccounts) GetAccountByID(_ context.Context, id string) (domain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return domain.Account{}, store.ErrNotFound
	}
	return a, nil
}

type fakeDevices struct {
	devices map[string]domain.Device
}

func (f *fakeDevices) GetDeviceByID(_ context.Context, id string) (domain.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return domain.Device{}, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeDevices) GetDeviceByStoreSequence(_ context.Context, storeID string, sequence int) (domain.Device, error) {
	for _, d := range f.devices {
		if d.StoreID == storeID && d.Sequence == sequence {
			return d, nil
		}
	}
	return domain.Device{}, store.ErrNotFound
}

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()
	codec, err := jwtx.NewCodec(testSecret, "kioskd-test")
	require.NoError(t, err)
	return codec
}

func TestAccountGateAuthenticate(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	accounts := &fakeAccounts{accounts: map[string]domain.Account{
		"acc-1": {ID: "acc-1", Role: domain.RoleAdmin, Status: domain.AccountActive, TokenVersion: 3},
		"acc-2": {ID: "acc-2", Role: domain.RoleUser, Status: domain.AccountSuspended, TokenVersion: 0},
	}}
	g := &AccountGate{Codec: codec, Accounts: accounts}

	t.Run("valid token with current version", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueAccount("acc-1", 3, string(domain.RoleAdmin), time.Minute)
		require.NoError(t, err)

		principal, err := g.Authenticate(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, "acc-1", principal.Account.ID)
		require.Equal(t, domain.RoleAdmin, principal.Account.Role)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueAccount("acc-1", 2, string(domain.RoleAdmin), time.Minute)
		require.NoError(t, err)

		_, err = g.Authenticate(context.Background(), raw)
		require.ErrorIs(t, err, ErrVersionStale)
	})

	t.Run("token without version snapshot is rejected", func(t *testing.T) {
		t.Parallel()
		// Hand-build claims with no version, the shape of a pre-snapshot
		// token.
		claims := jwtx.NewAccountClaims("acc-1", 0, string(domain.RoleAdmin), "kioskd-test", time.Minute, time.Now().UTC())
		claims.Version = nil
		raw, err := codec.Issue(claims)
		require.NoError(t, err)

		_, err = g.Authenticate(context.Background(), raw)
		require.ErrorIs(t, err, ErrVersionMissing)
	})

	t.Run("unknown principal", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueAccount("acc-missing", 0, string(domain.RoleUser), time.Minute)
		require.NoError(t, err)

		_, err = g.Authenticate(context.Background(), raw)
		require.ErrorIs(t, err, ErrPrincipalNotFound)
	})

	t.Run("suspended principal", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueAccount("acc-2", 0, string(domain.RoleUser), time.Minute)
		require.NoError(t, err)

		_, err = g.Authenticate(context.Background(), raw)
		require.ErrorIs(t, err, ErrPrincipalDisabled)
	})

	t.Run("device token on account gate", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueDevice("dev-1", "store-1", 1, 0, time.Minute)
		require.NoError(t, err)

		_, err = g.Authenticate(context.Background(), raw)
		require.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestDeviceGateBearer(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	devices := &fakeDevices{devices: map[string]domain.Device{
		"dev-1": {ID: "dev-1", StoreID: "store-1", Sequence: 2, Status: domain.DeviceActive, SessionVersion: 5},
		"dev-2": {ID: "dev-2", StoreID: "store-1", Sequence: 3, Status: domain.DeviceInactive, SessionVersion: 0},
	}}
	g := &DeviceGate{Codec: codec, Devices: devices}

	t.Run("valid token with current session version", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueDevice("dev-1", "store-1", 2, 5, time.Minute)
		require.NoError(t, err)

		principal, err := g.AuthenticateBearer(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, "dev-1", principal.Device.ID)
		require.False(t, principal.Legacy)
	})

	t.Run("superseded session version is rejected", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueDevice("dev-1", "store-1", 2, 4, time.Minute)
		require.NoError(t, err)

		_, err = g.AuthenticateBearer(context.Background(), raw)
		require.ErrorIs(t, err, ErrVersionStale)
	})

	t.Run("token without session version snapshot is accepted", func(t *testing.T) {
		t.Parallel()
		// Deployed terminals hold tokens minted before the snapshot claim
		// existed. They must keep working.
		claims := jwtx.NewDeviceClaims("dev-1", "store-1", 2, 0, "kioskd-test", time.Minute, time.Now().UTC())
		claims.SessionVersion = nil
		raw, err := codec.Issue(claims)
		require.NoError(t, err)

		principal, err := g.AuthenticateBearer(context.Background(), raw)
		require.NoError(t, err)
		require.Equal(t, "dev-1", principal.Device.ID)
	})

	t.Run("inactive device", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueDevice("dev-2", "store-1", 3, 0, time.Minute)
		require.NoError(t, err)

		_, err = g.AuthenticateBearer(context.Background(), raw)
		require.ErrorIs(t, err, ErrPrincipalDisabled)
	})

	t.Run("account token on device gate", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueAccount("acc-1", 0, string(domain.RoleUser), time.Minute)
		require.NoError(t, err)

		_, err = g.AuthenticateBearer(context.Background(), raw)
		require.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestDeviceGateLegacy(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	devices := &fakeDevices{devices: map[string]domain.Device{
		"dev-1": {ID: "dev-1", StoreID: "store-1", Sequence: 2, Status: domain.DeviceActive},
	}}
	g := &DeviceGate{Codec: codec, Devices: devices}

	t.Run("correlated headers", func(t *testing.T) {
		t.Parallel()
		principal, err := g.AuthenticateLegacy(context.Background(), "store-1", "dev-1", "2")
		require.NoError(t, err)
		require.True(t, principal.Legacy)
		require.Equal(t, "dev-1", principal.Device.ID)
	})

	t.Run("incomplete headers", func(t *testing.T) {
		t.Parallel()
		_, err := g.AuthenticateLegacy(context.Background(), "store-1", "", "2")
		require.ErrorIs(t, err, ErrLegacyHeadersIncomplete)
	})

	t.Run("non-numeric sequence", func(t *testing.T) {
		t.Parallel()
		_, err := g.AuthenticateLegacy(context.Background(), "store-1", "dev-1", "two")
		require.ErrorIs(t, err, ErrLegacyHeadersIncomplete)
	})

	t.Run("device id does not match the tuple", func(t *testing.T) {
		t.Parallel()
		_, err := g.AuthenticateLegacy(context.Background(), "store-1", "dev-other", "2")
		require.ErrorIs(t, err, ErrLegacyHeaderMismatch)
	})

	t.Run("unknown tuple", func(t *testing.T) {
		t.Parallel()
		_, err := g.AuthenticateLegacy(context.Background(), "store-9", "dev-1", "2")
		require.ErrorIs(t, err, ErrPrincipalNotFound)
	})
}

func TestDeviceGateMiddlewareFallback(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	devices := &fakeDevices{devices: map[string]domain.Device{
		"dev-1": {ID: "dev-1", StoreID: "store-1", Sequence: 2, Status: domain.DeviceActive, SessionVersion: 5},
	}}
	g := &DeviceGate{Codec: codec, Devices: devices}

	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := DeviceFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if principal.Legacy {
			w.WriteHeader(http.StatusResetContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := httpx.Chain(probe, g.Middleware())

	setHeaders := func(req *http.Request) {
		req.Header.Set(HeaderDeviceStore, "store-1")
		req.Header.Set(HeaderDeviceID, "dev-1")
		req.Header.Set(HeaderDeviceSeq, "2")
	}

	t.Run("garbage bearer falls back to headers", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		setHeaders(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusResetContent, rec.Code)
	})

	t.Run("expired bearer falls back to headers", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueDevice("dev-1", "store-1", 2, 5, -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		setHeaders(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusResetContent, rec.Code)
	})

	t.Run("superseded bearer does not fall back", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueDevice("dev-1", "store-1", 2, 4, time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		setHeaders(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("valid bearer wins over headers", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueDevice("dev-1", "store-1", 2, 5, time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		setHeaders(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGateMiddlewareFailOpen(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	accounts := &fakeAccounts{accounts: map[string]domain.Account{
		"acc-1": {ID: "acc-1", Role: domain.RoleUser, Status: domain.AccountActive, TokenVersion: 1},
	}}
	g := &AccountGate{Codec: codec, Accounts: accounts}

	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFromContext(r.Context()); ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handler := httpx.Chain(probe, g.Middleware())

	t.Run("no credentials pass through unauthenticated", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("garbage token passes through unauthenticated", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("valid token attaches the principal", func(t *testing.T) {
		t.Parallel()
		raw, err := codec.IssueAccount("acc-1", 1, string(domain.RoleUser), time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireMiddleware(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("require account rejects anonymous", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpx.Chain(ok, RequireAccount()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("require role rejects wrong role", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := WithAccount(req.Context(), AccountPrincipal{
			Account: domain.Account{ID: "acc-1", Role: domain.RoleUser, Status: domain.AccountActive},
		})
		rec := httptest.NewRecorder()
		httpx.Chain(ok, RequireRole(domain.RoleAdmin)).ServeHTTP(rec, req.WithContext(ctx))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("require role passes matching role", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := WithAccount(req.Context(), AccountPrincipal{
			Account: domain.Account{ID: "acc-1", Role: domain.RoleAdmin, Status: domain.AccountActive},
		})
		rec := httptest.NewRecorder()
		httpx.Chain(ok, RequireRole(domain.RoleAdmin)).ServeHTTP(rec, req.WithContext(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("require device rejects anonymous", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpx.Chain(ok, RequireDevice()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
