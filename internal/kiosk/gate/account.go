package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/store"
	"github.com/storelink/kioskd/pkg/httpx"
	"github.com/storelink/kioskd/pkg/jwtx"
	"github.com/storelink/kioskd/pkg/slogx"
)

// AccountSource resolves account principals by id. Satisfied by
// store.Accounts.
type AccountSource interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
}

// MetricsRecorder receives authentication outcomes. Nil is allowed.
type MetricsRecorder interface {
	AuthOutcome(kind, outcome string)
}

// AccountGate authenticates human callers. It never rejects a request
// itself: a request with no credentials, or with credentials that fail any
// check, continues down the chain unauthenticated and route-level
// authorization decides what that means. This keeps one middleware usable
// on both public and protected routes.
type AccountGate struct {
	Codec    *jwtx.Codec
	Accounts AccountSource
	Metrics  MetricsRecorder
}

// Authenticate verifies a raw bearer token end to end: signature and
// structure, principal existence and status, and the version snapshot
// against the account's current token version.
func (g *AccountGate) Authenticate(ctx context.Context, raw string) (AccountPrincipal, error) {
	claims, err := g.Codec.Verify(raw)
	if err != nil {
		return AccountPrincipal{}, err
	}
	if claims.Kind != jwtx.KindAccount {
		return AccountPrincipal{}, ErrTypeMismatch
	}

	// Tokens minted before version snapshots cannot be checked against
	// the revocation counter, so they are dead on arrival.
	if claims.Version == nil {
		return AccountPrincipal{}, ErrVersionMissing
	}

	account, err := g.Accounts.GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AccountPrincipal{}, ErrPrincipalNotFound
		}
		return AccountPrincipal{}, err
	}
	if !account.Active() {
		return AccountPrincipal{}, ErrPrincipalDisabled
	}
	if *claims.Version != account.TokenVersion {
		return AccountPrincipal{}, ErrVersionStale
	}

	return AccountPrincipal{Account: account, Claims: claims}, nil
}

// Middleware attaches an account principal to the request context when a
// valid bearer token is present, and passes the request through untouched
// otherwise.
func (g *AccountGate) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := g.Authenticate(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Warn("account auth failed", "err", err)
				g.outcome("denied")
				next.ServeHTTP(w, r)
				return
			}

			g.outcome("ok")
			next.ServeHTTP(w, r.WithContext(WithAccount(ctx, principal)))
		})
	}
}

func (g *AccountGate) outcome(outcome string) {
	if g.Metrics != nil {
		g.Metrics.AuthOutcome("account", outcome)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	return raw, raw != ""
}
