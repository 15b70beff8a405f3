package store

import (
	"context"
	"errors"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Accounts() Accounts
	Devices() Devices
	RefreshCredentials() RefreshCredentials

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back if fn returns
	// an error and committing otherwise. Preferred over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Accounts is the principal store for human accounts, including the
// authoritative token-version counter.
type Accounts interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account (id provided by the app via ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	// BumpTokenVersion atomically increments the revocation counter and
	// returns the new value. Every token issued before the bump becomes
	// stale against it.
	BumpTokenVersion(ctx context.Context, id string) (int64, error)

	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error

	// IsEmpty reports whether any account exists, used for first-run
	// admin seeding.
	IsEmpty(ctx context.Context) (bool, error)
}

// Devices is the principal store for kiosk terminals, including the
// authoritative session-version counter.
type Devices interface {
	GetDeviceByID(ctx context.Context, id string) (domain.Device, error)

	// GetDeviceByStoreSequence resolves the legacy header tuple. Callers
	// must compare the returned device's id against any client-supplied id.
	GetDeviceByStoreSequence(ctx context.Context, storeID string, sequence int) (domain.Device, error)

	CreateDevice(ctx context.Context, d domain.Device) error

	// BumpSessionVersion atomically increments the session counter and
	// returns the new value. Runs on every token issuance for the device.
	BumpSessionVersion(ctx context.Context, id string) (int64, error)

	UpdateStatus(ctx context.Context, id string, status domain.DeviceStatus) error

	// TouchConnected records a successful realtime connection.
	TouchConnected(ctx context.Context, id string, at time.Time) error
}

// RefreshCredentials stores opaque long-lived credential fingerprints keyed
// by (account, app class).
type RefreshCredentials interface {
	CreateRefreshCredential(ctx context.Context, rc domain.RefreshCredential) error
	GetRefreshCredentialByFingerprint(ctx context.Context, fingerprint string) (domain.RefreshCredential, error)

	// DeleteByAccountAppClass removes the credential for exactly this
	// (account, app class) pair; other classes are untouched.
	DeleteByAccountAppClass(ctx context.Context, accountID string, class domain.AppClass) error

	// DeleteByAccount removes every credential the account owns.
	DeleteByAccount(ctx context.Context, accountID string) error

	DeleteByFingerprint(ctx context.Context, fingerprint string) error

	// DeleteExpired prunes credentials past their expiry, returning how
	// many were removed. Run by housekeeping.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
