package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/store"
	"github.com/storelink/kioskd/pkg/idx"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestAccountsRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	empty, err := st.Accounts().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	account := domain.Account{
		ID:           idx.New().String(),
		Email:        "admin@example.com",
		PasswordHash: "$argon2id$fake",
		DisplayName:  "Admin",
		Role:         domain.RoleAdmin,
		Status:       domain.AccountActive,
	}
	require.NoError(t, st.Accounts().CreateAccount(ctx, account))

	empty, err = st.Accounts().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	t.Run("lookup by id and email", func(t *testing.T) {
		byID, err := st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, account.Email, byID.Email)
		require.Equal(t, int64(0), byID.TokenVersion)

		byEmail, err := st.Accounts().GetAccountByEmail(ctx, account.Email)
		require.NoError(t, err)
		require.Equal(t, account.ID, byEmail.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := account
		dup.ID = idx.New().String()
		err := st.Accounts().CreateAccount(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("bump token version is monotonic", func(t *testing.T) {
		v1, err := st.Accounts().BumpTokenVersion(ctx, account.ID)
		require.NoError(t, err)
		v2, err := st.Accounts().BumpTokenVersion(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, v1+1, v2)

		stored, err := st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, v2, stored.TokenVersion)
	})

	t.Run("bump unknown account", func(t *testing.T) {
		_, err := st.Accounts().BumpTokenVersion(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update status", func(t *testing.T) {
		require.NoError(t, st.Accounts().UpdateStatus(ctx, account.ID, domain.AccountSuspended))
		stored, err := st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, domain.AccountSuspended, stored.Status)

		require.ErrorIs(t, st.Accounts().UpdateStatus(ctx, "nope", domain.AccountActive), store.ErrNotFound)
	})
}

func TestDevicesRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	device := domain.Device{
		ID:       idx.New().String(),
		StoreID:  "store-1",
		Sequence: 1,
		Name:     "Front kiosk",
		Status:   domain.DeviceActive,
	}
	require.NoError(t, st.Devices().CreateDevice(ctx, device))

	t.Run("lookup by tuple", func(t *testing.T) {
		found, err := st.Devices().GetDeviceByStoreSequence(ctx, "store-1", 1)
		require.NoError(t, err)
		require.Equal(t, device.ID, found.ID)

		_, err = st.Devices().GetDeviceByStoreSequence(ctx, "store-1", 2)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate tuple", func(t *testing.T) {
		dup := device
		dup.ID = idx.New().String()
		require.ErrorIs(t, st.Devices().CreateDevice(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("bump session version", func(t *testing.T) {
		v1, err := st.Devices().BumpSessionVersion(ctx, device.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), v1)

		v2, err := st.Devices().BumpSessionVersion(ctx, device.ID)
		require.NoError(t, err)
		require.Equal(t, int64(2), v2)
	})

	t.Run("touch connected", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, st.Devices().TouchConnected(ctx, device.ID, now))

		stored, err := st.Devices().GetDeviceByID(ctx, device.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastConnectedAt)
	})
}

func TestRefreshCredentialsRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	account := domain.Account{
		ID:           idx.New().String(),
		Email:        "admin@example.com",
		PasswordHash: "x",
		Role:         domain.RoleAdmin,
		Status:       domain.AccountActive,
	}
	require.NoError(t, st.Accounts().CreateAccount(ctx, account))

	create := func(t *testing.T, class domain.AppClass, fingerprint string, ttl time.Duration) {
		t.Helper()
		require.NoError(t, st.RefreshCredentials().CreateRefreshCredential(ctx, domain.RefreshCredential{
			ID:          idx.New().String(),
			AccountID:   account.ID,
			AppClass:    class,
			Fingerprint: fingerprint,
			ExpiresAt:   time.Now().UTC().Add(ttl),
		}))
	}

	create(t, domain.AppClassWeb, "fp-web", time.Hour)
	create(t, domain.AppClassEditor, "fp-editor", time.Hour)

	t.Run("one credential per app class", func(t *testing.T) {
		err := st.RefreshCredentials().CreateRefreshCredential(ctx, domain.RefreshCredential{
			ID:          idx.New().String(),
			AccountID:   account.ID,
			AppClass:    domain.AppClassWeb,
			Fingerprint: "fp-web-2",
			ExpiresAt:   time.Now().UTC().Add(time.Hour),
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("delete scoped to app class", func(t *testing.T) {
		require.NoError(t, st.RefreshCredentials().DeleteByAccountAppClass(ctx, account.ID, domain.AppClassWeb))

		_, err := st.RefreshCredentials().GetRefreshCredentialByFingerprint(ctx, "fp-web")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.RefreshCredentials().GetRefreshCredentialByFingerprint(ctx, "fp-editor")
		require.NoError(t, err)
	})

	t.Run("delete expired", func(t *testing.T) {
		create(t, domain.AppClassKiosk, "fp-dead", -time.Hour)

		deleted, err := st.RefreshCredentials().DeleteExpired(ctx, time.Now().UTC())
		require.NoError(t, err)
		require.Equal(t, int64(1), deleted)

		_, err = st.RefreshCredentials().GetRefreshCredentialByFingerprint(ctx, "fp-dead")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("cascade on account delete", func(t *testing.T) {
		require.NoError(t, st.RefreshCredentials().DeleteByAccount(ctx, account.ID))
		_, err := st.RefreshCredentials().GetRefreshCredentialByFingerprint(ctx, "fp-editor")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	account := domain.Account{
		ID:           idx.New().String(),
		Email:        "admin@example.com",
		PasswordHash: "x",
		Role:         domain.RoleAdmin,
		Status:       domain.AccountActive,
	}
	require.NoError(t, st.Accounts().CreateAccount(ctx, account))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Accounts().BumpTokenVersion(ctx, account.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := st.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), stored.TokenVersion)
}
