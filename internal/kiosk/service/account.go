package service

import (
	"context"
	"errors"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/store"
	"github.com/storelink/kioskd/pkg/cryptox"
	"github.com/storelink/kioskd/pkg/idx"
	"github.com/storelink/kioskd/pkg/jwtx"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so the response does not leak which accounts exist.
	ErrInvalidCredentials = errors.New("service: invalid credentials")

	ErrAccountDisabled = errors.New("service: account disabled")

	// ErrInvalidRefreshCredential covers unknown and already-rotated
	// credentials.
	ErrInvalidRefreshCredential = errors.New("service: invalid refresh credential")

	// ErrRefreshExpired is a normal condition: the client re-authenticates
	// with a password. The spent credential is removed on the way out.
	ErrRefreshExpired = errors.New("service: refresh credential expired")
)

// AccountService owns login, refresh and logout for human accounts.
//
// Every access-token issuance bumps the account's token version first and
// stamps the post-bump value, so at any moment only the most recently
// issued access token verifies. Long-lived refresh credentials are scoped
// per (account, app class), which is what lets a web logout leave an
// editor session's refresh credential alone.
type AccountService struct {
	Store store.Store
	Codec *jwtx.Codec

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewAccountService(st store.Store, codec *jwtx.Codec) *AccountService {
	return &AccountService{
		Store:      st,
		Codec:      codec,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshCredentialTTL,
	}
}

// Login verifies the password and issues a fresh token pair for the app
// class. The version bump happens inside the same transaction as the
// refresh-credential rotation so a failed login attempt never revokes
// anything.
func (s *AccountService) Login(ctx context.Context, email, password string, class domain.AppClass) (domain.TokenPair, error) {
	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}
	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	if !account.Active() {
		return domain.TokenPair{}, ErrAccountDisabled
	}

	return s.issuePair(ctx, account, class)
}

// Refresh exchanges a live refresh credential for a fresh token pair,
// rotating the credential in the process. The old credential is dead either
// way: spent on success, deleted on expiry.
func (s *AccountService) Refresh(ctx context.Context, rawCredential string) (domain.TokenPair, error) {
	fingerprint := cryptox.FingerprintToken(rawCredential)

	rc, err := s.Store.RefreshCredentials().GetRefreshCredentialByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidRefreshCredential
		}
		return domain.TokenPair{}, err
	}
	if rc.Expired(time.Now().UTC()) {
		_ = s.Store.RefreshCredentials().DeleteByFingerprint(ctx, fingerprint)
		return domain.TokenPair{}, ErrRefreshExpired
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, rc.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidRefreshCredential
		}
		return domain.TokenPair{}, err
	}
	if !account.Active() {
		return domain.TokenPair{}, ErrAccountDisabled
	}

	return s.issuePair(ctx, account, rc.AppClass)
}

// Logout revokes refresh credentials and bumps the token version so every
// outstanding access token goes stale. When class is non-nil only that app
// class's refresh credential is removed; a nil class is "log out
// everywhere" and clears them all.
func (s *AccountService) Logout(ctx context.Context, accountID string, class *domain.AppClass) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if class != nil {
			if err := tx.RefreshCredentials().DeleteByAccountAppClass(ctx, accountID, *class); err != nil {
				return err
			}
		} else {
			if err := tx.RefreshCredentials().DeleteByAccount(ctx, accountID); err != nil {
				return err
			}
		}
		_, err := tx.Accounts().BumpTokenVersion(ctx, accountID)
		return err
	})
}

// GetAccountByID fetches an account by id.
func (s *AccountService) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return s.Store.Accounts().GetAccountByID(ctx, id)
}

// issuePair bumps the version, signs an access token stamped with the
// post-bump value, and rotates the app class's refresh credential, all in
// one transaction. Issuing before bumping would mint an instantly stale
// token.
func (s *AccountService) issuePair(ctx context.Context, account domain.Account, class domain.AppClass) (domain.TokenPair, error) {
	rawCredential, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	var access string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		version, err := tx.Accounts().BumpTokenVersion(ctx, account.ID)
		if err != nil {
			return err
		}

		access, err = s.Codec.IssueAccount(account.ID, version, string(account.Role), s.AccessTTL)
		if err != nil {
			return err
		}

		if err := tx.RefreshCredentials().DeleteByAccountAppClass(ctx, account.ID, class); err != nil {
			return err
		}
		return tx.RefreshCredentials().CreateRefreshCredential(ctx, domain.RefreshCredential{
			ID:          idx.New().String(),
			AccountID:   account.ID,
			AppClass:    class,
			Fingerprint: cryptox.FingerprintToken(rawCredential),
			ExpiresAt:   time.Now().UTC().Add(s.RefreshTTL),
		})
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:       access,
		RefreshCredential: rawCredential,
		TokenType:         "Bearer",
		ExpiresIn:         int64(s.AccessTTL.Seconds()),
	}, nil
}
