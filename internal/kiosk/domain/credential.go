package domain

import (
	"errors"
	"time"
)

// AppClass is the category of client a refresh credential belongs to.
// Credentials are scoped per (account, app class) so logging out of the web
// dashboard does not end an editor session on the same account.
type AppClass string

const (
	AppClassWeb    AppClass = "web"
	AppClassEditor AppClass = "editor"
	AppClassKiosk  AppClass = "kiosk"
)

var ErrUnknownAppClass = errors.New("domain: unknown app class")

// ParseAppClass validates a client-supplied app class string.
func ParseAppClass(s string) (AppClass, error) {
	switch AppClass(s) {
	case AppClassWeb, AppClassEditor, AppClassKiosk:
		return AppClass(s), nil
	default:
		return "", ErrUnknownAppClass
	}
}

// RefreshCredential is an opaque long-lived credential. Only the SHA-256
// fingerprint of the raw value is stored.
type RefreshCredential struct {
	ID          string
	AccountID   string
	AppClass    AppClass
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the credential's lifetime has passed.
func (rc RefreshCredential) Expired(now time.Time) bool {
	return now.After(rc.ExpiresAt)
}

// TokenPair is what the login and refresh endpoints return.
type TokenPair struct {
	AccessToken       string `json:"access_token"`
	RefreshCredential string `json:"refresh_credential"`
	TokenType         string `json:"token_type"` // always "Bearer"
	ExpiresIn         int64  `json:"expires_in"` // seconds until access token expiry
}

// DeviceToken is what the device token endpoint returns.
type DeviceToken struct {
	AccessToken    string `json:"access_token"`
	TokenType      string `json:"token_type"`
	SessionVersion int64  `json:"session_version"`
	ExpiresIn      int64  `json:"expires_in"`
}
