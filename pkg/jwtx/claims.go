package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Device tokens are long-lived because kiosk
// terminals are unattended; revocation relies on the session version
// counter rather than on expiry.
const (
	DefaultAccessTokenTTL       = 30 * time.Minute
	DefaultDeviceTokenTTL       = 180 * 24 * time.Hour
	DefaultRefreshCredentialTTL = 7 * 24 * time.Hour
)

// Kind tags which principal a token was issued for.
type Kind string

const (
	KindAccount Kind = "account"
	KindDevice  Kind = "device"
)

// Claims are the access-token claims shared by both principal kinds. The
// version fields are pointers so a missing claim (legacy token) is
// distinguishable from an explicit zero.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is "account" or "device".
	Kind Kind `json:"kind,omitempty"`

	// Version is the account token-version snapshot taken at issuance.
	Version *int64 `json:"version,omitempty"`

	// SessionVersion is the device session-version snapshot taken at
	// issuance. Absent on legacy device tokens.
	SessionVersion *int64 `json:"sessionVersion,omitempty"`

	// Device identity claims.
	StoreID  string `json:"storeId,omitempty"`
	Sequence int    `json:"sequence,omitempty"`

	// Role carried on account tokens so handlers can authorize without a
	// second lookup.
	Role string `json:"role,omitempty"`
}

// NewAccountClaims builds claims for a human account token stamped with the
// account's current token version.
func NewAccountClaims(subject string, version int64, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		Kind:             KindAccount,
		Version:          &version,
		Role:             role,
	}
}

// NewDeviceClaims builds claims for an unattended device token stamped with
// the device's current session version.
func NewDeviceClaims(subject, storeID string, sequence int, sessionVersion int64, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		Kind:             KindDevice,
		SessionVersion:   &sessionVersion,
		StoreID:          storeID,
		Sequence:         sequence,
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
