package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the minimum HS256 secret length in bytes. Anything
// shorter weakens the HMAC below the hash output size.
const MinSecretLen = 32

var (
	// ErrWeakSecret reports a missing or too-short signing secret. This is
	// a startup misconfiguration, never a per-request condition.
	ErrWeakSecret = errors.New("jwtx: signing secret shorter than 32 bytes")

	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrBadSignature   = errors.New("jwtx: invalid signature")
	ErrExpired        = errors.New("jwtx: token expired")
	ErrUnsupportedAlg = errors.New("jwtx: unsupported signing algorithm")
	ErrInvalidClaim   = errors.New("jwtx: invalid claims")
)

// Codec signs and verifies bearer tokens for both principal kinds.
// Verification is purely structural and cryptographic; it never consults
// principal state, so a structurally valid token can still be stale with
// respect to the version counters (the gates check that).
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec validates the key material once at construction. Callers treat a
// failure here as fatal.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	return &Codec{secret: secret, issuer: issuer}, nil
}

// Issuer returns the issuer stamped into tokens.
func (c *Codec) Issuer() string { return c.issuer }

// Issue signs the given claims with HS256.
func (c *Codec) Issue(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// IssueAccount signs an account token carrying the given version snapshot.
func (c *Codec) IssueAccount(subject string, version int64, role string, ttl time.Duration) (string, error) {
	return c.Issue(NewAccountClaims(subject, version, role, c.issuer, ttl, time.Now().UTC()))
}

// IssueDevice signs a device token carrying the given session-version
// snapshot and the device identity claims.
func (c *Codec) IssueDevice(subject, storeID string, sequence int, sessionVersion int64, ttl time.Duration) (string, error) {
	return c.Issue(NewDeviceClaims(subject, storeID, sequence, sessionVersion, c.issuer, ttl, time.Now().UTC()))
}

// Verify parses and validates the token string. Every failure maps onto one
// of the package sentinel errors so callers can branch with errors.Is.
func (c *Codec) Verify(raw string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithIssuer(c.issuer), jwt.WithExpirationRequired())

	token, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnsupportedAlg
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}
	if claims.Subject == "" || (claims.Kind != KindAccount && claims.Kind != KindDevice) {
		return Claims{}, ErrInvalidClaim
	}

	return *claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedAlg):
		return ErrUnsupportedAlg
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrInvalidClaim
	default:
		return ErrMalformed
	}
}
