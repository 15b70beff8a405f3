package gate

import "errors"

var (
	// ErrVersionStale reports a token whose version snapshot no longer
	// matches the principal's current counter. The token was valid once
	// and has since been revoked by a bump.
	ErrVersionStale = errors.New("gate: token version stale")

	// ErrVersionMissing reports an account token minted before version
	// snapshots existed. Those tokens cannot be checked against the
	// counter, so they are treated as revoked.
	ErrVersionMissing = errors.New("gate: token missing version snapshot")

	ErrPrincipalNotFound = errors.New("gate: principal not found")
	ErrPrincipalDisabled = errors.New("gate: principal disabled")

	// ErrTypeMismatch reports a token presented against the wrong gate,
	// e.g. a device token on an account route.
	ErrTypeMismatch = errors.New("gate: token kind mismatch")

	// ErrLegacyHeadersIncomplete reports a request carrying some but not
	// all of the legacy device identification headers.
	ErrLegacyHeadersIncomplete = errors.New("gate: incomplete legacy device headers")

	// ErrLegacyHeaderMismatch reports a legacy header set whose device id
	// does not belong to the (store, sequence) tuple it claims.
	ErrLegacyHeaderMismatch = errors.New("gate: legacy device headers do not correlate")
)
