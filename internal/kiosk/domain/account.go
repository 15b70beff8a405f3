package domain

import "time"

type AccountRole string

const (
	RoleAdmin AccountRole = "admin"
	RoleUser  AccountRole = "user"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountDeleted   AccountStatus = "deleted"
)

// Account is a human principal. TokenVersion is the monotonic revocation
// counter: every bearer token snapshots it at issuance and is void the
// moment the counter moves past the snapshot.
type Account struct {
	ID           string
	Email        string
	PasswordHash string // argon2id encoded
	DisplayName  string
	Role         AccountRole
	Status       AccountStatus
	TokenVersion int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may authenticate.
func (a Account) Active() bool { return a.Status == AccountActive }
