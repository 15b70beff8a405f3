package sqlite

import (
	"context"
	"database/sql"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, password_hash, display_name, role, status, token_version, created_at, updated_at`

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.DisplayName,
		&a.Role,
		&a.Status,
		&a.TokenVersion,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, display_name, role, status, token_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, a.DisplayName, a.Role, a.Status, a.TokenVersion,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) BumpTokenVersion(ctx context.Context, id string) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET token_version = token_version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING token_version`, id)

	var version int64
	if err := row.Scan(&version); err != nil {
		return 0, mapNotFound(err)
	}
	return version, nil
}

func (r *accountsRepo) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accountsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
