package sqlite

import (
	"context"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/domain"
)

type refreshCredentialsRepo struct {
	db dbtx
}

func (r *refreshCredentialsRepo) CreateRefreshCredential(ctx context.Context, rc domain.RefreshCredential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_credentials (id, account_id, app_class, fingerprint, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		rc.ID, rc.AccountID, rc.AppClass, rc.Fingerprint, rc.ExpiresAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *refreshCredentialsRepo) GetRefreshCredentialByFingerprint(ctx context.Context, fingerprint string) (domain.RefreshCredential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, app_class, fingerprint, expires_at, created_at
		FROM refresh_credentials WHERE fingerprint = ?`, fingerprint)

	var rc domain.RefreshCredential
	err := row.Scan(&rc.ID, &rc.AccountID, &rc.AppClass, &rc.Fingerprint, &rc.ExpiresAt, &rc.CreatedAt)
	if err != nil {
		return domain.RefreshCredential{}, mapNotFound(err)
	}
	return rc, nil
}

func (r *refreshCredentialsRepo) DeleteByAccountAppClass(ctx context.Context, accountID string, class domain.AppClass) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_credentials WHERE account_id = ? AND app_class = ?`,
		accountID, class)
	return err
}

func (r *refreshCredentialsRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_credentials WHERE account_id = ?`, accountID)
	return err
}

func (r *refreshCredentialsRepo) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_credentials WHERE fingerprint = ?`, fingerprint)
	return err
}

func (r *refreshCredentialsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_credentials WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
