package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/store"
)

type devicesRepo struct {
	db dbtx
}

const deviceColumns = `id, store_id, sequence, name, status, session_version, last_connected_at, created_at, updated_at`

func scanDevice(row *sql.Row) (domain.Device, error) {
	var (
		d         domain.Device
		connected sql.NullTime
	)
	err := row.Scan(
		&d.ID,
		&d.StoreID,
		&d.Sequence,
		&d.Name,
		&d.Status,
		&d.SessionVersion,
		&connected,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return domain.Device{}, mapNotFound(err)
	}
	d.LastConnectedAt = mapNullTimePtr(connected)
	return d, nil
}

func (r *devicesRepo) GetDeviceByID(ctx context.Context, id string) (domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	return scanDevice(row)
}

func (r *devicesRepo) GetDeviceByStoreSequence(ctx context.Context, storeID string, sequence int) (domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE store_id = ? AND sequence = ?`,
		storeID, sequence)
	return scanDevice(row)
}

func (r *devicesRepo) CreateDevice(ctx context.Context, d domain.Device) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (id, store_id, sequence, name, status, session_version, last_connected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.StoreID, d.Sequence, d.Name, d.Status, d.SessionVersion,
		mapOptionalTime(d.LastConnectedAt),
	)
	return mapConstraint(err)
}

func (r *devicesRepo) BumpSessionVersion(ctx context.Context, id string) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE devices
		SET session_version = session_version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING session_version`, id)

	var version int64
	if err := row.Scan(&version); err != nil {
		return 0, mapNotFound(err)
	}
	return version, nil
}

func (r *devicesRepo) UpdateStatus(ctx context.Context, id string, status domain.DeviceStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *devicesRepo) TouchConnected(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET last_connected_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at.UTC(), id)
	return err
}
