package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fastpay-backend/internal/domain"

	"go.uber.org/zap"
)

const deviceColumns = `
	id::text, device_id, name, model, phone, current_phone, current_identifier,
	code, is_active, last_seen, battery_percentage, bankcard, system_info::text,
	CASE WHEN company_id IS NULL THEN NULL ELSE company_id::text END,
	sync_status, sync_error_message, last_sync_at, last_hard_sync_at,
	messages_last_synced_at, notifications_last_synced_at, contacts_last_synced_at,
	created_at, updated_at`

type PostgresDevicesRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresDevicesRepo(db *sql.DB, logger *zap.Logger) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db, logger: logger}
}

func scanDevice(row interface{ Scan(...any) error }) (*domain.Device, error) {
	var d domain.Device
	err := row.Scan(
		&d.ID, &d.DeviceID, &d.Name, &d.Model, &d.Phone, &d.CurrentPhone,
		&d.CurrentIdentifier, &d.Code, &d.IsActive, &d.LastSeen,
		&d.BatteryPercentage, &d.Bankcard, &d.SystemInfo, &d.CompanyID,
		&d.SyncStatus, &d.SyncErrorMessage, &d.LastSyncAt, &d.LastHardSyncAt,
		&d.MessagesLastSyncedAt, &d.NotificationsLastSyncedAt,
		&d.ContactsLastSyncedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDevicesRepo) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error) {
	q := `SELECT ` + deviceColumns + ` FROM devices WHERE device_id = $1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, q, deviceID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device %s not found", deviceID)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDeviceIDs returns every known device_id, the default device set of a
// sync pass.
func (r *PostgresDevicesRepo) ListDeviceIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT device_id FROM devices ORDER BY device_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns devices, company-scoped when companyID is non-empty.
func (r *PostgresDevicesRepo) List(ctx context.Context, companyID string, page, size int) ([]domain.Device, int, error) {
	where := "TRUE"
	args := []any{}
	if companyID != "" {
		where = "company_id = $1"
		args = append(args, companyID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	q := fmt.Sprintf(`SELECT %s FROM devices WHERE %s ORDER BY device_id LIMIT $%d OFFSET $%d`,
		deviceColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// Upsert creates the device on first sight and merges non-null fields into
// an existing row. system_info objects are merged key-wise, matching the
// source's update semantics.
func (r *PostgresDevicesRepo) Upsert(ctx context.Context, u *domain.DeviceUpdate) (created bool, err error) {
	q := `
		INSERT INTO devices (
			device_id, name, model, phone, current_phone, current_identifier,
			code, is_active, last_seen, battery_percentage, bankcard,
			system_info, sync_status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			COALESCE($8, FALSE), $9, $10, COALESCE($11, 'BANKCARD'),
			COALESCE($12::jsonb, '{}'::jsonb), COALESCE($13, 'never_synced')
		)
		ON CONFLICT (device_id) DO UPDATE SET
			name               = COALESCE($2, devices.name),
			model              = COALESCE($3, devices.model),
			phone              = COALESCE($4, devices.phone),
			current_phone      = COALESCE($5, devices.current_phone),
			current_identifier = COALESCE($6, devices.current_identifier),
			code               = COALESCE($7, devices.code),
			is_active          = COALESCE($8, devices.is_active),
			last_seen          = COALESCE($9, devices.last_seen),
			battery_percentage = COALESCE($10, devices.battery_percentage),
			bankcard           = COALESCE($11, devices.bankcard),
			system_info        = devices.system_info || COALESCE($12::jsonb, '{}'::jsonb),
			sync_status        = COALESCE($13, devices.sync_status),
			sync_error_message = NULL,
			updated_at         = NOW()
		RETURNING (xmax = 0)`
	err = r.db.QueryRowContext(ctx, q,
		u.DeviceID, u.Name, u.Model, u.Phone, u.CurrentPhone,
		u.CurrentIdentifier, u.Code, u.IsActive, u.LastSeen,
		u.BatteryPercentage, u.Bankcard, u.SystemInfo, u.SyncStatus,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert device %s: %w", u.DeviceID, err)
	}
	return created, nil
}

// UpdateEditable updates the dashboard-editable fields only.
func (r *PostgresDevicesRepo) UpdateEditable(ctx context.Context, deviceID string, name sql.NullString, isActive sql.NullBool, companyID sql.NullString) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			name       = COALESCE($2, name),
			is_active  = COALESCE($3, is_active),
			company_id = COALESCE($4::uuid, company_id),
			updated_at = NOW()
		WHERE device_id = $1`,
		deviceID, name, isActive, companyID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("device %s not found", deviceID)
	}
	return nil
}

// SetSyncStatus records the outcome of a sync pass for one device. The
// error message is truncated to 500 characters before it reaches the
// dashboard.
func (r *PostgresDevicesRepo) SetSyncStatus(ctx context.Context, deviceID, status, errMsg string) error {
	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}
	var msg sql.NullString
	if errMsg != "" {
		msg = sql.NullString{String: errMsg, Valid: true}
	}
	var lastSync any
	if status == domain.SyncStatusSynced {
		lastSync = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			sync_status        = $2,
			sync_error_message = $3,
			last_sync_at       = COALESCE($4, last_sync_at),
			updated_at         = NOW()
		WHERE device_id = $1`,
		deviceID, status, msg, lastSync)
	return err
}

// MarkEntitySynced stamps the per-entity sync time. entity is one of
// "messages", "notifications", "contacts".
func (r *PostgresDevicesRepo) MarkEntitySynced(ctx context.Context, deviceID, entity string, at time.Time) error {
	var column string
	switch entity {
	case "messages":
		column = "messages_last_synced_at"
	case "notifications":
		column = "notifications_last_synced_at"
	case "contacts":
		column = "contacts_last_synced_at"
	default:
		return fmt.Errorf("unknown sync entity %q", entity)
	}
	q := fmt.Sprintf(`UPDATE devices SET %s = $2, updated_at = NOW() WHERE device_id = $1`, column)
	_, err := r.db.ExecContext(ctx, q, deviceID, at)
	return err
}

// MarkHardSynced stamps the full-copy bookkeeping after a copier pass.
func (r *PostgresDevicesRepo) MarkHardSynced(ctx context.Context, deviceID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			sync_status        = 'synced',
			sync_error_message = NULL,
			last_sync_at       = $2,
			last_hard_sync_at  = $2,
			messages_last_synced_at      = $2,
			notifications_last_synced_at = $2,
			contacts_last_synced_at      = $2,
			updated_at         = NOW()
		WHERE device_id = $1`,
		deviceID, at)
	return err
}

// MarkStaleOutOfSync flips synced devices whose last_sync_at predates the
// cutoff to out_of_sync. Returns the number of updated rows.
func (r *PostgresDevicesRepo) MarkStaleOutOfSync(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET sync_status = 'out_of_sync', updated_at = NOW()
		WHERE is_active = TRUE AND sync_status = 'synced' AND last_sync_at < $1`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListOffline returns active devices not seen since the epoch-ms cutoff.
func (r *PostgresDevicesRepo) ListOffline(ctx context.Context, cutoffMS int64) ([]domain.Device, error) {
	return r.queryDevices(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE is_active = TRUE AND last_seen IS NOT NULL AND last_seen < $1`, cutoffMS)
}

// ListLowBattery returns active devices at or below the battery threshold.
func (r *PostgresDevicesRepo) ListLowBattery(ctx context.Context, threshold int) ([]domain.Device, error) {
	return r.queryDevices(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE is_active = TRUE AND battery_percentage IS NOT NULL AND battery_percentage <= $1`, threshold)
}

// ListSyncIssues returns active devices stuck in a failed or stale state.
func (r *PostgresDevicesRepo) ListSyncIssues(ctx context.Context) ([]domain.Device, error) {
	return r.queryDevices(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE is_active = TRUE AND sync_status IN ('sync_failed', 'out_of_sync')`)
}

func (r *PostgresDevicesRepo) queryDevices(ctx context.Context, q string, args ...any) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
