package repository

import (
	"context"
	"database/sql"

	"fastpay-backend/internal/domain"
)

type PostgresNotificationsRepo struct {
	db *sql.DB
}

func NewPostgresNotificationsRepo(db *sql.DB) *PostgresNotificationsRepo {
	return &PostgresNotificationsRepo{db: db}
}

// Upsert inserts or merges a notification on its (device_id, timestamp)
// natural key. Null fields keep the stored values (last-write-wins only on
// fields the new record actually carries). Returns true when a new row was
// created; xmax = 0 distinguishes insert from update.
func (r *PostgresNotificationsRepo) Upsert(ctx context.Context, n *domain.Notification) (created bool, err error) {
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (device_id, timestamp, package_name, title, text, extra)
		VALUES ($1, $2, $3, COALESCE($4, ''), COALESCE($5, ''), COALESCE($6::jsonb, '{}'::jsonb))
		ON CONFLICT (device_id, timestamp) DO UPDATE SET
			package_name = EXCLUDED.package_name,
			title        = COALESCE($4, notifications.title),
			text         = COALESCE($5, notifications.text),
			extra        = COALESCE($6::jsonb, notifications.extra),
			updated_at   = NOW()
		RETURNING (xmax = 0)`,
		n.DeviceID, n.Timestamp, n.PackageName, n.Title, n.Text, n.Extra,
	).Scan(&created)
	return created, err
}

// ListByDevice returns a device's notifications newest first.
func (r *PostgresNotificationsRepo) ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Notification, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE device_id = $1`, deviceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, device_id, timestamp, package_name, title, text, extra::text, created_at, updated_at
		FROM notifications WHERE device_id = $1
		ORDER BY timestamp DESC LIMIT $2 OFFSET $3`,
		deviceID, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.DeviceID, &n.Timestamp, &n.PackageName,
			&n.Title, &n.Text, &n.Extra, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}
