package repository

import (
	"context"
	"database/sql"
	"time"

	"fastpay-backend/internal/domain"

	"github.com/google/uuid"
)

type PostgresSyncLogsRepo struct {
	db *sql.DB
}

func NewPostgresSyncLogsRepo(db *sql.DB) *PostgresSyncLogsRepo {
	return &PostgresSyncLogsRepo{db: db}
}

// Insert appends one audit row per sync pass. Rows are never updated.
func (r *PostgresSyncLogsRepo) Insert(ctx context.Context, l *domain.SyncLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_logs (
			id, sync_type, status, total_devices, devices_synced, devices_failed,
			messages_created, notifications_created, contacts_created,
			error_details, started_at, finished_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13)`,
		l.ID, l.SyncType, l.Status, l.TotalDevices, l.DevicesSynced,
		l.DevicesFailed, l.MessagesCreated, l.NotificationsCreated,
		l.ContactsCreated, l.ErrorDetails, l.StartedAt, l.FinishedAt, l.DurationMS)
	return err
}

// List returns the most recent sync logs.
func (r *PostgresSyncLogsRepo) List(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, sync_type, status, total_devices, devices_synced,
			devices_failed, messages_created, notifications_created,
			contacts_created, error_details::text, started_at, finished_at, duration_ms
		FROM sync_logs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SyncLog
	for rows.Next() {
		var l domain.SyncLog
		if err := rows.Scan(&l.ID, &l.SyncType, &l.Status, &l.TotalDevices,
			&l.DevicesSynced, &l.DevicesFailed, &l.MessagesCreated,
			&l.NotificationsCreated, &l.ContactsCreated, &l.ErrorDetails,
			&l.StartedAt, &l.FinishedAt, &l.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteOlderThan drops logs whose pass started before the cutoff.
func (r *PostgresSyncLogsRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_logs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
