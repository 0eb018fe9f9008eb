package repository

import (
	"context"
	"database/sql"

	"fastpay-backend/internal/domain"
)

type PostgresMessagesRepo struct {
	db *sql.DB
}

func NewPostgresMessagesRepo(db *sql.DB) *PostgresMessagesRepo {
	return &PostgresMessagesRepo{db: db}
}

// CreateIfAbsent inserts the message unless its (device_id, timestamp)
// natural key already exists. Messages are immutable: re-syncs skip
// existing timestamps rather than overwriting.
func (r *PostgresMessagesRepo) CreateIfAbsent(ctx context.Context, m *domain.Message) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (device_id, timestamp, message_type, phone, body, read)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id, timestamp) DO NOTHING`,
		m.DeviceID, m.Timestamp, m.MessageType, m.Phone, m.Body, m.Read)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByDevice returns a device's messages newest first.
func (r *PostgresMessagesRepo) ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Message, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE device_id = $1`, deviceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, device_id, timestamp, message_type, phone, body, read, created_at
		FROM messages WHERE device_id = $1
		ORDER BY timestamp DESC LIMIT $2 OFFSET $3`,
		deviceID, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.DeviceID, &m.Timestamp, &m.MessageType,
			&m.Phone, &m.Body, &m.Read, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
