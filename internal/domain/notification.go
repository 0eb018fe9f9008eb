package domain

import (
	"database/sql"
	"time"
)

// Notification is an app notification synced from Firebase. Natural key is
// (device_id, timestamp). Unlike messages, notifications are upsertable:
// later syncs update the fields present in the new record while absent
// fields keep their prior values.
type Notification struct {
	ID          string         `db:"id"`
	DeviceID    string         `db:"device_id"`
	Timestamp   int64          `db:"timestamp"` // epoch-ms
	PackageName string         `db:"package_name"`
	Title       sql.NullString `db:"title"`
	Text        sql.NullString `db:"text"`
	Extra       sql.NullString `db:"extra"` // JSON of additional source fields
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (n *Notification) ToJSON() map[string]any {
	m := map[string]any{
		"device_id":    n.DeviceID,
		"timestamp":    n.Timestamp,
		"package_name": n.PackageName,
		"created_at":   n.CreatedAt,
		"updated_at":   n.UpdatedAt,
	}
	if n.Title.Valid {
		m["title"] = n.Title.String
	}
	if n.Text.Valid {
		m["text"] = n.Text.String
	}
	if n.Extra.Valid {
		m["extra"] = n.Extra.String
	}
	return m
}
