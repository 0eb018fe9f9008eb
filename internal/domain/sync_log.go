package domain

import (
	"database/sql"
	"time"
)

// Sync log statuses.
const (
	SyncLogRunning = "running"
	SyncLogSuccess = "success"
	SyncLogPartial = "partial"
	SyncLogFailed  = "failed"
)

// SyncLog is an append-only audit record of one sync pass: written once
// when the pass finishes, read only for observability.
type SyncLog struct {
	ID                   string         `db:"id"`
	SyncType             string         `db:"sync_type"` // "full", "copy", "device"
	Status               string         `db:"status"`
	TotalDevices         int            `db:"total_devices"`
	DevicesSynced        int            `db:"devices_synced"`
	DevicesFailed        int            `db:"devices_failed"`
	MessagesCreated      int            `db:"messages_created"`
	NotificationsCreated int            `db:"notifications_created"`
	ContactsCreated      int            `db:"contacts_created"`
	ErrorDetails         sql.NullString `db:"error_details"` // JSON array of strings
	StartedAt            time.Time      `db:"started_at"`
	FinishedAt           time.Time      `db:"finished_at"`
	DurationMS           int64          `db:"duration_ms"`
}

func (l *SyncLog) ToJSON() map[string]any {
	m := map[string]any{
		"id":                    l.ID,
		"sync_type":             l.SyncType,
		"status":                l.Status,
		"total_devices":         l.TotalDevices,
		"devices_synced":        l.DevicesSynced,
		"devices_failed":        l.DevicesFailed,
		"messages_created":      l.MessagesCreated,
		"notifications_created": l.NotificationsCreated,
		"contacts_created":      l.ContactsCreated,
		"started_at":            l.StartedAt,
		"finished_at":           l.FinishedAt,
		"duration_ms":           l.DurationMS,
	}
	if l.ErrorDetails.Valid {
		m["error_details"] = l.ErrorDetails.String
	}
	return m
}
