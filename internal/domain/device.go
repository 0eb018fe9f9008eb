package domain

import (
	"database/sql"
	"time"
)

// Sync status values for Device.SyncStatus.
const (
	SyncStatusNeverSynced = "never_synced"
	SyncStatusSyncing     = "syncing"
	SyncStatusSynced      = "synced"
	SyncStatusOutOfSync   = "out_of_sync"
	SyncStatusFailed      = "sync_failed"
)

// Device is a mobile endpoint identified by an externally-assigned device_id.
// It is the unit of partitioning for all synced data. Devices are created on
// first registration or first sync discovery and never hard-deleted by the
// sync pipeline.
type Device struct {
	ID                string         `db:"id"`
	DeviceID          string         `db:"device_id"` // unique
	Name              sql.NullString `db:"name"`
	Model             sql.NullString `db:"model"`
	Phone             sql.NullString `db:"phone"`
	CurrentPhone      sql.NullString `db:"current_phone"`
	CurrentIdentifier sql.NullString `db:"current_identifier"`
	Code              sql.NullString `db:"code"`
	IsActive          bool           `db:"is_active"`
	LastSeen          sql.NullInt64  `db:"last_seen"` // epoch-ms
	BatteryPercentage sql.NullInt64  `db:"battery_percentage"`
	Bankcard          sql.NullString `db:"bankcard"`
	SystemInfo        sql.NullString `db:"system_info"` // JSONB
	CompanyID         sql.NullString `db:"company_id"`

	SyncStatus               string         `db:"sync_status"`
	SyncErrorMessage         sql.NullString `db:"sync_error_message"`
	LastSyncAt               sql.NullTime   `db:"last_sync_at"`
	LastHardSyncAt           sql.NullTime   `db:"last_hard_sync_at"`
	MessagesLastSyncedAt     sql.NullTime   `db:"messages_last_synced_at"`
	NotificationsLastSyncedAt sql.NullTime  `db:"notifications_last_synced_at"`
	ContactsLastSyncedAt     sql.NullTime   `db:"contacts_last_synced_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToJSON converts the device to the dashboard API representation.
func (d *Device) ToJSON() map[string]any {
	m := map[string]any{
		"device_id":   d.DeviceID,
		"is_active":   d.IsActive,
		"sync_status": d.SyncStatus,
		"created_at":  d.CreatedAt,
		"updated_at":  d.UpdatedAt,
	}
	if d.Name.Valid {
		m["name"] = d.Name.String
	}
	if d.Model.Valid {
		m["model"] = d.Model.String
	}
	if d.Phone.Valid {
		m["phone"] = d.Phone.String
	}
	if d.CurrentPhone.Valid {
		m["current_phone"] = d.CurrentPhone.String
	}
	if d.CurrentIdentifier.Valid {
		m["current_identifier"] = d.CurrentIdentifier.String
	}
	if d.Code.Valid {
		m["code"] = d.Code.String
	}
	if d.LastSeen.Valid {
		m["last_seen"] = d.LastSeen.Int64
	}
	if d.BatteryPercentage.Valid {
		m["battery_percentage"] = d.BatteryPercentage.Int64
	}
	if d.Bankcard.Valid {
		m["bankcard"] = d.Bankcard.String
	}
	if d.CompanyID.Valid {
		m["company_id"] = d.CompanyID.String
	}
	if d.SyncErrorMessage.Valid {
		m["sync_error_message"] = d.SyncErrorMessage.String
	}
	if d.LastSyncAt.Valid {
		m["last_sync_at"] = d.LastSyncAt.Time
	}
	return m
}

// DeviceUpdate carries the mergeable fields of a device upsert. Invalid
// (null) fields leave the stored value untouched.
type DeviceUpdate struct {
	DeviceID          string
	Name              sql.NullString
	Model             sql.NullString
	Phone             sql.NullString
	CurrentPhone      sql.NullString
	CurrentIdentifier sql.NullString
	Code              sql.NullString
	IsActive          sql.NullBool
	LastSeen          sql.NullInt64
	BatteryPercentage sql.NullInt64
	Bankcard          sql.NullString
	SystemInfo        sql.NullString // JSON, merged into the stored object
	SyncStatus        sql.NullString
}
