package domain

import (
	"database/sql"
	"time"
)

// Contact is an address-book entry synced from Firebase. Natural key is
// (device_id, phone_number). Upsertable with merge semantics.
type Contact struct {
	ID           string         `db:"id"`
	DeviceID     string         `db:"device_id"`
	PhoneNumber  string         `db:"phone_number"`
	ContactID    sql.NullString `db:"contact_id"`
	Name         sql.NullString `db:"name"`
	DisplayName  sql.NullString `db:"display_name"`
	Phones       sql.NullString `db:"phones"`      // JSON array
	Emails       sql.NullString `db:"emails"`      // JSON array
	Addresses    sql.NullString `db:"addresses"`   // JSON array
	Websites     sql.NullString `db:"websites"`    // JSON array
	IMAccounts   sql.NullString `db:"im_accounts"` // JSON array
	PhotoURI     sql.NullString `db:"photo_uri"`
	ThumbnailURI sql.NullString `db:"thumbnail_uri"`
	Company      sql.NullString `db:"company"`
	JobTitle     sql.NullString `db:"job_title"`
	Department   sql.NullString `db:"department"`
	Birthday     sql.NullString `db:"birthday"`
	Anniversary  sql.NullString `db:"anniversary"`
	Notes        sql.NullString `db:"notes"`
	Nickname     sql.NullString `db:"nickname"`
	PhoneticName sql.NullString `db:"phonetic_name"`
	LastContacted  sql.NullInt64 `db:"last_contacted"` // epoch-ms
	TimesContacted sql.NullInt64 `db:"times_contacted"`
	IsStarred      sql.NullBool  `db:"is_starred"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

func (c *Contact) ToJSON() map[string]any {
	m := map[string]any{
		"device_id":    c.DeviceID,
		"phone_number": c.PhoneNumber,
		"created_at":   c.CreatedAt,
		"updated_at":   c.UpdatedAt,
	}
	addString := func(key string, v sql.NullString) {
		if v.Valid {
			m[key] = v.String
		}
	}
	addString("contact_id", c.ContactID)
	addString("name", c.Name)
	addString("display_name", c.DisplayName)
	addString("phones", c.Phones)
	addString("emails", c.Emails)
	addString("addresses", c.Addresses)
	addString("websites", c.Websites)
	addString("im_accounts", c.IMAccounts)
	addString("photo_uri", c.PhotoURI)
	addString("thumbnail_uri", c.ThumbnailURI)
	addString("company", c.Company)
	addString("job_title", c.JobTitle)
	addString("department", c.Department)
	addString("birthday", c.Birthday)
	addString("anniversary", c.Anniversary)
	addString("notes", c.Notes)
	addString("nickname", c.Nickname)
	addString("phonetic_name", c.PhoneticName)
	if c.LastContacted.Valid {
		m["last_contacted"] = c.LastContacted.Int64
	}
	if c.TimesContacted.Valid {
		m["times_contacted"] = c.TimesContacted.Int64
	}
	if c.IsStarred.Valid {
		m["is_starred"] = c.IsStarred.Bool
	}
	return m
}
