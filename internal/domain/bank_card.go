package domain

import (
	"database/sql"
	"time"
)

// BankCard is a card record reported by a device.
type BankCard struct {
	ID         string         `db:"id"`
	DeviceID   string         `db:"device_id"`
	CardNumber string         `db:"card_number"`
	HolderName sql.NullString `db:"holder_name"`
	ExpiryDate sql.NullString `db:"expiry_date"`
	BankName   sql.NullString `db:"bank_name"`
	CardType   sql.NullString `db:"card_type"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (b *BankCard) ToJSON() map[string]any {
	m := map[string]any{
		"id":          b.ID,
		"device_id":   b.DeviceID,
		"card_number": b.CardNumber,
		"created_at":  b.CreatedAt,
		"updated_at":  b.UpdatedAt,
	}
	if b.HolderName.Valid {
		m["holder_name"] = b.HolderName.String
	}
	if b.ExpiryDate.Valid {
		m["expiry_date"] = b.ExpiryDate.String
	}
	if b.BankName.Valid {
		m["bank_name"] = b.BankName.String
	}
	if b.CardType.Valid {
		m["card_type"] = b.CardType.String
	}
	return m
}
