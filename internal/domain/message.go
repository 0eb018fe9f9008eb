package domain

import "time"

// Message types. Unrecognized source values are normalized to "received".
const (
	MessageReceived = "received"
	MessageSent     = "sent"
)

// Message is an SMS record synced from Firebase. Natural key is
// (device_id, timestamp); rows are immutable once created, re-syncs skip
// existing timestamps.
type Message struct {
	ID          string    `db:"id"`
	DeviceID    string    `db:"device_id"`
	Timestamp   int64     `db:"timestamp"` // epoch-ms, Firebase node key
	MessageType string    `db:"message_type"`
	Phone       string    `db:"phone"`
	Body        string    `db:"body"`
	Read        bool      `db:"read"`
	CreatedAt   time.Time `db:"created_at"`
}

func (m *Message) ToJSON() map[string]any {
	return map[string]any{
		"device_id":    m.DeviceID,
		"timestamp":    m.Timestamp,
		"message_type": m.MessageType,
		"phone":        m.Phone,
		"body":         m.Body,
		"read":         m.Read,
		"created_at":   m.CreatedAt,
	}
}
