package domain

import "time"

// Company is a white-label brand (FASTPAY, REDPAY, ...). Devices belong to
// zero-or-one company; dashboard users see the devices of their company.
type Company struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"` // e.g. "FASTPAY"
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

func (c *Company) ToJSON() map[string]any {
	return map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"code":       c.Code,
		"is_active":  c.IsActive,
		"created_at": c.CreatedAt,
	}
}
