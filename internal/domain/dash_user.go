package domain

import (
	"database/sql"
	"time"
)

// Dashboard roles.
const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
	RoleUser  = "user"
)

// DashUser is a dashboard login. Visibility is company-based: admins see
// every device, other roles only their company's devices.
type DashUser struct {
	ID           string         `db:"id"`
	Username     string         `db:"username"`
	PasswordHash string         `db:"password_hash"` // sha256 hex
	Role         string         `db:"role"`
	CompanyID    sql.NullString `db:"company_id"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (u *DashUser) ToJSON() map[string]any {
	m := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"role":       u.Role,
		"is_active":  u.IsActive,
		"created_at": u.CreatedAt,
	}
	if u.CompanyID.Valid {
		m["company_id"] = u.CompanyID.String
	}
	return m
}
