package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fastpay-backend/internal/domain"
)

type PostgresDashUsersRepo struct {
	db *sql.DB
}

func NewPostgresDashUsersRepo(db *sql.DB) *PostgresDashUsersRepo {
	return &PostgresDashUsersRepo{db: db}
}

func (r *PostgresDashUsersRepo) GetByUsername(ctx context.Context, username string) (*domain.DashUser, error) {
	var u domain.DashUser
	err := r.db.QueryRowContext(ctx, `
		SELECT id::text, username, password_hash, role,
			CASE WHEN company_id IS NULL THEN NULL ELSE company_id::text END,
			is_active, created_at
		FROM dash_users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CompanyID,
			&u.IsActive, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s not found", username)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
