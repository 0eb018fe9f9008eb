package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fastpay-backend/internal/domain"
)

type PostgresCompaniesRepo struct {
	db *sql.DB
}

func NewPostgresCompaniesRepo(db *sql.DB) *PostgresCompaniesRepo {
	return &PostgresCompaniesRepo{db: db}
}

func (r *PostgresCompaniesRepo) List(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, name, code, is_active, created_at
		FROM companies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCompaniesRepo) GetByCode(ctx context.Context, code string) (*domain.Company, error) {
	var c domain.Company
	err := r.db.QueryRowContext(ctx, `
		SELECT id::text, name, code, is_active, created_at
		FROM companies WHERE code = $1`, code).
		Scan(&c.ID, &c.Name, &c.Code, &c.IsActive, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company %s not found", code)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
