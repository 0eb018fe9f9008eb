package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fastpay-backend/internal/domain"

	"github.com/google/uuid"
)

type PostgresBankCardsRepo struct {
	db *sql.DB
}

func NewPostgresBankCardsRepo(db *sql.DB) *PostgresBankCardsRepo {
	return &PostgresBankCardsRepo{db: db}
}

func (r *PostgresBankCardsRepo) Create(ctx context.Context, b *domain.BankCard) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bank_cards (id, device_id, card_number, holder_name, expiry_date, bank_name, card_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.DeviceID, b.CardNumber, b.HolderName, b.ExpiryDate, b.BankName, b.CardType)
	return err
}

func (r *PostgresBankCardsRepo) Update(ctx context.Context, b *domain.BankCard) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bank_cards SET
			holder_name = COALESCE($2, holder_name),
			expiry_date = COALESCE($3, expiry_date),
			bank_name   = COALESCE($4, bank_name),
			card_type   = COALESCE($5, card_type),
			updated_at  = NOW()
		WHERE id = $1`,
		b.ID, b.HolderName, b.ExpiryDate, b.BankName, b.CardType)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bank card %s not found", b.ID)
	}
	return nil
}

func (r *PostgresBankCardsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank_cards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bank card %s not found", id)
	}
	return nil
}

func (r *PostgresBankCardsRepo) ListByDevice(ctx context.Context, deviceID string) ([]domain.BankCard, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, device_id, card_number, holder_name, expiry_date,
			bank_name, card_type, created_at, updated_at
		FROM bank_cards WHERE device_id = $1 ORDER BY created_at DESC`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BankCard
	for rows.Next() {
		var b domain.BankCard
		if err := rows.Scan(&b.ID, &b.DeviceID, &b.CardNumber, &b.HolderName,
			&b.ExpiryDate, &b.BankName, &b.CardType, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
