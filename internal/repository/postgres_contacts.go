package repository

import (
	"context"
	"database/sql"

	"fastpay-backend/internal/domain"
)

type PostgresContactsRepo struct {
	db *sql.DB
}

func NewPostgresContactsRepo(db *sql.DB) *PostgresContactsRepo {
	return &PostgresContactsRepo{db: db}
}

// Upsert inserts or merges a contact on its (device_id, phone_number)
// natural key. Null fields keep the stored values.
func (r *PostgresContactsRepo) Upsert(ctx context.Context, c *domain.Contact) (created bool, err error) {
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO contacts (
			device_id, phone_number, contact_id, name, display_name,
			phones, emails, addresses, websites, im_accounts,
			photo_uri, thumbnail_uri, company, job_title, department,
			birthday, anniversary, notes, nickname, phonetic_name,
			last_contacted, times_contacted, is_starred
		) VALUES (
			$1, $2, COALESCE($3, $2), COALESCE($4, ''), COALESCE($5, ''),
			COALESCE($6::jsonb, '[]'::jsonb), COALESCE($7::jsonb, '[]'::jsonb),
			COALESCE($8::jsonb, '[]'::jsonb), COALESCE($9::jsonb, '[]'::jsonb),
			COALESCE($10::jsonb, '[]'::jsonb),
			$11, $12, COALESCE($13, ''), COALESCE($14, ''), COALESCE($15, ''),
			COALESCE($16, ''), COALESCE($17, ''), COALESCE($18, ''),
			COALESCE($19, ''), COALESCE($20, ''),
			$21, COALESCE($22, 0), COALESCE($23, FALSE)
		)
		ON CONFLICT (device_id, phone_number) DO UPDATE SET
			contact_id      = COALESCE($3, contacts.contact_id),
			name            = COALESCE($4, contacts.name),
			display_name    = COALESCE($5, contacts.display_name),
			phones          = COALESCE($6::jsonb, contacts.phones),
			emails          = COALESCE($7::jsonb, contacts.emails),
			addresses       = COALESCE($8::jsonb, contacts.addresses),
			websites        = COALESCE($9::jsonb, contacts.websites),
			im_accounts     = COALESCE($10::jsonb, contacts.im_accounts),
			photo_uri       = COALESCE($11, contacts.photo_uri),
			thumbnail_uri   = COALESCE($12, contacts.thumbnail_uri),
			company         = COALESCE($13, contacts.company),
			job_title       = COALESCE($14, contacts.job_title),
			department      = COALESCE($15, contacts.department),
			birthday        = COALESCE($16, contacts.birthday),
			anniversary     = COALESCE($17, contacts.anniversary),
			notes           = COALESCE($18, contacts.notes),
			nickname        = COALESCE($19, contacts.nickname),
			phonetic_name   = COALESCE($20, contacts.phonetic_name),
			last_contacted  = COALESCE($21, contacts.last_contacted),
			times_contacted = COALESCE($22, contacts.times_contacted),
			is_starred      = COALESCE($23, contacts.is_starred),
			updated_at      = NOW()
		RETURNING (xmax = 0)`,
		c.DeviceID, c.PhoneNumber, c.ContactID, c.Name, c.DisplayName,
		c.Phones, c.Emails, c.Addresses, c.Websites, c.IMAccounts,
		c.PhotoURI, c.ThumbnailURI, c.Company, c.JobTitle, c.Department,
		c.Birthday, c.Anniversary, c.Notes, c.Nickname, c.PhoneticName,
		c.LastContacted, c.TimesContacted, c.IsStarred,
	).Scan(&created)
	return created, err
}

// ListByDevice returns a device's contacts ordered by name.
func (r *PostgresContactsRepo) ListByDevice(ctx context.Context, deviceID string, page, size int) ([]domain.Contact, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE device_id = $1`, deviceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id::text, device_id, phone_number, contact_id, name, display_name,
			phones::text, emails::text, addresses::text, websites::text, im_accounts::text,
			photo_uri, thumbnail_uri, company, job_title, department,
			birthday, anniversary, notes, nickname, phonetic_name,
			last_contacted, times_contacted, is_starred, created_at, updated_at
		FROM contacts WHERE device_id = $1
		ORDER BY name, phone_number LIMIT $2 OFFSET $3`,
		deviceID, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.PhoneNumber, &c.ContactID,
			&c.Name, &c.DisplayName, &c.Phones, &c.Emails, &c.Addresses,
			&c.Websites, &c.IMAccounts, &c.PhotoURI, &c.ThumbnailURI,
			&c.Company, &c.JobTitle, &c.Department, &c.Birthday,
			&c.Anniversary, &c.Notes, &c.Nickname, &c.PhoneticName,
			&c.LastContacted, &c.TimesContacted, &c.IsStarred,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
