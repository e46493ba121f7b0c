package repo

import (
	"context"
	"database/sql"

	"pariharam/internal/domain"
)

func (r Repo) UpsertIdentity(ctx context.Context, id domain.Identity) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO identities(id,role,full_name,email,created_at) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET role=excluded.role, full_name=excluded.full_name, email=excluded.email`,
		id.ID, id.Role, nullable(id.FullName), nullable(id.Email), id.CreatedAt)
	return err
}

func (r Repo) GetIdentity(ctx context.Context, id string) (domain.Identity, error) {
	var ident domain.Identity
	var fullName, email sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,role,full_name,email,created_at FROM identities WHERE id=?`, id).
		Scan(&ident.ID, &ident.Role, &fullName, &email, &ident.CreatedAt)
	if err == sql.ErrNoRows {
		return ident, ErrNotFound
	}
	if err != nil {
		return ident, err
	}
	if fullName.Valid {
		ident.FullName = fullName.String
	}
	if email.Valid {
		ident.Email = email.String
	}
	return ident, nil
}

// HasRole reports whether the identity exists in the roster with the role.
func (r Repo) HasRole(ctx context.Context, id string, role domain.Role) (bool, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT 1 FROM identities WHERE id=? AND role=? LIMIT 1`, id, role)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// ListByRole returns roster entries with the given role in registration
// order. The workflow engine uses role=specialist for assignment candidates.
func (r Repo) ListByRole(ctx context.Context, role domain.Role) ([]domain.Identity, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,role,full_name,email,created_at FROM identities WHERE role=? ORDER BY created_at ASC, id ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Identity
	for rows.Next() {
		var ident domain.Identity
		var fullName, email sql.NullString
		if err := rows.Scan(&ident.ID, &ident.Role, &fullName, &email, &ident.CreatedAt); err != nil {
			return nil, err
		}
		if fullName.Valid {
			ident.FullName = fullName.String
		}
		if email.Valid {
			ident.Email = email.String
		}
		res = append(res, ident)
	}
	return res, rows.Err()
}
