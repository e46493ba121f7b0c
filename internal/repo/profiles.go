package repo

import (
	"context"
	"database/sql"

	"pariharam/internal/domain"
)

func (r Repo) InsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO profiles(id,requester_id,name,dob,tob,pob,lat,lon,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.RequesterID, p.Name, p.DOB, p.TOB, nullable(p.POB), p.Lat, p.Lon, p.CreatedAt)
	return err
}

func (r Repo) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	var p domain.Profile
	var pob sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,requester_id,name,dob,tob,pob,lat,lon,created_at FROM profiles WHERE id=?`, id).
		Scan(&p.ID, &p.RequesterID, &p.Name, &p.DOB, &p.TOB, &pob, &p.Lat, &p.Lon, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if pob.Valid {
		p.POB = pob.String
	}
	return p, nil
}

func (r Repo) ListProfiles(ctx context.Context, requesterID string) ([]domain.Profile, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,requester_id,name,dob,tob,pob,lat,lon,created_at FROM profiles WHERE requester_id=? ORDER BY created_at DESC, id DESC`, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Profile
	for rows.Next() {
		var p domain.Profile
		var pob sql.NullString
		if err := rows.Scan(&p.ID, &p.RequesterID, &p.Name, &p.DOB, &p.TOB, &pob, &p.Lat, &p.Lon, &p.CreatedAt); err != nil {
			return nil, err
		}
		if pob.Valid {
			p.POB = pob.String
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// DeleteProfile removes a profile owned by the requester. Consultations keep
// their profile_ref; the reference simply resolves to ErrNotFound afterwards.
func (r Repo) DeleteProfile(ctx context.Context, requesterID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM profiles WHERE id=? AND requester_id=?`, id, requesterID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
