package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pariharam/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const consultationColumns = `id,requester_id,profile_ref,focus_tags_json,narrative,state,assignee_id,draft_report,final_report,created_at,updated_at`

func scanConsultation(scan func(dest ...any) error) (domain.Consultation, error) {
	var c domain.Consultation
	var profileRef, narrative, assigneeID, draft, final sql.NullString
	var tagsJSON string
	err := scan(&c.ID, &c.RequesterID, &profileRef, &tagsJSON, &narrative, &c.State, &assigneeID, &draft, &final, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &c.FocusTags); err != nil {
		return c, fmt.Errorf("decode focus tags: %w", err)
	}
	if profileRef.Valid {
		c.ProfileRef = &profileRef.String
	}
	if narrative.Valid {
		c.Narrative = narrative.String
	}
	if assigneeID.Valid {
		c.AssigneeID = &assigneeID.String
	}
	if draft.Valid {
		c.DraftReport = &draft.String
	}
	if final.Valid {
		c.FinalReport = &final.String
	}
	return c, nil
}

func (r Repo) InsertConsultation(ctx context.Context, tx *sql.Tx, c domain.Consultation) error {
	tags, err := json.Marshal(c.FocusTags)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO consultations(`+consultationColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.RequesterID, nullableStringPtr(c.ProfileRef), string(tags), nullable(c.Narrative),
		c.State, nullableStringPtr(c.AssigneeID), nullableStringPtr(c.DraftReport), nullableStringPtr(c.FinalReport),
		c.CreatedAt, c.UpdatedAt)
	return err
}

// GetConsultation fetches by id with no visibility check. It exists for the
// workflow engine, which re-checks authorization itself; external callers go
// through GetConsultationFor.
func (r Repo) GetConsultation(ctx context.Context, id string) (domain.Consultation, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+consultationColumns+` FROM consultations WHERE id=?`, id)
	return scanConsultation(row.Scan)
}

// visibilityClause returns the WHERE fragment implementing the single
// visibility gate: requesters see their own rows, specialists see rows they
// hold or ever held, supervisors see everything.
func visibilityClause(callerID string, role domain.Role) (string, []any) {
	switch role {
	case domain.RoleRequester:
		return "requester_id=?", []any{callerID}
	case domain.RoleSpecialist:
		return `(assignee_id=? OR EXISTS (
			SELECT 1 FROM assignments a
			WHERE a.consultation_id=consultations.id AND a.specialist_id=?
		))`, []any{callerID, callerID}
	case domain.RoleSupervisor:
		return "1=1", nil
	}
	// Unknown role sees nothing.
	return "1=0", nil
}

// ListConsultationsFor returns the rows visible to the caller, newest first.
func (r Repo) ListConsultationsFor(ctx context.Context, callerID string, role domain.Role) ([]domain.Consultation, error) {
	clause, args := visibilityClause(callerID, role)
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE ` + clause + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// GetConsultationFor fetches by id through the visibility gate. A row the
// caller cannot see is indistinguishable from a row that does not exist.
func (r Repo) GetConsultationFor(ctx context.Context, callerID string, role domain.Role, id string) (domain.Consultation, error) {
	clause, args := visibilityClause(callerID, role)
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id=? AND ` + clause
	row := r.DB.QueryRowContext(ctx, query, append([]any{id}, args...)...)
	return scanConsultation(row.Scan)
}

// UpdateConsultationGuarded applies the full mutable field set with a
// WHERE clause reproducing the expected prior (state, assignee_id) pair.
// It returns the number of rows changed: zero means the row moved under the
// caller and the transition must not be applied.
func (r Repo) UpdateConsultationGuarded(ctx context.Context, tx *sql.Tx, c domain.Consultation, expectedState domain.State, expectedAssignee *string) (int64, error) {
	query := `UPDATE consultations SET state=?, assignee_id=?, draft_report=?, final_report=?, updated_at=? WHERE id=? AND state=?`
	args := []any{c.State, nullableStringPtr(c.AssigneeID), nullableStringPtr(c.DraftReport), nullableStringPtr(c.FinalReport), c.UpdatedAt, c.ID, expectedState}
	if expectedAssignee == nil {
		query += ` AND assignee_id IS NULL`
	} else {
		query += ` AND assignee_id=?`
		args = append(args, *expectedAssignee)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// OpenAssignment starts a specialist's tenure on a consultation.
func (r Repo) OpenAssignment(ctx context.Context, tx *sql.Tx, consultationID, specialistID, now string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO assignments(consultation_id,specialist_id,assigned_at) VALUES (?,?,?)`,
		consultationID, specialistID, now)
	return err
}

// CloseAssignment ends the open tenure, if any. The history row remains for
// visibility.
func (r Repo) CloseAssignment(ctx context.Context, tx *sql.Tx, consultationID, now string) error {
	_, err := tx.ExecContext(ctx, `UPDATE assignments SET released_at=? WHERE consultation_id=? AND released_at IS NULL`,
		now, consultationID)
	return err
}

func (r Repo) ListAssignments(ctx context.Context, consultationID string) ([]domain.Assignment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT consultation_id,specialist_id,assigned_at,released_at FROM assignments WHERE consultation_id=? ORDER BY assigned_at ASC`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		var released sql.NullString
		if err := rows.Scan(&a.ConsultationID, &a.SpecialistID, &a.AssignedAt, &released); err != nil {
			return nil, err
		}
		if released.Valid {
			a.ReleasedAt = &released.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ListEvents returns the audit trail for a consultation, oldest first.
func (r Repo) ListEvents(ctx context.Context, consultationID string) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,consultation_id,actor_id,payload_json FROM events WHERE consultation_id=? ORDER BY id ASC`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var cid sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &cid, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		if cid.Valid {
			e.ConsultationID = cid.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
