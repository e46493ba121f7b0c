package repo_test

import (
	"context"
	"errors"
	"testing"

	"pariharam/internal/db"
	"pariharam/internal/domain"
	"pariharam/internal/migrate"
	"pariharam/internal/repo"
)

func newTestRepo(t *testing.T) (repo.Repo, context.Context) {
	t.Helper()
	dir := t.TempDir()
	if _, err := db.EnsureWorkspace(dir); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}, context.Background()
}

func insertConsultation(t *testing.T, r repo.Repo, ctx context.Context, c domain.Consultation) {
	t.Helper()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	if err := r.InsertConsultation(ctx, tx, c); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func baseConsultation(id, requester string) domain.Consultation {
	return domain.Consultation{
		ID:          id,
		RequesterID: requester,
		FocusTags:   []string{"career"},
		State:       domain.StateSubmitted,
		CreatedAt:   "2026-01-01T00:00:00Z",
		UpdatedAt:   "2026-01-01T00:00:00Z",
	}
}

func TestGuardedUpdate(t *testing.T) {
	r, ctx := newTestRepo(t)
	c := baseConsultation("c-1", "req-1")
	insertConsultation(t, r, ctx, c)

	spec := "spec-1"
	updated := c
	updated.State = domain.StateInReview
	updated.AssigneeID = &spec

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	n, err := r.UpdateConsultationGuarded(ctx, tx, updated, domain.StateSubmitted, nil)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 row, got %d (%v)", n, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Same guard again: the row moved, so zero rows match.
	tx, err = r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	n, err = r.UpdateConsultationGuarded(ctx, tx, updated, domain.StateSubmitted, nil)
	if err != nil {
		t.Fatalf("guarded update: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected stale guard to match 0 rows, got %d", n)
	}
	// Wrong expected assignee also matches nothing.
	other := "spec-2"
	n, err = r.UpdateConsultationGuarded(ctx, tx, updated, domain.StateInReview, &other)
	if err != nil {
		t.Fatalf("guarded update: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected assignee guard to match 0 rows, got %d", n)
	}
}

func TestVisibilityGate(t *testing.T) {
	r, ctx := newTestRepo(t)
	spec := "spec-1"
	held := baseConsultation("c-1", "req-1")
	held.State = domain.StateInReview
	held.AssigneeID = &spec
	insertConsultation(t, r, ctx, held)
	insertConsultation(t, r, ctx, baseConsultation("c-2", "req-2"))

	// A missing row and an invisible row return the same error.
	_, err := r.GetConsultationFor(ctx, "req-1", domain.RoleRequester, "c-2")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign row, got %v", err)
	}
	_, err = r.GetConsultationFor(ctx, "req-1", domain.RoleRequester, "c-unknown")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}

	got, err := r.GetConsultationFor(ctx, "spec-1", domain.RoleSpecialist, "c-1")
	if err != nil || got.ID != "c-1" {
		t.Fatalf("specialist should see held row: %v", err)
	}
	list, err := r.ListConsultationsFor(ctx, "sup-1", domain.RoleSupervisor)
	if err != nil || len(list) != 2 {
		t.Fatalf("supervisor should see all rows: %d (%v)", len(list), err)
	}
	list, err = r.ListConsultationsFor(ctx, "anyone", domain.Role("intruder"))
	if err != nil || len(list) != 0 {
		t.Fatalf("unknown role should see nothing: %d (%v)", len(list), err)
	}
}

func TestSpecialistHistoricalVisibility(t *testing.T) {
	r, ctx := newTestRepo(t)
	c := baseConsultation("c-1", "req-1")
	insertConsultation(t, r, ctx, c)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := r.OpenAssignment(ctx, tx, "c-1", "spec-1", "2026-01-02T00:00:00Z"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.CloseAssignment(ctx, tx, "c-1", "2026-01-03T00:00:00Z"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// The assignee slot is empty, but the closed tenure keeps the row visible.
	if _, err := r.GetConsultationFor(ctx, "spec-1", domain.RoleSpecialist, "c-1"); err != nil {
		t.Fatalf("expected historical visibility: %v", err)
	}
	if _, err := r.GetConsultationFor(ctx, "spec-2", domain.RoleSpecialist, "c-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for never-assigned specialist, got %v", err)
	}
}

func TestProfileOwnership(t *testing.T) {
	r, ctx := newTestRepo(t)
	p := domain.Profile{
		ID:          "p-1",
		RequesterID: "req-1",
		Name:        "Self",
		DOB:         "1990-04-12",
		TOB:         "06:45",
		POB:         "Chennai",
		Lat:         13.0827,
		Lon:         80.2707,
		CreatedAt:   "2026-01-01T00:00:00Z",
	}
	if err := r.InsertProfile(ctx, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := r.GetProfile(ctx, "p-1")
	if err != nil || got.POB != "Chennai" {
		t.Fatalf("get: %+v (%v)", got, err)
	}
	// Someone else's delete does not touch the row.
	if err := r.DeleteProfile(ctx, "req-2", "p-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := r.DeleteProfile(ctx, "req-1", "p-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.GetProfile(ctx, "p-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestIdentityRoster(t *testing.T) {
	r, ctx := newTestRepo(t)
	ident := domain.Identity{ID: "spec-1", Role: domain.RoleSpecialist, FullName: "A. Iyer", CreatedAt: "2026-01-01T00:00:00Z"}
	if err := r.UpsertIdentity(ctx, ident); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	ok, err := r.HasRole(ctx, "spec-1", domain.RoleSpecialist)
	if err != nil || !ok {
		t.Fatalf("expected roster hit: %v", err)
	}
	ok, err = r.HasRole(ctx, "spec-1", domain.RoleSupervisor)
	if err != nil || ok {
		t.Fatalf("role mismatch should miss: %v", err)
	}
	// Upsert may change the role in place.
	ident.Role = domain.RoleSupervisor
	if err := r.UpsertIdentity(ctx, ident); err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	ok, err = r.HasRole(ctx, "spec-1", domain.RoleSupervisor)
	if err != nil || !ok {
		t.Fatalf("expected updated role: %v", err)
	}
}
