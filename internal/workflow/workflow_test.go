package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pariharam/internal/config"
	"pariharam/internal/db"
	"pariharam/internal/domain"
	"pariharam/internal/metrics"
	"pariharam/internal/migrate"
	"pariharam/internal/workflow"
)

type testEnv struct {
	Engine workflow.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
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
	eng := workflow.New(conn, config.Default(), nil)
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	for _, ident := range []domain.Identity{
		{ID: "spec-1", Role: domain.RoleSpecialist, CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: "spec-2", Role: domain.RoleSpecialist, CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: "sup-1", Role: domain.RoleSupervisor, CreatedAt: "2026-01-01T00:00:00Z"},
	} {
		if err := eng.Repo.UpsertIdentity(ctx, ident); err != nil {
			t.Fatalf("seed roster: %v", err)
		}
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func submit(t *testing.T, env testEnv) domain.Consultation {
	t.Helper()
	c, err := env.Engine.Submit(env.Ctx, domain.RoleRequester, workflow.SubmitOptions{
		RequesterID: "req-1",
		FocusTags:   []string{"career"},
		Narrative:   "what lies ahead",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return c
}

// assigneeInvariant fails the test if the assignee slot disagrees with the
// state: it must be set in in_review and clear everywhere else.
func assigneeInvariant(t *testing.T, c domain.Consultation) {
	t.Helper()
	if c.State == domain.StateInReview && c.AssigneeID == nil {
		t.Fatalf("in_review consultation has no assignee")
	}
	if c.State != domain.StateInReview && c.AssigneeID != nil {
		t.Fatalf("state %s has assignee %s", c.State, *c.AssigneeID)
	}
}

func TestFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c := submit(t, env)
	if c.State != domain.StateSubmitted {
		t.Fatalf("expected submitted, got %s", c.State)
	}
	assigneeInvariant(t, c)

	c, err := env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if c.State != domain.StateInReview || c.AssigneeID == nil || *c.AssigneeID != "spec-1" {
		t.Fatalf("unexpected after assign: %+v", c)
	}
	assigneeInvariant(t, c)

	c, err = env.Engine.SubmitDraft(env.Ctx, "spec-1", domain.RoleSpecialist, c.ID, "analysis text")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if c.State != domain.StatePendingFinalization {
		t.Fatalf("expected pending_finalization, got %s", c.State)
	}
	if c.DraftReport == nil || *c.DraftReport != "analysis text" {
		t.Fatalf("draft report not recorded")
	}
	assigneeInvariant(t, c)

	c, err = env.Engine.Publish(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "final verdict")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if c.State != domain.StateCompleted || c.FinalReport == nil || *c.FinalReport != "final verdict" {
		t.Fatalf("unexpected after publish: %+v", c)
	}
	assigneeInvariant(t, c)

	rows, err := env.Engine.Repo.ListEvents(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	want := []string{"consultation.submitted", "consultation.assigned", "consultation.draft_submitted", "consultation.published"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(rows))
	}
	for i, ev := range rows {
		if ev.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], ev.Type)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	var ve workflow.ValidationError

	if _, err := env.Engine.Submit(env.Ctx, domain.RoleSpecialist, workflow.SubmitOptions{RequesterID: "spec-1", FocusTags: []string{"career"}}); err == nil {
		t.Fatalf("expected role rejection")
	}
	_, err := env.Engine.Submit(env.Ctx, domain.RoleRequester, workflow.SubmitOptions{RequesterID: "req-1"})
	if !errors.As(err, &ve) || ve.Field != "focus_tags" {
		t.Fatalf("expected focus_tags validation, got %v", err)
	}
	_, err = env.Engine.Submit(env.Ctx, domain.RoleRequester, workflow.SubmitOptions{RequesterID: "req-1", FocusTags: []string{"career", "career"}})
	if !errors.As(err, &ve) {
		t.Fatalf("expected duplicate tag validation, got %v", err)
	}
	_, err = env.Engine.Submit(env.Ctx, domain.RoleRequester, workflow.SubmitOptions{RequesterID: "req-1", FocusTags: []string{"astrology"}})
	if !errors.As(err, &ve) {
		t.Fatalf("expected unknown tag validation, got %v", err)
	}
}

func TestAssignGuards(t *testing.T) {
	env := newTestEnv(t)
	c := submit(t, env)
	var ue workflow.UnauthorizedTransitionError

	_, err := env.Engine.Assign(env.Ctx, "req-1", domain.RoleRequester, c.ID, "spec-1")
	if !errors.As(err, &ue) {
		t.Fatalf("expected unauthorized for requester, got %v", err)
	}
	// Not on the specialist roster.
	_, err = env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "nobody")
	if !errors.As(err, &ue) {
		t.Fatalf("expected roster rejection, got %v", err)
	}
	// A supervisor id is not a specialist either.
	_, err = env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "sup-1")
	if !errors.As(err, &ue) {
		t.Fatalf("expected roster rejection for supervisor id, got %v", err)
	}

	if _, err := env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Already in review; plain assign no longer applies.
	_, err = env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-2")
	if !errors.As(err, &ue) {
		t.Fatalf("expected unauthorized on assigned consultation, got %v", err)
	}
}

func TestReassign(t *testing.T) {
	env := newTestEnv(t)
	c := submit(t, env)
	if _, err := env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	var ve workflow.ValidationError
	_, err := env.Engine.Reassign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-1")
	if !errors.As(err, &ve) {
		t.Fatalf("expected same-specialist rejection, got %v", err)
	}
	c2, err := env.Engine.Reassign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-2")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if c2.AssigneeID == nil || *c2.AssigneeID != "spec-2" {
		t.Fatalf("expected spec-2 assigned, got %+v", c2)
	}
	if c2.DraftReport != nil {
		t.Fatalf("expected draft cleared on reassignment")
	}
	// Both tenures are on record; the first is closed.
	hist, err := env.Engine.Repo.ListAssignments(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 assignment rows, got %d", len(hist))
	}
	if hist[0].SpecialistID != "spec-1" || hist[0].ReleasedAt == nil {
		t.Fatalf("expected closed first tenure, got %+v", hist[0])
	}
	if hist[1].SpecialistID != "spec-2" || hist[1].ReleasedAt != nil {
		t.Fatalf("expected open second tenure, got %+v", hist[1])
	}
}

func TestDraftGuards(t *testing.T) {
	env := newTestEnv(t)
	c := submit(t, env)
	if _, err := env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	var ue workflow.UnauthorizedTransitionError
	var ve workflow.ValidationError

	_, err := env.Engine.SubmitDraft(env.Ctx, "spec-2", domain.RoleSpecialist, c.ID, "stolen work")
	if !errors.As(err, &ue) {
		t.Fatalf("expected holder check, got %v", err)
	}
	_, err = env.Engine.SubmitDraft(env.Ctx, "spec-1", domain.RoleSpecialist, c.ID, "   ")
	if !errors.As(err, &ve) {
		t.Fatalf("expected empty draft rejection, got %v", err)
	}
	if _, err := env.Engine.SubmitDraft(env.Ctx, "spec-1", domain.RoleSpecialist, c.ID, "done"); err != nil {
		t.Fatalf("draft: %v", err)
	}
	// The tenure is closed but history keeps the specialist's visibility.
	if _, err := env.Engine.GetFor(env.Ctx, "spec-1", domain.RoleSpecialist, c.ID); err != nil {
		t.Fatalf("expected historical visibility: %v", err)
	}
}

func TestPublishGuards(t *testing.T) {
	env := newTestEnv(t)
	c := submit(t, env)
	var ue workflow.UnauthorizedTransitionError
	_, err := env.Engine.Publish(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "too early")
	if !errors.As(err, &ue) {
		t.Fatalf("expected state check, got %v", err)
	}
	if _, err := env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.Engine.SubmitDraft(env.Ctx, "spec-1", domain.RoleSpecialist, c.ID, "draft"); err != nil {
		t.Fatalf("draft: %v", err)
	}
	var ve workflow.ValidationError
	_, err = env.Engine.Publish(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, " ")
	if !errors.As(err, &ve) {
		t.Fatalf("expected empty report rejection, got %v", err)
	}
	_, err = env.Engine.Publish(env.Ctx, "spec-1", domain.RoleSpecialist, c.ID, "final")
	if !errors.As(err, &ue) {
		t.Fatalf("expected role check, got %v", err)
	}
}

func TestStaleUpdateConflicts(t *testing.T) {
	env := newTestEnv(t)
	c := submit(t, env)
	if _, err := env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, "spec-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// A writer still holding the pre-assignment snapshot loses the swap.
	stale := c
	stale.State = domain.StateInReview
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	err = env.Engine.Coordinator.CompareAndSwap(env.Ctx, tx, stale, domain.StateSubmitted, nil)
	if !errors.Is(err, workflow.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

// Two supervisors race to assign the same submitted consultation: exactly
// one wins; the other is refused either by the swap guard (stale snapshot)
// or by the state pre-check (fresh read after the winner committed). The row
// ends up with exactly one assignee.
func TestConcurrentAssign(t *testing.T) {
	env := newTestEnv(t)
	c := submit(t, env)

	specialists := []string{"spec-1", "spec-2"}
	results := make([]error, len(specialists))
	var wg sync.WaitGroup
	for i, spec := range specialists {
		wg.Add(1)
		go func(i int, spec string) {
			defer wg.Done()
			_, results[i] = env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID, spec)
		}(i, spec)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		var ue workflow.UnauthorizedTransitionError
		if !errors.Is(err, workflow.ErrConflict) && !errors.As(err, &ue) {
			t.Fatalf("loser failed with unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	got, err := env.Engine.GetFor(env.Ctx, "sup-1", domain.RoleSupervisor, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != domain.StateInReview {
		t.Fatalf("expected in_review, got %s", got.State)
	}
	assigneeInvariant(t, got)
}

func TestSubmitMetrics(t *testing.T) {
	env := newTestEnv(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	env.Engine.Metrics = m
	env.Engine.Coordinator.Metrics = m

	_, err := env.Engine.Submit(env.Ctx, domain.RoleRequester, workflow.SubmitOptions{
		FocusTags: []string{"career"},
	})
	var ve workflow.ValidationError
	if !errors.As(err, &ve) || ve.Field != "requester_id" {
		t.Fatalf("expected requester_id validation, got %v", err)
	}
	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("submit", "invalid")); got != 1 {
		t.Fatalf("expected 1 invalid submit recorded, got %v", got)
	}

	submit(t, env)
	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("submit", "ok")); got != 1 {
		t.Fatalf("expected 1 ok submit recorded, got %v", got)
	}
}

func TestVisibility(t *testing.T) {
	env := newTestEnv(t)
	mine := submit(t, env)
	other, err := env.Engine.Submit(env.Ctx, domain.RoleRequester, workflow.SubmitOptions{
		RequesterID: "req-2",
		FocusTags:   []string{"health"},
	})
	if err != nil {
		t.Fatalf("submit other: %v", err)
	}

	list, err := env.Engine.ListFor(env.Ctx, "req-1", domain.RoleRequester)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Fatalf("requester should see only own, got %d", len(list))
	}
	// Another requester's consultation is indistinguishable from a missing one.
	if _, err := env.Engine.GetFor(env.Ctx, "req-1", domain.RoleRequester, other.ID); err == nil {
		t.Fatalf("expected not found for foreign consultation")
	}

	// Specialists see nothing until assigned.
	list, err = env.Engine.ListFor(env.Ctx, "spec-1", domain.RoleSpecialist)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("unassigned specialist should see nothing, got %d", len(list))
	}
	if _, err := env.Engine.Assign(env.Ctx, "sup-1", domain.RoleSupervisor, mine.ID, "spec-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	list, err = env.Engine.ListFor(env.Ctx, "spec-1", domain.RoleSpecialist)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Fatalf("assigned specialist should see the consultation")
	}

	list, err = env.Engine.ListFor(env.Ctx, "sup-1", domain.RoleSupervisor)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("supervisor should see all, got %d", len(list))
	}
}

func TestListSpecialists(t *testing.T) {
	env := newTestEnv(t)
	roster, err := env.Engine.ListSpecialists(env.Ctx)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 specialists, got %d", len(roster))
	}
	for _, r := range roster {
		if r.Role != domain.RoleSpecialist {
			t.Fatalf("unexpected role %s in roster", r.Role)
		}
	}
}
