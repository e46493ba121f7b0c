package workflow

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"pariharam/internal/config"
	"pariharam/internal/domain"
	"pariharam/internal/events"
	"pariharam/internal/metrics"
	"pariharam/internal/repo"
)

// Engine validates and applies consultation lifecycle transitions. Every
// operation takes the caller's identity and role explicitly; there is no
// ambient caller context.
type Engine struct {
	DB          *sql.DB
	Repo        repo.Repo
	Events      events.Writer
	Config      *config.Config
	Coordinator Coordinator
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

func New(db *sql.DB, cfg *config.Config, m *metrics.Metrics) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:          db,
		Repo:        r,
		Events:      events.Writer{DB: db},
		Config:      cfg,
		Coordinator: Coordinator{Repo: r, Metrics: m},
		Metrics:     m,
		Now:         time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// SubmitOptions are the requester-supplied fields of a new consultation.
type SubmitOptions struct {
	RequesterID string
	ProfileRef  string
	FocusTags   []string
	Narrative   string
}

// Submit creates a consultation in state submitted.
func (e Engine) Submit(ctx context.Context, callerRole domain.Role, opts SubmitOptions) (domain.Consultation, error) {
	if callerRole != domain.RoleRequester {
		e.Metrics.Transition("submit", "unauthorized")
		return domain.Consultation{}, unauthorized("submit", "only a requester may create a consultation")
	}
	if opts.RequesterID == "" {
		e.Metrics.Transition("submit", "invalid")
		return domain.Consultation{}, validation("requester_id", "required")
	}
	if len(opts.FocusTags) == 0 {
		e.Metrics.Transition("submit", "invalid")
		return domain.Consultation{}, validation("focus_tags", "at least one focus tag is required")
	}
	seen := map[string]bool{}
	for _, tag := range opts.FocusTags {
		if seen[tag] {
			e.Metrics.Transition("submit", "invalid")
			return domain.Consultation{}, validation("focus_tags", "duplicate tag "+tag)
		}
		seen[tag] = true
		if e.Config != nil && !e.Config.FocusTagAllowed(tag) {
			e.Metrics.Transition("submit", "invalid")
			return domain.Consultation{}, validation("focus_tags", "unknown tag "+tag)
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	c := domain.Consultation{
		ID:          uuid.New().String(),
		RequesterID: opts.RequesterID,
		FocusTags:   opts.FocusTags,
		Narrative:   opts.Narrative,
		State:       domain.StateSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if opts.ProfileRef != "" {
		c.ProfileRef = &opts.ProfileRef
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consultation{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertConsultation(ctx, tx, c); err != nil {
		return domain.Consultation{}, err
	}
	if err := e.Events.Append(ctx, tx, "consultation.submitted", c.ID, opts.RequesterID, events.EventPayload{
		"focus_tags": opts.FocusTags,
	}); err != nil {
		return domain.Consultation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consultation{}, err
	}
	e.Metrics.Transition("submit", "ok")
	return c, nil
}

// Assign routes a submitted consultation to a specialist.
func (e Engine) Assign(ctx context.Context, callerID string, callerRole domain.Role, consultationID, specialistID string) (domain.Consultation, error) {
	return e.assign(ctx, "assign", callerID, callerRole, consultationID, specialistID)
}

// Reassign replaces the specialist on an in-review consultation. The
// in-progress draft is discarded; its content goes into the audit event so
// it is not silently lost.
func (e Engine) Reassign(ctx context.Context, callerID string, callerRole domain.Role, consultationID, specialistID string) (domain.Consultation, error) {
	return e.assign(ctx, "reassign", callerID, callerRole, consultationID, specialistID)
}

func (e Engine) assign(ctx context.Context, verb, callerID string, callerRole domain.Role, consultationID, specialistID string) (domain.Consultation, error) {
	if callerRole != domain.RoleSupervisor {
		e.Metrics.Transition(verb, "unauthorized")
		return domain.Consultation{}, unauthorized(verb, "only a supervisor may assign")
	}
	if specialistID == "" {
		e.Metrics.Transition(verb, "invalid")
		return domain.Consultation{}, validation("specialist_id", "required")
	}
	onRoster, err := e.Repo.HasRole(ctx, specialistID, domain.RoleSpecialist)
	if err != nil {
		return domain.Consultation{}, err
	}
	if !onRoster {
		e.Metrics.Transition(verb, "unauthorized")
		return domain.Consultation{}, unauthorized(verb, "assignee is not on the specialist roster")
	}
	c, err := e.Repo.GetConsultation(ctx, consultationID)
	if err != nil {
		return domain.Consultation{}, err
	}
	expectedState := domain.StateSubmitted
	var expectedAssignee *string
	if verb == "reassign" {
		expectedState = domain.StateInReview
		expectedAssignee = c.AssigneeID
		if c.State != domain.StateInReview {
			e.Metrics.Transition(verb, "unauthorized")
			return domain.Consultation{}, unauthorized(verb, "consultation is not in review")
		}
		if c.AssigneeID != nil && *c.AssigneeID == specialistID {
			e.Metrics.Transition(verb, "invalid")
			return domain.Consultation{}, validation("specialist_id", "already assigned to this specialist")
		}
	} else if c.State != domain.StateSubmitted {
		e.Metrics.Transition(verb, "unauthorized")
		return domain.Consultation{}, unauthorized(verb, "consultation is not awaiting assignment")
	}

	now := e.now().UTC().Format(time.RFC3339)
	payload := events.EventPayload{"specialist_id": specialistID}
	if verb == "reassign" {
		if c.AssigneeID != nil {
			payload["previous_specialist_id"] = *c.AssigneeID
		}
		if c.DraftReport != nil {
			payload["discarded_draft"] = *c.DraftReport
		}
	}
	updated := c
	updated.State = domain.StateInReview
	updated.AssigneeID = &specialistID
	updated.DraftReport = nil
	updated.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consultation{}, err
	}
	defer tx.Rollback()
	if err := e.Coordinator.CompareAndSwap(ctx, tx, updated, expectedState, expectedAssignee); err != nil {
		if errors.Is(err, ErrConflict) {
			e.Metrics.Transition(verb, "conflict")
		}
		return domain.Consultation{}, err
	}
	if verb == "reassign" {
		if err := e.Repo.CloseAssignment(ctx, tx, c.ID, now); err != nil {
			return domain.Consultation{}, err
		}
	}
	if err := e.Repo.OpenAssignment(ctx, tx, c.ID, specialistID, now); err != nil {
		return domain.Consultation{}, err
	}
	if err := e.Events.Append(ctx, tx, "consultation."+verb+"ed", c.ID, callerID, payload); err != nil {
		return domain.Consultation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consultation{}, err
	}
	e.Metrics.Transition(verb, "ok")
	return updated, nil
}

// SubmitDraft records the assigned specialist's analysis and moves the
// consultation to pending_finalization. The assignee slot clears; the
// specialist keeps visibility through the assignment history.
func (e Engine) SubmitDraft(ctx context.Context, callerID string, callerRole domain.Role, consultationID, text string) (domain.Consultation, error) {
	if callerRole != domain.RoleSpecialist {
		e.Metrics.Transition("submit_draft", "unauthorized")
		return domain.Consultation{}, unauthorized("submit_draft", "only a specialist may submit a draft")
	}
	if strings.TrimSpace(text) == "" {
		e.Metrics.Transition("submit_draft", "invalid")
		return domain.Consultation{}, validation("draft_report", "must not be empty")
	}
	c, err := e.Repo.GetConsultation(ctx, consultationID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if c.State != domain.StateInReview {
		e.Metrics.Transition("submit_draft", "unauthorized")
		return domain.Consultation{}, unauthorized("submit_draft", "consultation is not in review")
	}
	if c.AssigneeID == nil || *c.AssigneeID != callerID {
		e.Metrics.Transition("submit_draft", "unauthorized")
		return domain.Consultation{}, unauthorized("submit_draft", "caller does not hold this consultation")
	}

	now := e.now().UTC().Format(time.RFC3339)
	updated := c
	updated.State = domain.StatePendingFinalization
	updated.AssigneeID = nil
	updated.DraftReport = &text
	updated.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consultation{}, err
	}
	defer tx.Rollback()
	if err := e.Coordinator.CompareAndSwap(ctx, tx, updated, domain.StateInReview, c.AssigneeID); err != nil {
		if errors.Is(err, ErrConflict) {
			e.Metrics.Transition("submit_draft", "conflict")
		}
		return domain.Consultation{}, err
	}
	if err := e.Repo.CloseAssignment(ctx, tx, c.ID, now); err != nil {
		return domain.Consultation{}, err
	}
	if err := e.Events.Append(ctx, tx, "consultation.draft_submitted", c.ID, callerID, events.EventPayload{}); err != nil {
		return domain.Consultation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consultation{}, err
	}
	e.Metrics.Transition("submit_draft", "ok")
	return updated, nil
}

// Publish finalizes a pending consultation with the supervisor's report and
// completes it, releasing it back to the requester.
func (e Engine) Publish(ctx context.Context, callerID string, callerRole domain.Role, consultationID, finalText string) (domain.Consultation, error) {
	if callerRole != domain.RoleSupervisor {
		e.Metrics.Transition("publish", "unauthorized")
		return domain.Consultation{}, unauthorized("publish", "only a supervisor may publish")
	}
	if strings.TrimSpace(finalText) == "" {
		e.Metrics.Transition("publish", "invalid")
		return domain.Consultation{}, validation("final_report", "must not be empty")
	}
	c, err := e.Repo.GetConsultation(ctx, consultationID)
	if err != nil {
		return domain.Consultation{}, err
	}
	if c.State != domain.StatePendingFinalization {
		e.Metrics.Transition("publish", "unauthorized")
		return domain.Consultation{}, unauthorized("publish", "consultation is not pending finalization")
	}

	now := e.now().UTC().Format(time.RFC3339)
	updated := c
	updated.State = domain.StateCompleted
	updated.FinalReport = &finalText
	updated.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consultation{}, err
	}
	defer tx.Rollback()
	if err := e.Coordinator.CompareAndSwap(ctx, tx, updated, domain.StatePendingFinalization, nil); err != nil {
		if errors.Is(err, ErrConflict) {
			e.Metrics.Transition("publish", "conflict")
		}
		return domain.Consultation{}, err
	}
	if err := e.Events.Append(ctx, tx, "consultation.published", c.ID, callerID, events.EventPayload{}); err != nil {
		return domain.Consultation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consultation{}, err
	}
	e.Metrics.Transition("publish", "ok")
	return updated, nil
}

// ListFor returns the consultations visible to the caller.
func (e Engine) ListFor(ctx context.Context, callerID string, callerRole domain.Role) ([]domain.Consultation, error) {
	if !callerRole.Valid() {
		return nil, validation("role", "unknown role "+string(callerRole))
	}
	return e.Repo.ListConsultationsFor(ctx, callerID, callerRole)
}

// GetFor returns one consultation through the visibility gate.
func (e Engine) GetFor(ctx context.Context, callerID string, callerRole domain.Role, id string) (domain.Consultation, error) {
	if !callerRole.Valid() {
		return domain.Consultation{}, validation("role", "unknown role "+string(callerRole))
	}
	return e.Repo.GetConsultationFor(ctx, callerID, callerRole, id)
}

// ListSpecialists returns the assignment candidate roster.
func (e Engine) ListSpecialists(ctx context.Context) ([]domain.Identity, error) {
	return e.Repo.ListByRole(ctx, domain.RoleSpecialist)
}
