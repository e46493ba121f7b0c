package workflow

import (
	"context"
	"database/sql"

	"pariharam/internal/domain"
	"pariharam/internal/metrics"
	"pariharam/internal/repo"
)

// Coordinator serializes mutations on a single consultation. Every state
// transition funnels through CompareAndSwap, an optimistic update whose
// WHERE clause reproduces the (state, assignee) pair the caller read just
// before deciding to mutate. Two racing writers cannot both match; the
// loser gets ErrConflict immediately and nothing blocks.
type Coordinator struct {
	Repo    repo.Repo
	Metrics *metrics.Metrics
}

// CompareAndSwap writes the consultation's mutable fields if and only if
// the stored row still carries the expected prior state and assignee.
func (c Coordinator) CompareAndSwap(ctx context.Context, tx *sql.Tx, updated domain.Consultation, expectedState domain.State, expectedAssignee *string) error {
	n, err := c.Repo.UpdateConsultationGuarded(ctx, tx, updated, expectedState, expectedAssignee)
	if err != nil {
		return err
	}
	if n == 0 {
		c.Metrics.Conflict()
		return ErrConflict
	}
	return nil
}
