// Package events appends audit rows for consultation transitions.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type EventPayload map[string]any

// Writer appends audit events. Append takes the caller's open transaction:
// the event row commits or rolls back together with the mutation it
// describes, so the log never disagrees with the data.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) timestamp() string {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return now().UTC().Format(time.RFC3339)
}

// Append records one event of the given type for a consultation. An empty
// consultationID stores NULL, for events not tied to a single request.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, consultationID, actorID string, payload EventPayload) error {
	if payload == nil {
		payload = EventPayload{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	var cid any
	if consultationID != "" {
		cid = consultationID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events(ts,type,consultation_id,actor_id,payload_json) VALUES (?,?,?,?,?)`,
		w.timestamp(), evtType, cid, actorID, string(body))
	if err != nil {
		return fmt.Errorf("append %s event: %w", evtType, err)
	}
	return nil
}
