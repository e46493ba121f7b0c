package domain

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleRequester  Role = "requester"
	RoleSpecialist Role = "specialist"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleSpecialist, RoleSupervisor:
		return true
	}
	return false
}

// State is a consultation lifecycle state.
type State string

const (
	StateSubmitted           State = "submitted"
	StateInReview            State = "in_review"
	StatePendingFinalization State = "pending_finalization"
	StateCompleted           State = "completed"
)

type Consultation struct {
	ID          string   `json:"id"`
	RequesterID string   `json:"requester_id"`
	ProfileRef  *string  `json:"profile_ref,omitempty"`
	FocusTags   []string `json:"focus_tags"`
	Narrative   string   `json:"narrative,omitempty"`
	State       State    `json:"state" enum:"submitted,in_review,pending_finalization,completed"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	DraftReport *string  `json:"draft_report,omitempty"`
	FinalReport *string  `json:"final_report,omitempty"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
}

// Assignment records one specialist's tenure on a consultation. Rows are
// never deleted; a reassignment closes the old row and opens a new one, so
// specialists keep visibility of work they once held.
type Assignment struct {
	ConsultationID string  `json:"consultation_id"`
	SpecialistID   string  `json:"specialist_id"`
	AssignedAt     string  `json:"assigned_at" format:"date-time"`
	ReleasedAt     *string `json:"released_at,omitempty" format:"date-time"`
}

// Identity is a roster entry. Roles are managed externally; this core only
// reads the roster to list assignment candidates and to check the
// specialist guard on assign/reassign.
type Identity struct {
	ID        string `json:"id"`
	Role      Role   `json:"role" enum:"requester,specialist,supervisor"`
	FullName  string `json:"full_name,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Profile is a saved birth/reference profile owned by a requester. The
// workflow core reads profiles only through their id.
type Profile struct {
	ID          string  `json:"id"`
	RequesterID string  `json:"requester_id"`
	Name        string  `json:"name"`
	DOB         string  `json:"dob" format:"date"`
	TOB         string  `json:"tob"`
	POB         string  `json:"pob,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

type Event struct {
	ID             int64  `json:"id"`
	TS             string `json:"ts" format:"date-time"`
	Type           string `json:"type"`
	ConsultationID string `json:"consultation_id,omitempty"`
	ActorID        string `json:"actor_id"`
	Payload        string `json:"payload_json"`
}
