package server

import (
	"pariharam/internal/chart"
	"pariharam/internal/dasha"
	"pariharam/internal/domain"
)

// Request payloads

type CreateConsultationRequest struct {
	ProfileRef *string  `json:"profile_ref,omitempty"`
	FocusTags  []string `json:"focus_tags"`
	Narrative  *string  `json:"narrative,omitempty"`
}

type AssignRequest struct {
	SpecialistID string `json:"specialist_id"`
}

type SubmitDraftRequest struct {
	DraftReport string `json:"draft_report"`
}

type PublishRequest struct {
	FinalReport string `json:"final_report"`
}

type CreateProfileRequest struct {
	Name string  `json:"name"`
	DOB  string  `json:"dob" format:"date"`
	TOB  string  `json:"tob"`
	POB  *string `json:"pob,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type RegisterIdentityRequest struct {
	ID       string  `json:"id"`
	Role     string  `json:"role" enum:"requester,specialist,supervisor"`
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Response payloads

type ConsultationResponse struct {
	ID          string   `json:"id"`
	RequesterID string   `json:"requester_id"`
	ProfileRef  *string  `json:"profile_ref,omitempty"`
	FocusTags   []string `json:"focus_tags"`
	Narrative   string   `json:"narrative,omitempty"`
	State       string   `json:"state" enum:"submitted,in_review,pending_finalization,completed"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	DraftReport *string  `json:"draft_report,omitempty"`
	FinalReport *string  `json:"final_report,omitempty"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
}

type IdentityResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role" enum:"requester,specialist,supervisor"`
	FullName  string `json:"full_name,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ProfileResponse struct {
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

type EventResponse struct {
	ID             int64  `json:"id"`
	TS             string `json:"ts" format:"date-time"`
	Type           string `json:"type"`
	ConsultationID string `json:"consultation_id,omitempty"`
	ActorID        string `json:"actor_id"`
	PayloadJSON    string `json:"payload_json"`
}

type ChartCellResponse struct {
	Sign     int      `json:"sign"`
	SignName string   `json:"sign_name,omitempty"`
	Tokens   []string `json:"tokens,omitempty"`
}

type PeriodResponse struct {
	ID          string `json:"id"`
	Level       string `json:"level" enum:"mahadasha,bhukti,pratyantardasha,sookshma"`
	Label       string `json:"label"`
	StartDate   string `json:"start_date" format:"date"`
	EndDate     string `json:"end_date" format:"date"`
	IsCurrent   bool   `json:"is_current"`
	HasChildren bool   `json:"has_children"`
	Expanded    bool   `json:"expanded"`
}

type ChartResponse struct {
	Cells        []ChartCellResponse `json:"cells"`
	Mahadashas   []PeriodResponse    `json:"mahadashas"`
	CurrentChain []PeriodResponse    `json:"current_chain"`
}

// consultationResponse maps a consultation for one caller. The draft report
// is working material for the review side; requesters never see it.
func consultationResponse(c domain.Consultation, callerRole domain.Role) ConsultationResponse {
	resp := ConsultationResponse{
		ID:          c.ID,
		RequesterID: c.RequesterID,
		ProfileRef:  c.ProfileRef,
		FocusTags:   c.FocusTags,
		Narrative:   c.Narrative,
		State:       string(c.State),
		AssigneeID:  c.AssigneeID,
		DraftReport: c.DraftReport,
		FinalReport: c.FinalReport,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if callerRole == domain.RoleRequester {
		resp.DraftReport = nil
	}
	if resp.FocusTags == nil {
		resp.FocusTags = []string{}
	}
	return resp
}

func mapConsultations(items []domain.Consultation, callerRole domain.Role) []ConsultationResponse {
	res := []ConsultationResponse{}
	for _, c := range items {
		res = append(res, consultationResponse(c, callerRole))
	}
	return res
}

func identityResponse(i domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:        i.ID,
		Role:      string(i.Role),
		FullName:  i.FullName,
		Email:     i.Email,
		CreatedAt: i.CreatedAt,
	}
}

func mapIdentities(items []domain.Identity) []IdentityResponse {
	res := []IdentityResponse{}
	for _, i := range items {
		res = append(res, identityResponse(i))
	}
	return res
}

func profileResponse(p domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID,
		RequesterID: p.RequesterID,
		Name:        p.Name,
		DOB:         p.DOB,
		TOB:         p.TOB,
		POB:         p.POB,
		Lat:         p.Lat,
		Lon:         p.Lon,
		CreatedAt:   p.CreatedAt,
	}
}

func mapProfiles(items []domain.Profile) []ProfileResponse {
	res := []ProfileResponse{}
	for _, p := range items {
		res = append(res, profileResponse(p))
	}
	return res
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:             e.ID,
		TS:             e.TS,
		Type:           e.Type,
		ConsultationID: e.ConsultationID,
		ActorID:        e.ActorID,
		PayloadJSON:    e.Payload,
	}
}

func mapCells(g chart.Grid) []ChartCellResponse {
	res := make([]ChartCellResponse, 0, len(g.Cells))
	for _, cell := range g.Cells {
		out := ChartCellResponse{Sign: cell.Sign, Tokens: cell.Tokens}
		if cell.Sign >= 0 {
			out.SignName = chart.SignNames[cell.Sign].EN
		}
		res = append(res, out)
	}
	return res
}

func periodResponse(p dasha.Period) PeriodResponse {
	return PeriodResponse{
		ID:          p.ID,
		Level:       p.Level.String(),
		Label:       p.Label,
		StartDate:   p.Start,
		EndDate:     p.End,
		IsCurrent:   p.IsCurrent,
		HasChildren: p.HasChild,
		Expanded:    dasha.IsExpandedByDefault(p),
	}
}

func mapPeriods(items []dasha.Period) []PeriodResponse {
	res := []PeriodResponse{}
	for _, p := range items {
		res = append(res, periodResponse(p))
	}
	return res
}
