package pariharamsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Pariharam HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string

	// ActorID and ActorRole are sent as dev headers when no bearer token
	// is set. The server only honors them when configured for dev auth.
	ActorID   string
	ActorRole string

	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Consultation represents the API consultation model.
type Consultation struct {
	ID          string   `json:"id"`
	RequesterID string   `json:"requester_id"`
	ProfileRef  *string  `json:"profile_ref,omitempty"`
	FocusTags   []string `json:"focus_tags"`
	Narrative   string   `json:"narrative,omitempty"`
	State       string   `json:"state"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	DraftReport *string  `json:"draft_report,omitempty"`
	FinalReport *string  `json:"final_report,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// Profile represents a saved birth profile.
type Profile struct {
	ID          string  `json:"id"`
	RequesterID string  `json:"requester_id"`
	Name        string  `json:"name"`
	DOB         string  `json:"dob"`
	TOB         string  `json:"tob"`
	POB         string  `json:"pob,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	CreatedAt   string  `json:"created_at"`
}

// Identity represents a roster entry.
type Identity struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	FullName  string `json:"full_name,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Period is one node of the period hierarchy.
type Period struct {
	ID          string `json:"id"`
	Level       string `json:"level"`
	Label       string `json:"label"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	IsCurrent   bool   `json:"is_current"`
	HasChildren bool   `json:"has_children"`
	Expanded    bool   `json:"expanded"`
}

// ChartCell is one cell of the 4x4 chart grid.
type ChartCell struct {
	Sign     int      `json:"sign"`
	SignName string   `json:"sign_name,omitempty"`
	Tokens   []string `json:"tokens,omitempty"`
}

// Chart is the laid-out chart plus the period hierarchy roots.
type Chart struct {
	Cells        []ChartCell `json:"cells"`
	Mahadashas   []Period    `json:"mahadashas"`
	CurrentChain []Period    `json:"current_chain"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateConsultation submits a consultation request.
func (c *Client) CreateConsultation(ctx context.Context, profileRef string, focusTags []string, narrative string) (Consultation, error) {
	body := map[string]any{
		"focus_tags": focusTags,
	}
	if profileRef != "" {
		body["profile_ref"] = profileRef
	}
	if narrative != "" {
		body["narrative"] = narrative
	}
	var resp Consultation
	err := c.do(ctx, http.MethodPost, "v0/consultations", body, &resp)
	return resp, err
}

// Consultations lists what the caller can see.
func (c *Client) Consultations(ctx context.Context) ([]Consultation, error) {
	var resp []Consultation
	err := c.do(ctx, http.MethodGet, "v0/consultations", nil, &resp)
	return resp, err
}

// Consultation fetches one consultation by id.
func (c *Client) Consultation(ctx context.Context, id string) (Consultation, error) {
	var resp Consultation
	err := c.do(ctx, http.MethodGet, c.consultationPath(id, ""), nil, &resp)
	return resp, err
}

// Assign routes a submitted consultation to a specialist.
func (c *Client) Assign(ctx context.Context, id, specialistID string) (Consultation, error) {
	var resp Consultation
	err := c.do(ctx, http.MethodPost, c.consultationPath(id, "assign"), map[string]any{"specialist_id": specialistID}, &resp)
	return resp, err
}

// Reassign replaces the assigned specialist.
func (c *Client) Reassign(ctx context.Context, id, specialistID string) (Consultation, error) {
	var resp Consultation
	err := c.do(ctx, http.MethodPost, c.consultationPath(id, "reassign"), map[string]any{"specialist_id": specialistID}, &resp)
	return resp, err
}

// SubmitDraft records the specialist's draft report.
func (c *Client) SubmitDraft(ctx context.Context, id, draft string) (Consultation, error) {
	var resp Consultation
	err := c.do(ctx, http.MethodPost, c.consultationPath(id, "draft"), map[string]any{"draft_report": draft}, &resp)
	return resp, err
}

// Publish finalizes the consultation with the supervisor's report.
func (c *Client) Publish(ctx context.Context, id, final string) (Consultation, error) {
	var resp Consultation
	err := c.do(ctx, http.MethodPost, c.consultationPath(id, "publish"), map[string]any{"final_report": final}, &resp)
	return resp, err
}

// Chart fetches the chart and period hierarchy for a consultation.
func (c *Client) Chart(ctx context.Context, id string) (Chart, error) {
	var resp Chart
	err := c.do(ctx, http.MethodGet, c.consultationPath(id, "chart"), nil, &resp)
	return resp, err
}

// ExpandPeriods returns the children of one period node.
func (c *Client) ExpandPeriods(ctx context.Context, id, node string) ([]Period, error) {
	endpoint := c.consultationPath(id, "periods")
	if node != "" {
		endpoint = fmt.Sprintf("%s?node=%s", endpoint, url.QueryEscape(node))
	}
	var resp []Period
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateProfile saves a birth profile.
func (c *Client) CreateProfile(ctx context.Context, name, dob, tob, pob string, lat, lon float64) (Profile, error) {
	body := map[string]any{
		"name": name,
		"dob":  dob,
		"tob":  tob,
		"lat":  lat,
		"lon":  lon,
	}
	if pob != "" {
		body["pob"] = pob
	}
	var resp Profile
	err := c.do(ctx, http.MethodPost, "v0/profiles", body, &resp)
	return resp, err
}

// Profiles lists the caller's saved profiles.
func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	var resp []Profile
	err := c.do(ctx, http.MethodGet, "v0/profiles", nil, &resp)
	return resp, err
}

// Specialists lists the assignment candidate roster.
func (c *Client) Specialists(ctx context.Context) ([]Identity, error) {
	var resp []Identity
	err := c.do(ctx, http.MethodGet, "v0/specialists", nil, &resp)
	return resp, err
}

func (c *Client) consultationPath(id, suffix string) string {
	p := fmt.Sprintf("v0/consultations/%s", url.PathEscape(id))
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
		req.Header.Set("X-Actor-Role", c.ActorRole)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
