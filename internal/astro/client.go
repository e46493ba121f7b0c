// Package astro talks to the external computation engine that derives
// chart placements and period timelines from birth data.
package astro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the computation engine over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Timeout:    30 * time.Second,
	}
}

// BirthInput carries the data the engine needs for a computation.
type BirthInput struct {
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Day    int     `json:"day"`
	Hour   int     `json:"hour"`
	Minute int     `json:"minute"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Placement is one body's computed sign position.
type Placement struct {
	Name    string `json:"name"`
	SignIdx int    `json:"rasi_idx"`
}

// Result is the engine's full response. Mahadashas is kept as raw JSON
// so the period tree package can decode it on its own terms.
type Result struct {
	Ascendant struct {
		SignIdx int `json:"idx"`
	} `json:"lagna"`
	Placements []Placement     `json:"planets"`
	Mahadashas json.RawMessage `json:"mahadashas"`
}

// EngineError wraps a non-2xx response from the engine.
type EngineError struct {
	StatusCode int
	Body       string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("astro engine error: status=%d body=%s", e.StatusCode, e.Body)
}

// Calculate runs a full computation for the given birth data.
func (c *Client) Calculate(ctx context.Context, in BirthInput) (Result, error) {
	var out Result
	err := c.do(ctx, http.MethodPost, "calculate", in, &out)
	return out, err
}

// do never writes to the receiver; one Client is shared by concurrent
// request handlers.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.Timeout}
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
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &EngineError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
