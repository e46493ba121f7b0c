package astro

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
)

func newStubEngine(t *testing.T, status int, body string) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/calculate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
	})
	return "http://" + ln.Addr().String()
}

const stubResult = `{
  "lagna": {"idx": 7},
  "planets": [{"name": "Mars", "rasi_idx": 3}],
  "mahadashas": [{"planet": "Sun", "start_date": "2020-03-10", "end_date": "2026-03-10", "is_current": true}]
}`

func TestCalculate(t *testing.T) {
	c := New(newStubEngine(t, http.StatusOK, stubResult))
	res, err := c.Calculate(context.Background(), BirthInput{Year: 1990, Month: 4, Day: 12})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if res.Ascendant.SignIdx != 7 {
		t.Fatalf("ascendant: got %d", res.Ascendant.SignIdx)
	}
	if len(res.Placements) != 1 || res.Placements[0].Name != "Mars" || res.Placements[0].SignIdx != 3 {
		t.Fatalf("placements: %+v", res.Placements)
	}
	if len(res.Mahadashas) == 0 {
		t.Fatalf("mahadashas not captured")
	}
}

func TestCalculateEngineError(t *testing.T) {
	c := New(newStubEngine(t, http.StatusInternalServerError, `boom`))
	_, err := c.Calculate(context.Background(), BirthInput{})
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if ee.StatusCode != http.StatusInternalServerError || ee.Body != "boom" {
		t.Fatalf("unexpected error detail: %+v", ee)
	}
}

// One Client is shared by every request handler; concurrent calls must not
// touch shared state.
func TestCalculateConcurrent(t *testing.T) {
	c := New(newStubEngine(t, http.StatusOK, stubResult))
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Calculate(context.Background(), BirthInput{Year: 1990, Month: 4, Day: 12})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent calculate: %v", err)
		}
	}
}

// A zero-value Client still works; do must fall back without writing the
// receiver.
func TestZeroValueClient(t *testing.T) {
	c := &Client{BaseURL: newStubEngine(t, http.StatusOK, stubResult)}
	if _, err := c.Calculate(context.Background(), BirthInput{}); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if c.HTTPClient != nil {
		t.Fatalf("do mutated the client")
	}
}
