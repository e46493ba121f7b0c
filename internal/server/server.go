package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pariharam/internal/astro"
	"pariharam/internal/chart"
	"pariharam/internal/dasha"
	"pariharam/internal/domain"
	"pariharam/internal/repo"
	"pariharam/internal/workflow"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   workflow.Engine
	Astro    *astro.Client
	BasePath string
	Auth     AuthConfig
	Registry *prometheus.Registry
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"unauthorized_transition"`
	Message string         `json:"message" example:"only a supervisor may assign"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"field\":\"focus_tags\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the consultation API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Pariharam API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerConsultations(group, cfg.Engine)
	registerCharts(group, cfg.Engine, cfg.Astro)
	registerProfiles(group, cfg.Engine)
	registerRoster(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)
	if cfg.Registry != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve workflow.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": ve.Field})
	}
	var ue workflow.UnauthorizedTransitionError
	if errors.As(err, &ue) {
		return newAPIError(http.StatusForbidden, "unauthorized_transition", err.Error(), map[string]any{"verb": ue.Verb})
	}
	if errors.Is(err, workflow.ErrConflict) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), map[string]any{"retryable": true})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", "not found", nil)
	}
	var ee *astro.EngineError
	if errors.As(err, &ee) {
		return newAPIError(http.StatusBadGateway, "upstream_error", "computation engine request failed", map[string]any{"status": ee.StatusCode})
	}
	var re chart.RangeError
	if errors.As(err, &re) {
		return newAPIError(http.StatusBadGateway, "upstream_error", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadGateway:
		return "upstream_error"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var once sync.Once
	var doc []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			doc, _ = json.Marshal(api.OpenAPI())
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Pariharam API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerConsultations(api huma.API, e workflow.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-consultation",
		Method:        http.MethodPost,
		Path:          "/consultations",
		Summary:       "Submit a consultation request",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateConsultationRequest `json:"body"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := workflow.SubmitOptions{
			RequesterID: caller.ActorID,
			FocusTags:   input.Body.FocusTags,
		}
		if input.Body.ProfileRef != nil {
			opts.ProfileRef = *input.Body.ProfileRef
		}
		if input.Body.Narrative != nil {
			opts.Narrative = *input.Body.Narrative
		}
		c, err := e.Submit(ctx, caller.Role, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c, caller.Role)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-consultations",
		Method:      http.MethodGet,
		Path:        "/consultations",
		Summary:     "List consultations visible to the caller",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ConsultationResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListFor(ctx, caller.ActorID, caller.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ConsultationResponse `json:"body"`
		}{Body: mapConsultations(items, caller.Role)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-consultation",
		Method:      http.MethodGet,
		Path:        "/consultations/{id}",
		Summary:     "Get consultation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.GetFor(ctx, caller.ActorID, caller.Role, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c, caller.Role)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-consultation",
		Method:      http.MethodPost,
		Path:        "/consultations/{id}/assign",
		Summary:     "Assign a specialist",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body AssignRequest `json:"body"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Assign(ctx, caller.ActorID, caller.Role, input.ID, input.Body.SpecialistID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c, caller.Role)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reassign-consultation",
		Method:      http.MethodPost,
		Path:        "/consultations/{id}/reassign",
		Summary:     "Replace the assigned specialist",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body AssignRequest `json:"body"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Reassign(ctx, caller.ActorID, caller.Role, input.ID, input.Body.SpecialistID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c, caller.Role)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-draft",
		Method:      http.MethodPost,
		Path:        "/consultations/{id}/draft",
		Summary:     "Submit the specialist's draft report",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body SubmitDraftRequest `json:"body"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SubmitDraft(ctx, caller.ActorID, caller.Role, input.ID, input.Body.DraftReport)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c, caller.Role)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "publish-consultation",
		Method:      http.MethodPost,
		Path:        "/consultations/{id}/publish",
		Summary:     "Publish the final report",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body PublishRequest `json:"body"`
	}) (*struct {
		Body ConsultationResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Publish(ctx, caller.ActorID, caller.Role, input.ID, input.Body.FinalReport)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConsultationResponse `json:"body"`
		}{Body: consultationResponse(c, caller.Role)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-consultation-events",
		Method:      http.MethodGet,
		Path:        "/consultations/{id}/events",
		Summary:     "Consultation audit trail",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if caller.Role != domain.RoleSupervisor {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "only a supervisor may read the audit trail", nil)
		}
		if _, err := e.GetFor(ctx, caller.ActorID, caller.Role, input.ID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListEvents(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		res := []EventResponse{}
		for _, ev := range items {
			res = append(res, eventResponse(ev))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: res}, nil
	})
}

// chartInputs resolves the consultation through the caller's visibility gate
// and runs the upstream computation for its referenced profile.
func chartInputs(ctx context.Context, e workflow.Engine, ac *astro.Client, caller Principal, consultationID string) (astro.Result, error) {
	c, err := e.GetFor(ctx, caller.ActorID, caller.Role, consultationID)
	if err != nil {
		return astro.Result{}, err
	}
	if c.ProfileRef == nil {
		return astro.Result{}, newAPIError(http.StatusBadRequest, "bad_request", "consultation has no profile reference", nil)
	}
	p, err := e.Repo.GetProfile(ctx, *c.ProfileRef)
	if err != nil {
		return astro.Result{}, err
	}
	dob, err := time.Parse("2006-01-02", p.DOB)
	if err != nil {
		return astro.Result{}, newAPIError(http.StatusBadRequest, "bad_request", "profile has invalid date of birth", map[string]any{"dob": p.DOB})
	}
	tob, err := time.Parse("15:04", p.TOB)
	if err != nil {
		return astro.Result{}, newAPIError(http.StatusBadRequest, "bad_request", "profile has invalid time of birth", map[string]any{"tob": p.TOB})
	}
	return ac.Calculate(ctx, astro.BirthInput{
		Year:   dob.Year(),
		Month:  int(dob.Month()),
		Day:    dob.Day(),
		Hour:   tob.Hour(),
		Minute: tob.Minute(),
		Lat:    p.Lat,
		Lon:    p.Lon,
	})
}

func registerCharts(api huma.API, e workflow.Engine, ac *astro.Client) {
	huma.Register(api, huma.Operation{
		OperationID: "get-consultation-chart",
		Method:      http.MethodGet,
		Path:        "/consultations/{id}/chart",
		Summary:     "Chart and period hierarchy for a consultation",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ChartResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := chartInputs(ctx, e, ac, caller, input.ID)
		if err != nil {
			if se, ok := err.(huma.StatusError); ok {
				return nil, se
			}
			return nil, handleError(err)
		}
		tokens := make([]chart.Token, 0, len(res.Placements))
		for _, pl := range res.Placements {
			tokens = append(tokens, chart.Token{Name: pl.Name, SignIndex: pl.SignIdx})
		}
		grid, err := chart.Layout(res.Ascendant.SignIdx, tokens)
		if err != nil {
			return nil, handleError(err)
		}
		tree, err := dasha.Decode(res.Mahadashas)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChartResponse `json:"body"`
		}{Body: ChartResponse{
			Cells:        mapCells(grid),
			Mahadashas:   mapPeriods(tree.Roots()),
			CurrentChain: mapPeriods(tree.CurrentChain()),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "expand-consultation-periods",
		Method:      http.MethodGet,
		Path:        "/consultations/{id}/periods",
		Summary:     "Expand one node of the period hierarchy",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Node string `query:"node"`
	}) (*struct {
		Body []PeriodResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := chartInputs(ctx, e, ac, caller, input.ID)
		if err != nil {
			if se, ok := err.(huma.StatusError); ok {
				return nil, se
			}
			return nil, handleError(err)
		}
		tree, err := dasha.Decode(res.Mahadashas)
		if err != nil {
			return nil, handleError(err)
		}
		var periods []dasha.Period
		if input.Node == "" {
			periods = tree.Roots()
		} else {
			periods = tree.Expand(input.Node)
		}
		return &struct {
			Body []PeriodResponse `json:"body"`
		}{Body: mapPeriods(periods)}, nil
	})
}

func registerProfiles(api huma.API, e workflow.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-profile",
		Method:        http.MethodPost,
		Path:          "/profiles",
		Summary:       "Save a birth profile",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateProfileRequest `json:"body"`
	}) (*struct {
		Body ProfileResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if caller.Role != domain.RoleRequester {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "only a requester may manage profiles", nil)
		}
		if strings.TrimSpace(input.Body.Name) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", map[string]any{"field": "name"})
		}
		if _, err := time.Parse("2006-01-02", input.Body.DOB); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "dob must be YYYY-MM-DD", map[string]any{"field": "dob"})
		}
		if _, err := time.Parse("15:04", input.Body.TOB); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "tob must be HH:MM", map[string]any{"field": "tob"})
		}
		if input.Body.Lat < -90 || input.Body.Lat > 90 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "lat outside [-90,90]", map[string]any{"field": "lat"})
		}
		if input.Body.Lon < -180 || input.Body.Lon > 180 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "lon outside [-180,180]", map[string]any{"field": "lon"})
		}
		p := domain.Profile{
			ID:          uuid.New().String(),
			RequesterID: caller.ActorID,
			Name:        input.Body.Name,
			DOB:         input.Body.DOB,
			TOB:         input.Body.TOB,
			Lat:         input.Body.Lat,
			Lon:         input.Body.Lon,
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if input.Body.POB != nil {
			p.POB = *input.Body.POB
		}
		if err := e.Repo.InsertProfile(ctx, p); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProfileResponse `json:"body"`
		}{Body: profileResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        "/profiles",
		Summary:     "List the caller's profiles",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProfileResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if caller.Role != domain.RoleRequester {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "only a requester may manage profiles", nil)
		}
		items, err := e.Repo.ListProfiles(ctx, caller.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ProfileResponse `json:"body"`
		}{Body: mapProfiles(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-profile",
		Method:      http.MethodDelete,
		Path:        "/profiles/{id}",
		Summary:     "Delete a profile",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if caller.Role != domain.RoleRequester {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "only a requester may manage profiles", nil)
		}
		if err := e.Repo.DeleteProfile(ctx, caller.ActorID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerRoster(api huma.API, e workflow.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-specialists",
		Method:      http.MethodGet,
		Path:        "/specialists",
		Summary:     "List assignment candidates",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []IdentityResponse `json:"body"`
	}, error) {
		if _, authErr := callerFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.ListSpecialists(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []IdentityResponse `json:"body"`
		}{Body: mapIdentities(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-identity",
		Method:        http.MethodPost,
		Path:          "/identities",
		Summary:       "Register or update a roster identity",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body RegisterIdentityRequest `json:"body"`
	}) (*struct {
		Body IdentityResponse `json:"body"`
	}, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if caller.Role != domain.RoleSupervisor {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "only a supervisor may manage the roster", nil)
		}
		if input.Body.ID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "id is required", map[string]any{"field": "id"})
		}
		role := domain.Role(input.Body.Role)
		if !role.Valid() {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "role must be requester, specialist, or supervisor", map[string]any{"field": "role"})
		}
		ident := domain.Identity{
			ID:        input.Body.ID,
			Role:      role,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if input.Body.FullName != nil {
			ident.FullName = *input.Body.FullName
		}
		if input.Body.Email != nil {
			ident.Email = *input.Body.Email
		}
		if err := e.Repo.UpsertIdentity(ctx, ident); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IdentityResponse `json:"body"`
		}{Body: identityResponse(ident)}, nil
	})
}
