// Package devapi is an in-memory implementation of the academy REST API for
// local development and end-to-end tests of the console.
package devapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"academydesk/internal/dispatch"
	"academydesk/internal/validate"
)

const (
	basePath              = "/api"
	defaultMaxUploadBytes = 10 << 20
)

// Config for the HTTP API handler.
type Config struct {
	Data           *Memory
	Auth           AuthConfig
	Logger         *zap.Logger
	Registry       *prometheus.Registry
	Validator      *validate.Validator
	MaxUploadBytes int64
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"invalid input: phone: phone must be 10 characters in length"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope {"error":{"code","message"}}.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

type server struct {
	data      *Memory
	auth      AuthConfig
	log       *zap.Logger
	validate  *validate.Validator
	maxUpload int64
}

// New returns an HTTP handler exposing the academy API under /api and
// Prometheus metrics under /metrics.
func New(cfg Config) (http.Handler, error) {
	if cfg.Data == nil {
		return nil, errors.New("devapi: data is required")
	}
	s := &server{
		data:      cfg.Data,
		auth:      cfg.Auth,
		log:       cfg.Logger,
		validate:  cfg.Validator,
		maxUpload: cfg.MaxUploadBytes,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.validate == nil {
		s.validate = validate.New()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUploadBytes
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "devapi",
		Name:      "requests_total",
		Help:      "HTTP requests served by the development API.",
	}, []string{"method", "route", "code"})
	if err := reg.Register(requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		requests = are.ExistingCollector.(*prometheus.CounterVec)
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, errorDetails(errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// Schema validation failures are plain bad requests here.
			status = http.StatusBadRequest
		}
		return newAPIError(status, "", msg, errorDetails(errs))
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.accessLog(requests))
	router.Use(newAuthMiddleware(basePath+"/", map[string]bool{
		basePath + "/health":       true,
		basePath + "/auth/login":   true,
		basePath + "/openapi.json": true,
		basePath + "/openapi.yaml": true,
	}, s.auth))

	hcfg := huma.DefaultConfig("Academy development API", "1.0.0")
	hcfg.OpenAPIPath = basePath + "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	s.registerAuth(group)
	s.registerRecords(group)
	s.registerMaterials(group)
	router.Post(basePath+"/data/students/import", s.importStudents)
	router.Post(basePath+"/materials/upload", s.upload)
	router.Get(basePath+"/materials/files/{id}/content", s.download)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
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

func errorDetails(errs []error) map[string]any {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	return map[string]any{"errors": msgs}
}

// handleError maps domain failures onto the error envelope.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if verr, ok := validate.As(err); ok {
		return newAPIError(http.StatusBadRequest, "validation_failed", verr.Error(), map[string]any{"fields": verr.Fields})
	}
	if errors.Is(err, ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, errWrongPassword) {
		// Not a 401/403: the console signs out on those.
		return newAPIError(http.StatusBadRequest, "wrong_password", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// accessLog counts and logs every request by its route pattern.
func (s *server) accessLog(requests *prometheus.CounterVec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", r.Header.Get(dispatch.RequestIDHeader)),
			}
			if status >= http.StatusInternalServerError {
				s.log.Error("request failed", fields...)
				return
			}
			s.log.Debug("request", fields...)
		})
	}
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
