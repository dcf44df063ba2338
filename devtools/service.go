// Package devtools serves the state of the latest build over HTTP for local
// tooling: the route tree, the build status and the generated artifacts.
//
//	svc := devtools.New(logger)
//	svc.SetResult(res, time.Since(start))
//	http.ListenAndServe("localhost:7070", svc.Handler())
package devtools

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/automatique/autoapi"
	"github.com/automatique/autoapi/apierr"
	"github.com/automatique/autoapi/middleware"
)

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// Build states reported by GET /api/status.
const (
	StatePending  = "pending"
	StateBuilding = "building"
	StateOK       = "ok"
	StateError    = "error"
)

// Status is the response of GET /api/status.
type Status struct {
	State    string        `json:"status"`
	Routes   int           `json:"routes"`
	BuiltAt  *time.Time    `json:"builtAt,omitempty"`
	Duration string        `json:"duration,omitempty"`
	Error    *apierr.Error `json:"error,omitempty"`
	Builds   int           `json:"builds"`
}

// Service holds the latest build and serves it.
type Service struct {
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	result *autoapi.Result
	status Status
}

// New creates a Service with no build yet.
func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger: logger,
		now:    time.Now,
		status: Status{State: StatePending},
	}
}

// SetBuilding marks a rebuild in progress. The previous result stays
// available until the rebuild finishes.
func (s *Service) SetBuilding() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = StateBuilding
}

// SetResult records a successful build.
func (s *Service) SetResult(res *autoapi.Result, took time.Duration) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
	s.status = Status{
		State:    StateOK,
		Routes:   len(res.Routes.Records()),
		BuiltAt:  &now,
		Duration: took.Round(time.Millisecond).String(),
		Builds:   s.status.Builds + 1,
	}
}

// SetError records a failed build. The last good result is dropped so that
// clients never read artifacts that disagree with the source.
func (s *Service) SetError(err error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
	s.status = Status{
		State:   StateError,
		BuiltAt: &now,
		Error:   apierr.From(err),
		Builds:  s.status.Builds + 1,
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.CORS(nil))
	r.Get("/api/status", s.getStatus)
	r.Get("/api/routes", s.getRoutes)
	r.Get("/api/artifacts/{name}", s.getArtifact)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, apierr.Errorf(apierr.CodeFileNotFound, "No such endpoint %s", r.URL.Path))
	})
	return r
}

func (s *Service) getStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	code := http.StatusOK
	if st.Error != nil {
		code = st.Error.Code.HTTPStatus()
	}
	s.writeJSON(w, code, st)
}

// RoutesQuery filters GET /api/routes.
type RoutesQuery struct {
	Method string `schema:"method" validate:"omitempty,oneof=get post GET POST"`
	Prefix string `schema:"prefix" validate:"omitempty,startswith=/"`
}

// RoutesList is the response of a filtered GET /api/routes.
type RoutesList struct {
	Routes []*autoapi.RouteRecord `json:"routes"`
}

func (s *Service) getRoutes(w http.ResponseWriter, r *http.Request) {
	var q RoutesQuery
	if err := schemaDecoder.Decode(&q, r.URL.Query()); err != nil {
		s.writeError(w, apierr.Wrap(apierr.CodeInvalidOptions, err, "Invalid query: "+err.Error()))
		return
	}
	if err := validate.Struct(&q); err != nil {
		s.writeError(w, apierr.From(err))
		return
	}

	res, unavailable := s.current()
	if unavailable != nil {
		s.writeError(w, unavailable)
		return
	}
	if q.Method == "" && q.Prefix == "" {
		s.writeJSON(w, http.StatusOK, res.Routes)
		return
	}

	list := RoutesList{Routes: []*autoapi.RouteRecord{}}
	for _, rec := range res.Routes.Records() {
		if q.Method != "" && !strings.EqualFold(string(rec.Method), q.Method) {
			continue
		}
		if q.Prefix != "" && !hasPathPrefix(rec.Path, q.Prefix) {
			continue
		}
		list.Routes = append(list.Routes, rec)
	}
	s.writeJSON(w, http.StatusOK, list)
}

// hasPathPrefix matches whole segments: "/math" matches "/math/square" but
// not "/mathematics".
func hasPathPrefix(p, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/")
}

func (s *Service) getArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res, unavailable := s.current()
	if unavailable != nil {
		s.writeError(w, unavailable)
		return
	}
	a, ok, err := res.Artifact(name)
	if err != nil {
		s.writeError(w, apierr.Wrap(apierr.CodeInternal, err, "render artifacts"))
		return
	}
	if !ok {
		s.writeError(w, apierr.Errorf(apierr.CodeFileNotFound, "No artifact named %s", name).
			WithDetail("name", name))
		return
	}
	w.Header().Set("Content-Type", contentType(a.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(a.Content)
}

func contentType(name string) string {
	switch ext := path.Ext(name); ext {
	case ".ts", ".js":
		return "text/plain; charset=utf-8"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}

// current returns the latest good result, or the error describing why there
// is none.
func (s *Service) current() (*autoapi.Result, *apierr.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result != nil {
		return s.result, nil
	}
	if s.status.Error != nil {
		return nil, s.status.Error
	}
	return nil, apierr.New(apierr.CodeUnavailable, "No build has completed yet")
}

func (s *Service) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	var e *apierr.Error
	if !errors.As(err, &e) {
		e = apierr.From(err)
	}
	s.writeJSON(w, e.Code.HTTPStatus(), e)
}
