package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"event-validation-service/internal/models"
	"event-validation-service/internal/observability/metrics"
	"event-validation-service/internal/schema"
	"event-validation-service/internal/schema/store"
)

const maxBodySize = 1 << 20

// Validator checks one event.
type Validator interface {
	Validate(ctx context.Context, ev *models.Event) (*schema.Result, error)
}

// Deps are the collaborators behind the HTTP API. Lister and Registry are
// optional: without a Registry, schema uploads are refused.
type Deps struct {
	Validator Validator
	Schemas   schema.Lookup
	Lister    store.Lister
	Registry  store.Registry
	Ready     func() bool
}

type handler struct {
	deps Deps
	now  func() time.Time
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	h := &handler{deps: deps, now: time.Now}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.AccessHandler(accessLog(metrics.DefaultMetrics)))
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", h.readiness)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events:validate", h.validate)
		r.Get("/schemas", h.listSchemas)
		r.Get("/schemas/{name}/versions/{version}", h.getSchema)
		r.Put("/schemas/{name}/versions/{version}", h.putSchema)
	})

	return r
}

func accessLog(m *metrics.Metrics) func(r *http.Request, status, size int, duration time.Duration) {
	return func(r *http.Request, status, size int, duration time.Duration) {
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.RecordRequest("http", r.Method+" "+route, strconv.Itoa(status), duration.Seconds())
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	}
}

func (h *handler) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.deps.Ready != nil && !h.deps.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *handler) validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var ev models.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if ev.Name == "" {
		writeError(w, http.StatusBadRequest, "event name is required")
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	res, err := h.deps.Validator.Validate(r.Context(), &ev)
	if err != nil {
		handleLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Report(&ev, h.now()))
}

type schemaKey struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

func (h *handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	if h.deps.Lister == nil {
		writeJSON(w, http.StatusOK, map[string]any{"schemas": []schemaKey{}})
		return
	}
	keys, err := h.deps.Lister.List(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list schemas failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]schemaKey, len(keys))
	for i, k := range keys {
		out[i] = schemaKey{Name: k.Name, Version: k.Version}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": out})
}

func (h *handler) getSchema(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}
	doc, err := h.deps.Schemas.Get(r.Context(), key)
	if err != nil {
		handleLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *handler) putSchema(w http.ResponseWriter, r *http.Request) {
	if h.deps.Registry == nil {
		writeError(w, http.StatusMethodNotAllowed, "schema registry is read-only")
		return
	}
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := store.Lint(raw); err != nil {
		var le *store.LintError
		if errors.As(err, &le) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid schema document", "problems": le.Problems})
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("lint failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	doc, err := schema.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if declared := (schema.Key{Name: doc.Event.Name, Version: doc.Event.Version}); declared != key {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("document declares %s, expected %s", declared, key))
		return
	}

	if err := h.deps.Registry.Put(r.Context(), key, raw); err != nil {
		if errors.Is(err, store.ErrSchemaExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		hlog.FromRequest(r).Error().Err(err).Str("schema", key.String()).Msg("register schema failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	hlog.FromRequest(r).Info().Str("schema", key.String()).Msg("schema registered")
	writeJSON(w, http.StatusCreated, schemaKey{Name: key.Name, Version: key.Version})
}

func keyParam(w http.ResponseWriter, r *http.Request) (schema.Key, bool) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 0 {
		writeError(w, http.StatusBadRequest, "version must be a non-negative integer")
		return schema.Key{}, false
	}
	return schema.Key{Name: chi.URLParam(r, "name"), Version: version}, true
}

func handleLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, schema.ErrSchemaNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("schema lookup failed")
	writeError(w, http.StatusServiceUnavailable, "schema lookup failed")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Msg("encode json response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
