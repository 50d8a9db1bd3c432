package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/deskpet/internal/geom"
	"github.com/nidhogg/deskpet/internal/mode"
	"github.com/nidhogg/deskpet/internal/motion"
	"github.com/nidhogg/deskpet/internal/orchestrator"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/world"
	"go.uber.org/zap"
)

// History returns recently emitted surface events, oldest first.
type History interface {
	Recent(ctx context.Context, n int64) ([]surface.Event, error)
}

// Handler holds dependencies for HTTP handlers. Every engine call is
// marshalled onto the scheduler's timeline.
type Handler struct {
	sched   *world.Scheduler
	engine  *orchestrator.Engine
	viewers http.Handler
	history History
	sinks   func() []string
	logger  *zap.Logger
}

// Option configures optional Handler dependencies.
type Option func(*Handler)

// WithViewers mounts the live event stream at /ws.
func WithViewers(h http.Handler) Option {
	return func(hd *Handler) { hd.viewers = h }
}

// WithHistory serves recent events at /api/events.
func WithHistory(h History) Option {
	return func(hd *Handler) { hd.history = h }
}

// WithSinks reports the registered event sinks in the health check.
func WithSinks(fn func() []string) Option {
	return func(hd *Handler) { hd.sinks = fn }
}

// NewHandler creates a new API handler.
func NewHandler(sched *world.Scheduler, engine *orchestrator.Engine, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{sched: sched, engine: engine, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/status", h.status)
		r.Put("/mode", h.setMode)
		r.Post("/animation/next", h.nextAnimation)
		r.Get("/clones", h.listClones)
		r.Get("/events", h.recentEvents)

		r.Route("/agents/primary", func(r chi.Router) {
			r.Get("/", h.getPrimary)
			r.Post("/grab", h.grab)
			r.Post("/drag", h.drag)
			r.Post("/release", h.release)
		})
	})

	if h.viewers != nil {
		r.Handle("/ws", h.viewers)
	}
	return r
}

// onTimeline runs fn between ticks. It fails only when the request goes away
// before the timeline gets to it.
func (h *Handler) onTimeline(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := h.sched.Do(r.Context(), fn); err != nil {
		h.logger.Warn("timeline call abandoned", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "pet is busy")
		return false
	}
	return true
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "pet": "deskpet"}
	if h.sinks != nil {
		body["sinks"] = h.sinks()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	var st orchestrator.Status
	if h.onTimeline(w, r, func() { st = h.engine.Status() }) {
		writeJSON(w, http.StatusOK, st)
	}
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	m, err := mode.Parse(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var changed bool
	if h.onTimeline(w, r, func() { changed = h.engine.SetMode(m) }) {
		writeJSON(w, http.StatusOK, map[string]any{"mode": m, "changed": changed})
	}
}

func (h *Handler) nextAnimation(w http.ResponseWriter, r *http.Request) {
	var id string
	if !h.onTimeline(w, r, func() { id = h.engine.NextAnimation() }) {
		return
	}
	if id == "" {
		writeError(w, http.StatusNotFound, "pet not started")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sprite": id})
}

func (h *Handler) listClones(w http.ResponseWriter, r *http.Request) {
	var clones []orchestrator.CloneStatus
	if h.onTimeline(w, r, func() { clones = h.engine.Clones() }) {
		if clones == nil {
			clones = []orchestrator.CloneStatus{}
		}
		writeJSON(w, http.StatusOK, clones)
	}
}

func (h *Handler) recentEvents(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "event history not configured")
		return
	}
	n := int64(50)
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v <= 0 || v > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		n = v
	}
	events, err := h.history.Recent(r.Context(), n)
	if err != nil {
		h.logger.Error("read event history", zap.Error(err))
		writeError(w, http.StatusBadGateway, "event history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) getPrimary(w http.ResponseWriter, r *http.Request) {
	var (
		snap motion.Snapshot
		ok   bool
	)
	if !h.onTimeline(w, r, func() { snap, ok = h.engine.Primary() }) {
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "pet not started")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) grab(w http.ResponseWriter, r *http.Request) {
	var snap motion.Snapshot
	if h.onTimeline(w, r, func() {
		h.engine.Grab()
		snap, _ = h.engine.Primary()
	}) {
		writeJSON(w, http.StatusOK, snap)
	}
}

func (h *Handler) drag(w http.ResponseWriter, r *http.Request) {
	var p geom.Point
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var snap motion.Snapshot
	if !h.onTimeline(w, r, func() {
		h.engine.DragTo(p)
		snap, _ = h.engine.Primary()
	}) {
		return
	}
	if snap.State != motion.StateUserHeld {
		writeError(w, http.StatusConflict, "pet is not being held")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	var (
		tr motion.Transition
		ok bool
	)
	if !h.onTimeline(w, r, func() { tr, ok = h.engine.Release() }) {
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "pet is not being held")
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
