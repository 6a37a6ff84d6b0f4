package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/webitel/reactor-plant/internal/plant"
	"github.com/webitel/reactor-plant/internal/store"
)

// AdminServer exposes plant introspection over chi-routed JSON endpoints,
// replacing the generated-protobuf gRPC admin surface the teacher's
// buf/contact_gen.go implies: no protoc/buf pipeline was available to
// regenerate against this domain (see DESIGN.md), so the admin surface is
// hand-routed JSON instead of a fabricated generated client.
type AdminServer struct {
	addr   string
	plant  *plant.Plant
	logger *slog.Logger
	store  *store.Store
	srv    *http.Server
}

// NewAdminServer builds (but does not start) the admin HTTP server. store
// may be nil, in which case operator-set pool sizes are not persisted
// across restarts.
func NewAdminServer(addr string, p *plant.Plant, logger *slog.Logger, st *store.Store) *AdminServer {
	s := &AdminServer{addr: addr, plant: p, logger: logger, store: st}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Get("/healthz", s.handleHealth)
	r.Get("/reactions", s.handleReactions)
	r.Get("/pools", s.handlePools)
	r.Put("/pools/{name}", s.handleSetPoolSize)

	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

// Start runs the server; callers should invoke it on its own goroutine.
func (s *AdminServer) Start() {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("ADMIN_HTTP_FAILED", "err", err)
	}
}

// Shutdown gracefully drains the server.
func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.plant.Running(),
		"time":    time.Now(),
	})
}

type reactionView struct {
	ID          uint64 `json:"id"`
	Label       string `json:"label"`
	Enabled     bool   `json:"enabled"`
	ActiveTasks int64  `json:"active_tasks"`
}

func (s *AdminServer) handleReactions(w http.ResponseWriter, r *http.Request) {
	reactions := s.plant.Reactions()
	out := make([]reactionView, 0, len(reactions))
	for _, reaction := range reactions {
		out = append(out, reactionView{
			ID:          reaction.ID(),
			Label:       reaction.Label(),
			Enabled:     reaction.Enabled(),
			ActiveTasks: reaction.ActiveTasks(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type poolView struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	QueueDepth int    `json:"queue_depth"`
}

func (s *AdminServer) handlePools(w http.ResponseWriter, r *http.Request) {
	pools := s.plant.Pools()
	out := make([]poolView, 0, len(pools))
	for _, pool := range pools {
		out = append(out, poolView{ID: uint32(pool.ID()), Name: pool.Name(), QueueDepth: pool.QueueDepth()})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSetPoolSize persists the operator's requested concurrency for a
// named pool so it takes effect on the *next* restart (PoolByName decides
// a pool's worker count only the first time it is requested, and this
// runtime does not support live worker resizing).
func (s *AdminServer) handleSetPoolSize(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body struct {
		Concurrency int `json:"concurrency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Concurrency < 1 {
		http.Error(w, "concurrency must be >= 1", http.StatusBadRequest)
		return
	}
	if s.store == nil {
		http.Error(w, "pool size persistence is disabled", http.StatusServiceUnavailable)
		return
	}
	cfg := store.PoolConfig{Name: name, Concurrency: body.Concurrency}
	if err := s.store.SavePoolConfig(cfg); err != nil {
		s.logger.Error("ADMIN_POOL_CONFIG_SAVE_FAILED", "err", err, "pool", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, cfg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
