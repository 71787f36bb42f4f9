// internal/httpserver/server.go
//
// HTTP server wiring for the Mastermind backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, metrics).
//   - Public endpoints: "/", "/health", "/metrics", "/rules".
//   - Harness games (optional auth): /game/new, /game/guess, /game/solve.
//   - Solver sessions driven by an outside harness: /solver/new, /solver/turn.
//   - Batch simulations: /simulate, /simulate/runs.
//   - Daily challenge (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - Live games and solver sessions are held in memory; each carries its own
//     mutex because a Session is not safe for concurrent use.
//   - CORS is origin-aware and credentials-enabled (so cookies work).

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/mastermind/internal/config"
	"github.com/robalobadob/mastermind/internal/game"
	"github.com/robalobadob/mastermind/internal/rules"
	"github.com/robalobadob/mastermind/internal/simulate"
	"github.com/robalobadob/mastermind/internal/solver"
	"github.com/robalobadob/mastermind/internal/store"
)

// Server bundles the router, live state, and DB handle.
type Server struct {
	r        *chi.Mux
	cfg      *config.Config
	db       *sql.DB
	games    store.Store[*liveGame]
	sessions store.Store[*liveSession]
	sims     *simulate.Store
}

// liveGame is a harness game in play.
type liveGame struct {
	mu    sync.Mutex
	rules rules.Rules
	game  *game.Game
}

// liveSession is a solver session driven over HTTP.
type liveSession struct {
	mu    sync.Mutex
	rules rules.Rules
	sess  *solver.Session
}

// New constructs a Server, installs middleware, and registers routes.
// rules.Init must have run before requests arrive.
func New(cfg *config.Config, db *sql.DB) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg,
		db:       db,
		games:    store.NewMemoryStore[*liveGame](),
		sessions: store.NewMemoryStore[*liveSession](),
		sims:     simulate.NewStore(db),
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(cfg.Server.Timeout))
	s.r.Use(instrument)
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "mastermind-go",
			"endpoints": []string{
				"/health", "/metrics", "/rules",
				"POST /game/new", "POST /game/guess", "POST /game/solve",
				"POST /solver/new", "POST /solver/turn",
				"POST /simulate", "/simulate/runs", "/daily/*", "/auth/*",
			},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Handle("/metrics", promhttp.Handler())
	s.r.Get("/rules", s.handleRules)

	optional := s.r.With(s.withOptionalAuth())
	s.mountGame(optional)
	s.mountDaily(optional)
	s.mountSolver(s.r)
	s.mountSimulate(s.r)
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return s
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down http server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(sctx)
	})
	return eg.Wait()
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.Server.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- rules -------------------------------------

type rulesRes struct {
	Default    string        `json:"default"`
	Presets    []rules.Rules `json:"presets"`
	Strategies []string      `json:"strategies"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rulesRes{
		Default:    s.presetOrDefault(""),
		Presets:    rules.All(),
		Strategies: solver.StrategyNames(),
	})
}

// presetOrDefault falls back to the configured default preset.
func (s *Server) presetOrDefault(name string) string {
	if name != "" {
		return name
	}
	return s.cfg.Game.DefaultPreset
}

// strategyOrDefault resolves a strategy name, falling back to the configured one.
func (s *Server) strategyOrDefault(name string) (solver.Strategy, error) {
	if name == "" {
		name = s.cfg.Game.Strategy
	}
	return solver.StrategyByName(name)
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body; an empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
