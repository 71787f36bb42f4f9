// internal/httpserver/routes_solver.go
//
// Solver sessions for an outside harness: the client holds the secret,
// reports each score, and receives the next guess.
//   - POST   /solver/new        → create a session for a preset and strategy
//   - POST   /solver/turn       → feed a percept, get the next guess
//   - DELETE /solver/{id}       → drop a session

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/internal/game"
	"github.com/robalobadob/mastermind/internal/rules"
	"github.com/robalobadob/mastermind/internal/solver"
	"github.com/robalobadob/mastermind/internal/store"
)

func (s *Server) mountSolver(r chi.Router) {
	r.Route("/solver", func(r chi.Router) {
		r.Post("/new", s.handleSolverNew)
		r.Post("/turn", s.handleSolverTurn)
		r.Delete("/{sessionId}", s.handleSolverDelete)
	})
}

type solverNewReq struct {
	Preset   string `json:"preset"`
	Strategy string `json:"strategy"`
}

type solverNewRes struct {
	SessionID string      `json:"sessionId"`
	Strategy  string      `json:"strategy"`
	Rules     rules.Rules `json:"rules"`
}

func (s *Server) handleSolverNew(w http.ResponseWriter, r *http.Request) {
	var req solverNewReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	rl, err := rules.Get(s.presetOrDefault(req.Preset))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	strategy, err := s.strategyOrDefault(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := solver.New(solver.Config{
		CodeLength: rl.CodeLength,
		Colours:    rl.Colours,
		NumGuesses: rl.MaxGuesses,
		Strategy:   strategy,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := genID()
	_ = s.sessions.Save(r.Context(), id, &liveSession{rules: rl, sess: sess})
	LiveSessions.Set(float64(s.sessions.Len()))
	writeJSON(w, http.StatusOK, solverNewRes{SessionID: id, Strategy: strategy.Name(), Rules: rl})
}

type solverTurnReq struct {
	SessionID  string `json:"sessionId"`
	GuessCount int    `json:"guessCount"`
	LastGuess  string `json:"lastGuess"`
	InPlace    int    `json:"inPlace"`
	InColour   int    `json:"inColour"`
}

type solverTurnRes struct {
	Guess     game.Code    `json:"guess,omitempty"`
	Remaining int          `json:"remaining"`
	State     solver.State `json:"state"`
	Error     string       `json:"error,omitempty"`
}

// handleSolverTurn maps session outcomes onto statuses:
// a next guess or a finished game is 200, a malformed percept 400, and
// contradictory feedback (no code fits) 422.
func (s *Server) handleSolverTurn(w http.ResponseWriter, r *http.Request) {
	var req solverTurnReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	ls, err := s.sessions.Get(r.Context(), req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var last game.Code
	if req.GuessCount > 0 {
		if last, err = ls.rules.ParseCode(req.LastGuess); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	p, err := solver.NewPercept(req.GuessCount, last, req.InPlace, req.InColour, ls.rules.CodeLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ls.mu.Lock()
	guess, err := ls.sess.Turn(r.Context(), p)
	res := solverTurnRes{Guess: guess, Remaining: ls.sess.Remaining(), State: ls.sess.State()}
	strategy := ls.sess.Config().Strategy.Name()
	ls.mu.Unlock()

	SolverTurns.WithLabelValues(strategy, res.State.String()).Inc()
	switch {
	case err == nil, errors.Is(err, solver.ErrGameOver):
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, solver.ErrInvalidPercept):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, solver.ErrNoConsistentCandidates):
		res.Error = err.Error()
		writeJSON(w, http.StatusUnprocessableEntity, res)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "timeout")
	default:
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("solver turn")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleSolverDelete(w http.ResponseWriter, r *http.Request) {
	_ = s.sessions.Delete(r.Context(), chi.URLParam(r, "sessionId"))
	LiveSessions.Set(float64(s.sessions.Len()))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
