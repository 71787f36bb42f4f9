// internal/httpserver/routes_game.go
//
// Harness game endpoints (optional auth):
//   - POST /game/new   → start a game under a preset, optionally with a fixed secret
//   - POST /game/guess → score a guess
//   - POST /game/solve → let the solver play a fresh game to the end
//
// Games live in memory; a row in the games table tracks owner, progress, and
// outcome for history and player stats. The secret is never stored in the DB.

package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/internal/game"
	"github.com/robalobadob/mastermind/internal/rules"
	"github.com/robalobadob/mastermind/internal/simulate"
	"github.com/robalobadob/mastermind/internal/solver"
	"github.com/robalobadob/mastermind/internal/store"
)

func (s *Server) mountGame(r chi.Router) {
	r.Route("/game", func(r chi.Router) {
		r.Post("/new", s.handleNewGame)
		r.Post("/guess", s.handleGuess)
		r.Post("/solve", s.handleSolve)
	})
}

type newGameReq struct {
	Preset string `json:"preset"`
	Secret string `json:"secret"` // optional fixed secret (testing)
}

type newGameRes struct {
	GameID string      `json:"gameId"`
	Rules  rules.Rules `json:"rules"`
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	rl, err := rules.Get(s.presetOrDefault(req.Preset))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var secret game.Code
	if req.Secret != "" {
		if secret, err = rl.ParseCode(req.Secret); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	g, err := rl.NewGame(secret)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.games.Save(r.Context(), g.ID, &liveGame{rules: rl, game: g}); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if me := playerFrom(r.Context()); me != nil {
		_, err = s.db.ExecContext(r.Context(),
			`INSERT INTO games (id, player_id, preset, started_at) VALUES (?,?,?,?)`, g.ID, me.ID, rl.Name, now)
	} else {
		_, err = s.db.ExecContext(r.Context(),
			`INSERT INTO games (id, anonymous_id, preset, started_at) VALUES (?,?,?,?)`, g.ID, s.ensureAnonID(w, r), rl.Name, now)
	}
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}

	writeJSON(w, http.StatusOK, newGameRes{GameID: g.ID, Rules: rl})
}

type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

type guessRes struct {
	Score   game.Score `json:"score"`
	State   string     `json:"state"` // playing | won | lost
	Guesses int        `json:"guesses"`
	Secret  game.Code  `json:"secret,omitempty"` // revealed once the game is over
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	lg, ok := s.liveGame(w, r, req.GameID)
	if !ok {
		return
	}
	guess, err := lg.rules.ParseCode(req.Guess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lg.mu.Lock()
	sc, state, err := lg.game.ApplyGuess(guess)
	res := guessRes{Score: sc, State: state, Guesses: len(lg.game.Guesses)}
	if lg.game.Finished {
		res.Secret = lg.game.Secret
	}
	lg.mu.Unlock()
	if errors.Is(err, game.ErrGameFinished) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.recordProgress(w, r, req.GameID, res.Guesses, state, true)
	writeJSON(w, http.StatusOK, res)
}

type solveReq struct {
	GameID   string `json:"gameId"`
	Strategy string `json:"strategy"`
}

type solveStep struct {
	Guess game.Code  `json:"guess"`
	Score game.Score `json:"score"`
}

type solveRes struct {
	Strategy string       `json:"strategy"`
	Steps    []solveStep  `json:"steps"`
	State    string       `json:"state"`
	Outcome  solver.State `json:"outcome"`
	Secret   game.Code    `json:"secret"`
}

// handleSolve plays the solver against a stored game. The session always
// opens at guess one, so games that already have guesses are rejected.
// Solver-played games do not count towards player stats.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	strategy, err := s.strategyOrDefault(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lg, ok := s.liveGame(w, r, req.GameID)
	if !ok {
		return
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()
	if len(lg.game.Guesses) > 0 || lg.game.Finished {
		writeError(w, http.StatusConflict, "game_in_progress")
		return
	}
	sess, err := solver.New(solver.Config{
		CodeLength: lg.rules.CodeLength,
		Colours:    lg.rules.Colours,
		NumGuesses: lg.rules.MaxGuesses,
		Strategy:   strategy,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	played, err := simulate.Drive(r.Context(), lg.game, sess)
	if err != nil && !errors.Is(err, solver.ErrNoConsistentCandidates) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	res := solveRes{
		Strategy: strategy.Name(),
		Steps:    make([]solveStep, len(played.Guesses)),
		State:    lg.game.State(),
		Outcome:  played.Outcome,
		Secret:   lg.game.Secret,
	}
	for i := range played.Guesses {
		res.Steps[i] = solveStep{Guess: played.Guesses[i], Score: played.Scores[i]}
	}
	s.recordProgress(w, r, req.GameID, len(played.Guesses), lg.game.State(), false)
	writeJSON(w, http.StatusOK, res)
}

// liveGame looks up a game, writing a 404 when it is missing.
func (s *Server) liveGame(w http.ResponseWriter, r *http.Request, id string) (*liveGame, bool) {
	lg, err := s.games.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return lg, true
}

// recordProgress mirrors a game's progress into the games table and, for
// finished games played by a signed-in player, bumps their stats.
// Failures are logged and never fail the request.
func (s *Server) recordProgress(w http.ResponseWriter, r *http.Request, gameID string, guesses int, state string, countStats bool) {
	ctx := r.Context()
	me := playerFrom(ctx)
	ownerClause, ownerArg := `anonymous_id=?`, any(nil)
	if me != nil {
		ownerClause, ownerArg = `player_id=?`, me.ID
	} else {
		ownerArg = s.ensureAnonID(w, r)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin progress tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	status := state
	if !countStats && state != game.StatePlaying {
		status = "solver_" + state
	}
	if _, err := tx.ExecContext(ctx, `UPDATE games SET guesses=? WHERE id=? AND `+ownerClause, guesses, gameID, ownerArg); err != nil {
		log.Warn().Err(err).Msg("update guesses")
	}
	if state != game.StatePlaying {
		if _, err := tx.ExecContext(ctx, `UPDATE games SET status=?, finished_at=? WHERE id=? AND `+ownerClause,
			status, time.Now().UTC().Format(time.RFC3339), gameID, ownerArg); err != nil {
			log.Warn().Err(err).Msg("finish game")
		}
		if me != nil && countStats {
			if err := bumpStats(ctx, tx, me.ID, state == game.StateWon); err != nil {
				log.Warn().Err(err).Str("player", me.ID).Msg("bump stats")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit progress")
	}
}
