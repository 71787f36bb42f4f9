// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's game (creates or reuses a session)
//   - POST /daily/guess       → score a guess against today's code
//   - GET  /daily/leaderboard → top 20 results for today (or ?date=YYYY-MM-DD)
//
// Everyone gets the same code each day, derived from the date and DAILY_SALT
// under the default preset. Each player plays once per day: the DB holds
// finished wins, the in-memory session covers the game in progress.

package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/internal/daily"
	"github.com/robalobadob/mastermind/internal/game"
	"github.com/robalobadob/mastermind/internal/rules"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	mu       sync.Mutex               // guards sessions and each session's game
	sessions map[string]*dailySession // keyed by owner|date
}

// dailySession is an in-progress daily game.
type dailySession struct {
	Date        string
	SecretIndex int
	Start       time.Time
	Game        *game.Game
}

func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.Game.DailySalt,
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// today returns the date key, the preset, today's secret, and its index.
func (d *dailyServer) today() (string, rules.Rules, game.Code, int, error) {
	now := time.Now().UTC()
	rl, err := rules.Get(d.srv.presetOrDefault(""))
	if err != nil {
		return "", rules.Rules{}, nil, 0, err
	}
	secret, idx := daily.SecretFor(now, d.salt, rl)
	return daily.DateKey(now), rl, secret, idx, nil
}

type dailyNewRes struct {
	GameID string      `json:"gameId"`
	Date   string      `json:"date"`
	Played bool        `json:"played"`
	Rules  rules.Rules `json:"rules"`
}

// handleNew creates or reuses today's session.
// A player with a stored result for today gets Played=true and no game.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.srv.ownerID(w, r)
	date, rl, secret, idx, err := d.today()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err == nil && played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true, Rules: rl})
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	if sess, ok := d.sessions[key]; ok {
		writeJSON(w, http.StatusOK, dailyNewRes{GameID: sess.Game.ID, Date: date, Rules: rl})
		return
	}
	g, err := rl.NewGame(secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	d.sessions[key] = &dailySession{Date: date, SecretIndex: idx, Start: time.Now(), Game: g}
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: g.ID, Date: date, Rules: rl})
}

type dailyGuessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

type dailyGuessRes struct {
	Score   game.Score `json:"score"`
	State   string     `json:"state"` // in_progress | won | lost | locked
	Guesses int        `json:"guesses"`
}

// handleGuess scores a guess for today's session and stores a win.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	uid := d.srv.ownerID(w, r)

	var p dailyGuessReq
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	date, rl, _, _, err := d.today()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	guess, err := rl.ParseCode(p.Guess)
	if p.GameID == "" || err != nil {
		writeError(w, http.StatusBadRequest, "invalid")
		return
	}

	d.mu.Lock()
	sess, ok := d.sessions[uid+"|"+date]
	if !ok || sess.Game.ID != p.GameID {
		d.mu.Unlock()
		writeError(w, http.StatusConflict, "no session")
		return
	}
	if sess.Game.Finished {
		n := len(sess.Game.Guesses)
		d.mu.Unlock()
		writeJSON(w, http.StatusOK, dailyGuessRes{State: "locked", Guesses: n})
		return
	}
	sc, state, err := sess.Game.ApplyGuess(guess)
	n := len(sess.Game.Guesses)
	d.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch state {
	case game.StateWon:
		if err := d.store.InsertResult(r.Context(), daily.Result{
			PlayerID:    uid,
			Date:        date,
			Preset:      rl.Name,
			SecretIndex: sess.SecretIndex,
			Guesses:     n,
			ElapsedMs:   int(time.Since(sess.Start).Milliseconds()),
		}); err != nil {
			log.Warn().Err(err).Str("player", uid).Msg("insert daily result")
		}
	case game.StatePlaying:
		state = "in_progress"
	}
	writeJSON(w, http.StatusOK, dailyGuessRes{Score: sc, State: state, Guesses: n})
}

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for ?date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
