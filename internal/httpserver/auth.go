// internal/httpserver/auth.go
//
// Player accounts and request identity.
//   - POST /auth/signup, /auth/login, /auth/logout; GET /auth/me.
//   - GET /stats/me, GET /games/mine (require auth).
//   - Optional-auth middleware for routes guests may use, plus the anonymous
//     cookie that ties guest games to a browser until the guest signs up.
//
// Tokens are HS256 JWTs carrying the player ID as subject. They are read
// from "Authorization: Bearer" first, then from the auth cookie.

package httpserver

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUsernameTaken = errors.New("username taken")
	errNoToken       = errors.New("no token")
)

// player is placed into request context by the auth middlewares.
type player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxPlayerKey struct{}

func playerFrom(ctx context.Context) *player {
	p, _ := ctx.Value(ctxPlayerKey{}).(*player)
	return p
}

// playerClaims is the token payload.
type playerClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuthRoutes registers authentication and gated profile routes.
func (s *Server) mountAuthRoutes() {
	s.r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuth()).Get("/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, playerFrom(r.Context()))
		})
	})

	gated := s.r.With(s.requireAuth())
	gated.Get("/stats/me", s.handleStats)
	gated.Get("/games/mine", s.handleMyGames)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	p, err := s.createPlayer(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, errUsernameTaken):
		writeError(w, http.StatusConflict, "Username taken")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.issueToken(w, p) {
		return
	}
	s.claimAnonGames(r.Context(), s.ensureAnonID(w, r), p.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"id": p.ID, "username": p.Username, "createdAt": p.CreatedAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	p, err := s.findPlayer(r.Context(), `lower(username)=lower(?)`, strings.TrimSpace(body.Username))
	if err != nil || bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !s.issueToken(w, p) {
		return
	}
	s.claimAnonGames(r.Context(), s.ensureAnonID(w, r), p.ID)
	writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "username": p.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, s.cfg.Auth.CookieName, "", time.Time{})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	me := playerFrom(r.Context())
	p, err := s.findPlayer(r.Context(), `id=?`, me.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          p.ID,
		"gamesPlayed": p.GamesPlayed,
		"wins":        p.Wins,
		"streak":      p.Streak,
	})
}

type gameRow struct {
	ID         string `json:"id"`
	Preset     string `json:"preset"`
	Status     string `json:"status"`
	Guesses    int    `json:"guesses"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	me := playerFrom(r.Context())
	rows, err := s.db.QueryContext(r.Context(),
		`SELECT id, preset, status, guesses, started_at, COALESCE(finished_at,'')
		 FROM games WHERE player_id=? ORDER BY started_at DESC LIMIT 50`, me.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	defer rows.Close()

	out := []gameRow{}
	for rows.Next() {
		var gr gameRow
		if err := rows.Scan(&gr.ID, &gr.Preset, &gr.Status, &gr.Guesses, &gr.StartedAt, &gr.FinishedAt); err != nil {
			log.Warn().Err(err).Msg("scan game row")
			continue
		}
		out = append(out, gr)
	}
	writeJSON(w, http.StatusOK, out)
}

// ----------------------------- middleware ----------------------------------

// withOptionalAuth attaches the player when a valid token is present.
// It never rejects; guests pass through.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, err := s.authenticate(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxPlayerKey{}, p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth rejects requests without a valid token for an existing player.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := s.authenticate(r)
			if errors.Is(err, errNoToken) {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxPlayerKey{}, p)))
		})
	}
}

// authenticate validates the request token and checks the player still exists.
func (s *Server) authenticate(r *http.Request) (*player, error) {
	raw := bearerOrCookie(r, s.cfg.Auth.CookieName)
	if raw == "" {
		return nil, errNoToken
	}
	var claims playerClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Auth.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token without subject")
	}
	p, err := s.findPlayer(r.Context(), `id=?`, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", claims.Subject, err)
	}
	return &player{ID: p.ID, Username: p.Username}, nil
}

// bearerOrCookie extracts a bearer token from the Authorization header or the auth cookie.
func bearerOrCookie(r *http.Request, cookie string) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookie); err == nil {
		return c.Value
	}
	return ""
}

// ------------------------------ tokens & cookies ---------------------------

// signToken creates an HS256 token for p that expires after the configured TTL.
func (s *Server) signToken(p *playerRow) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.cfg.Auth.TokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, playerClaims{
		Username: p.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString([]byte(s.cfg.Auth.JWTSecret))
	return ss, exp, err
}

// issueToken signs a token and sets the auth cookie. It writes the error
// response itself and reports false on failure.
func (s *Server) issueToken(w http.ResponseWriter, p *playerRow) bool {
	tok, exp, err := s.signToken(p)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.setCookie(w, s.cfg.Auth.CookieName, tok, exp)
	return true
}

// setCookie writes an HttpOnly cookie; a zero exp deletes it.
// Production cookies are Secure with SameSite=None so cross-site clients keep them.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Server.Production,
		SameSite: http.SameSiteLaxMode,
	}
	if s.cfg.Server.Production {
		c.SameSite = http.SameSiteNoneMode
	}
	if exp.IsZero() {
		c.MaxAge = -1
	} else {
		c.Expires = exp
	}
	http.SetCookie(w, c)
}

// ensureAnonID returns the guest cookie value, setting a fresh one if missing.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.cfg.Auth.AnonCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := genID()
	s.setCookie(w, s.cfg.Auth.AnonCookie, id, time.Now().Add(180*24*time.Hour))
	return id
}

// ownerID is the player ID when signed in, otherwise the guest cookie.
func (s *Server) ownerID(w http.ResponseWriter, r *http.Request) string {
	if me := playerFrom(r.Context()); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}

// claimAnonGames moves a guest's games onto the account that just authenticated.
func (s *Server) claimAnonGames(ctx context.Context, anonID, playerID string) {
	if anonID == "" || playerID == "" {
		return
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE games SET player_id=?, anonymous_id=NULL WHERE anonymous_id=?`, playerID, anonID); err != nil {
		log.Warn().Err(err).Msg("claim anon games")
	}
}

// --------------------------------- players ---------------------------------

// playerRow matches the players table.
type playerRow struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	GamesPlayed  int
	Wins         int
	Streak       int
}

func (s *Server) createPlayer(ctx context.Context, username, pw string) (*playerRow, error) {
	username = strings.TrimSpace(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	if _, err := s.findPlayer(ctx, `lower(username)=lower(?)`, username); err == nil {
		return nil, errUsernameTaken
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	p := &playerRow{ID: genID(), Username: username, PasswordHash: string(h), CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		p.ID, p.Username, p.PasswordHash, p.CreatedAt.Format(time.RFC3339)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, errUsernameTaken
		}
		return nil, err
	}
	return p, nil
}

// findPlayer loads one player matching where (a single-placeholder clause).
func (s *Server) findPlayer(ctx context.Context, where string, arg any) (*playerRow, error) {
	var p playerRow
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, games_played, wins, streak
		 FROM players WHERE `+where, arg,
	).Scan(&p.ID, &p.Username, &p.PasswordHash, &created, &p.GamesPlayed, &p.Wins, &p.Streak)
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &p, nil
}

// bumpStats records a finished game for the player inside tx.
// A loss resets the win streak.
func bumpStats(ctx context.Context, tx *sql.Tx, playerID string, won bool) error {
	q := `UPDATE players SET games_played = games_played + 1, streak = 0 WHERE id=?`
	if won {
		q = `UPDATE players SET games_played = games_played + 1, wins = wins + 1, streak = streak + 1 WHERE id=?`
	}
	_, err := tx.ExecContext(ctx, q, playerID)
	return err
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 72 {
		return errors.New("password must be 8-72 chars")
	}
	return nil
}

// genID creates a 22-char URL-safe random identifier.
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
