package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mastermind/internal/config"
	"github.com/robalobadob/mastermind/internal/daily"
	"github.com/robalobadob/mastermind/internal/db"
	"github.com/robalobadob/mastermind/internal/rules"
)

func TestMain(m *testing.M) {
	if err := rules.Init(""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", ClientOrigin: "http://localhost:5173", Timeout: 30 * time.Second},
		Auth: config.AuthConfig{
			JWTSecret:  "test_secret",
			TokenTTL:   time.Hour,
			CookieName: "mm_token",
			AnonCookie: "mm_anon",
		},
		Game: config.GameConfig{DefaultPreset: "classic", Strategy: "minimax", DailySalt: "test_salt"},
		Sim:  config.SimConfig{Workers: 2, MaxGames: 100},
	}
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

// newClient starts a server on a fresh database and returns a cookie-keeping client.
func newClient(t *testing.T) *client {
	t.Helper()
	sqlDB, err := db.OpenAndMigrate(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	ts := httptest.NewServer(New(testConfig(), sqlDB).Router())
	t.Cleanup(ts.Close)
	return &client{t: t, base: ts.URL, http: newHTTPClient(t)}
}

func newHTTPClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

// call sends body as JSON and decodes the response into out (when non-nil).
func (c *client) call(method, path string, body, out any) int {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

type jsonMap = map[string]any

func TestDiagnostics(t *testing.T) {
	c := newClient(t)

	var health jsonMap
	assert.Equal(t, http.StatusOK, c.call(http.MethodGet, "/health", nil, &health))
	assert.Equal(t, true, health["ok"])

	var rl rulesRes
	assert.Equal(t, http.StatusOK, c.call(http.MethodGet, "/rules", nil, &rl))
	assert.Equal(t, "classic", rl.Default)
	assert.Len(t, rl.Presets, 4)
	assert.Equal(t, []string{"knuth", "lazy", "minimax"}, rl.Strategies)

	var nf jsonMap
	assert.Equal(t, http.StatusNotFound, c.call(http.MethodGet, "/nope", nil, &nf))
	assert.Equal(t, "not_found", nf["error"])

	resp, err := c.http.Get(c.base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "mastermind_http_requests_total")
}

func TestGameFlow(t *testing.T) {
	c := newClient(t)

	var created newGameRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/new", jsonMap{"secret": "abcd"}, &created))
	require.NotEmpty(t, created.GameID)
	assert.Equal(t, "classic", created.Rules.Name)

	var res guessRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/guess", jsonMap{"gameId": created.GameID, "guess": "AABB"}, &res))
	assert.Equal(t, 1, res.Score.InPlace)
	assert.Equal(t, 1, res.Score.InColour)
	assert.Equal(t, "playing", res.State)
	assert.Nil(t, res.Secret)

	var errBody jsonMap
	assert.Equal(t, http.StatusBadRequest, c.call(http.MethodPost, "/game/guess", jsonMap{"gameId": created.GameID, "guess": "ABCZ"}, &errBody))
	assert.Equal(t, http.StatusBadRequest, c.call(http.MethodPost, "/game/guess", jsonMap{"gameId": created.GameID, "guess": "ABC"}, &errBody))

	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/guess", jsonMap{"gameId": created.GameID, "guess": "ABCD"}, &res))
	assert.Equal(t, "won", res.State)
	assert.Equal(t, 2, res.Guesses)
	assert.Equal(t, "ABCD", res.Secret.String())

	assert.Equal(t, http.StatusConflict, c.call(http.MethodPost, "/game/guess", jsonMap{"gameId": created.GameID, "guess": "ABCD"}, &errBody))
	assert.Equal(t, http.StatusNotFound, c.call(http.MethodPost, "/game/guess", jsonMap{"gameId": "missing", "guess": "ABCD"}, &errBody))
	assert.Equal(t, http.StatusBadRequest, c.call(http.MethodPost, "/game/new", jsonMap{"preset": "huge"}, &errBody))
}

func TestGameLost(t *testing.T) {
	c := newClient(t)
	var created newGameRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/new", jsonMap{"preset": "duo", "secret": "CC"}, &created))

	var res guessRes
	for i := 0; i < created.Rules.MaxGuesses; i++ {
		require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/guess", jsonMap{"gameId": created.GameID, "guess": "AB"}, &res))
	}
	assert.Equal(t, "lost", res.State)
	assert.Equal(t, "CC", res.Secret.String())
}

func TestGameSolve(t *testing.T) {
	c := newClient(t)
	var created newGameRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/new", jsonMap{"secret": "ABCD"}, &created))

	var res solveRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/solve", jsonMap{"gameId": created.GameID, "strategy": "minimax"}, &res))
	var guesses []string
	for _, s := range res.Steps {
		guesses = append(guesses, s.Guess.String())
	}
	assert.Equal(t, []string{"AABB", "ABCC", "ABCD"}, guesses)
	assert.Equal(t, "won", res.State)
	assert.Equal(t, "solved", res.Outcome.String())

	var errBody jsonMap
	assert.Equal(t, http.StatusConflict, c.call(http.MethodPost, "/game/solve", jsonMap{"gameId": created.GameID}, &errBody))
	assert.Equal(t, "game_in_progress", errBody["error"])
	assert.Equal(t, http.StatusBadRequest, c.call(http.MethodPost, "/game/solve", jsonMap{"gameId": created.GameID, "strategy": "random"}, &errBody))
}

func TestSolverSession(t *testing.T) {
	c := newClient(t)

	var created solverNewRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/solver/new", jsonMap{"preset": "classic"}, &created))
	assert.Equal(t, "minimax", created.Strategy)
	id := created.SessionID

	turn := func(n int, last string, inPlace, inColour int) (int, jsonMap) {
		var out jsonMap
		code := c.call(http.MethodPost, "/solver/turn", jsonMap{
			"sessionId": id, "guessCount": n, "lastGuess": last, "inPlace": inPlace, "inColour": inColour,
		}, &out)
		return code, out
	}

	code, out := turn(0, "", 0, 0)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AABB", out["guess"])
	assert.EqualValues(t, 1295, out["remaining"])
	assert.Equal(t, "awaiting_guess", out["state"])

	code, out = turn(1, "AABB", 1, 1)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ABCC", out["guess"])
	assert.EqualValues(t, 207, out["remaining"])

	code, _ = turn(2, "ABCC", 3, 2)
	assert.Equal(t, http.StatusBadRequest, code, "scores above the code length are rejected")

	code, out = turn(2, "ABCC", 3, 0)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ABCD", out["guess"])

	code, out = turn(3, "ABCD", 4, 0)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "solved", out["state"])
	assert.NotContains(t, out, "guess")

	// The same session restarts on guessCount 0.
	code, out = turn(0, "", 0, 0)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AABB", out["guess"])

	code, _ = turn(1, "AABB", 0, 0)
	require.Equal(t, http.StatusOK, code)
	code, out = turn(2, "ABAB", 1, 0)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "failed", out["state"])
	assert.NotEmpty(t, out["error"])

	var ok jsonMap
	assert.Equal(t, http.StatusOK, c.call(http.MethodDelete, "/solver/"+id, nil, &ok))
	code, _ = turn(0, "", 0, 0)
	assert.Equal(t, http.StatusNotFound, code)

	var errBody jsonMap
	assert.Equal(t, http.StatusBadRequest, c.call(http.MethodPost, "/solver/new", jsonMap{"strategy": "random"}, &errBody))
}

func TestSimulate(t *testing.T) {
	c := newClient(t)

	var res simulateRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/simulate", jsonMap{"preset": "mini", "strategy": "knuth"}, &res))
	assert.Equal(t, 64, res.Report.Games)
	assert.Equal(t, 64, res.Report.Solved)
	assert.Equal(t, 5, res.Report.MaxGuesses)
	assert.NotEmpty(t, res.Run.ID)

	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/simulate", jsonMap{"preset": "classic", "limit": 5000}, &res))
	assert.Equal(t, 100, res.Report.Games, "limit is capped by SIM_MAX_GAMES")

	var runs []jsonMap
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/simulate/runs", nil, &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "classic", runs[0]["preset"])
	assert.Equal(t, "knuth", runs[1]["strategy"])
}

func TestAuthAndStats(t *testing.T) {
	c := newClient(t)
	var body jsonMap

	assert.Equal(t, http.StatusUnauthorized, c.call(http.MethodGet, "/auth/me", nil, &body))

	// A guest game started before signup is claimed by the new account.
	var created newGameRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/new", jsonMap{"secret": "FEDC"}, &created))

	creds := jsonMap{"username": "codebreaker", "password": "hunter2hunter2"}
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/auth/signup", creds, &body))
	assert.Equal(t, http.StatusConflict, c.call(http.MethodPost, "/auth/signup", creds, &body))
	assert.Equal(t, http.StatusBadRequest, c.call(http.MethodPost, "/auth/signup", jsonMap{"username": "x", "password": "short"}, &body))

	var me player
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/auth/me", nil, &me))
	assert.Equal(t, "codebreaker", me.Username)

	var res guessRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/game/guess", jsonMap{"gameId": created.GameID, "guess": "FEDC"}, &res))
	require.Equal(t, "won", res.State)

	var stats jsonMap
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/stats/me", nil, &stats))
	assert.EqualValues(t, 1, stats["gamesPlayed"])
	assert.EqualValues(t, 1, stats["wins"])
	assert.EqualValues(t, 1, stats["streak"])

	var mine []gameRow
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/games/mine", nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, created.GameID, mine[0].ID)
	assert.Equal(t, "won", mine[0].Status)
	assert.Equal(t, 1, mine[0].Guesses)

	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/auth/logout", nil, &body))
	assert.Equal(t, http.StatusUnauthorized, c.call(http.MethodGet, "/stats/me", nil, &body))

	assert.Equal(t, http.StatusUnauthorized, c.call(http.MethodPost, "/auth/login",
		jsonMap{"username": "codebreaker", "password": "wrong-password"}, &body))
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/auth/login",
		jsonMap{"username": "CodeBreaker", "password": "hunter2hunter2"}, &body))
	assert.Equal(t, http.StatusOK, c.call(http.MethodGet, "/auth/me", nil, &me))
}

func TestBearerToken(t *testing.T) {
	c := newClient(t)
	req, err := http.NewRequest(http.MethodPost, c.base+"/auth/signup",
		strings.NewReader(`{"username":"bearer_user","password":"longenough"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token string
	for _, ck := range resp.Cookies() {
		if ck.Name == "mm_token" {
			token = ck.Value
		}
	}
	require.NotEmpty(t, token)

	req, err = http.NewRequest(http.MethodGet, c.base+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer not-a-token")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestDaily(t *testing.T) {
	c := newClient(t)

	var started dailyNewRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/daily/new", nil, &started))
	require.NotEmpty(t, started.GameID)
	assert.False(t, started.Played)

	var again dailyNewRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/daily/new", nil, &again))
	assert.Equal(t, started.GameID, again.GameID, "the session is reused")

	classic, err := rules.Get("classic")
	require.NoError(t, err)
	secret, _ := daily.SecretFor(time.Now(), "test_salt", classic)

	var body jsonMap
	assert.Equal(t, http.StatusConflict, c.call(http.MethodPost, "/daily/guess", jsonMap{"gameId": "other", "guess": "AAAA"}, &body))

	var res dailyGuessRes
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/daily/guess", jsonMap{"gameId": started.GameID, "guess": secret.String()}, &res))
	assert.Equal(t, "won", res.State)
	assert.Equal(t, 1, res.Guesses)

	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/daily/guess", jsonMap{"gameId": started.GameID, "guess": secret.String()}, &res))
	assert.Equal(t, "locked", res.State)

	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/daily/new", nil, &again))
	assert.True(t, again.Played)

	var lb lbRes
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/daily/leaderboard", nil, &lb))
	assert.Equal(t, started.Date, lb.Date)
	require.Len(t, lb.Top, 1)
	assert.Equal(t, 1, lb.Top[0].Guesses)

	// A second browser gets its own session for the same code.
	other := &client{t: t, base: c.base, http: newHTTPClient(t)}
	var fresh dailyNewRes
	require.Equal(t, http.StatusOK, other.call(http.MethodPost, "/daily/new", nil, &fresh))
	assert.NotEqual(t, started.GameID, fresh.GameID)
	assert.False(t, fresh.Played)
}
