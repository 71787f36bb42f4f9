// internal/solver/session.go
//
// Solver session for a single Mastermind game.
// Responsibilities:
//   - Own the candidate set for one game (no state is shared between sessions).
//   - Turn 0: build the full space, play the opening guess.
//   - Later turns: narrow candidates by the last guess/score, then ask the
//     strategy for the next guess.
//   - Track the lifecycle NotStarted → AwaitingGuess → Solved | ExhaustedGuesses | Failed.
//
// A guess is removed from the candidate set as soon as it is produced, so the
// set strictly shrinks every turn and no code is offered twice.

package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/internal/game"
)

var (
	// ErrInvalidPercept is returned for percepts that do not fit the session.
	ErrInvalidPercept = errors.New("invalid percept")
	// ErrGameOver is returned once a session has reached a terminal state.
	ErrGameOver = errors.New("game over")
)

// State is the lifecycle position of a Session.
type State int

const (
	NotStarted State = iota
	AwaitingGuess
	Solved
	ExhaustedGuesses
	Failed
)

var stateNames = [...]string{"not_started", "awaiting_guess", "solved", "exhausted_guesses", "failed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Terminal reports whether no further guesses will be produced.
func (s State) Terminal() bool { return s == Solved || s == ExhaustedGuesses || s == Failed }

// Percept is what the game harness reports before each turn.
// LastGuess is nil when GuessCount is 0.
type Percept struct {
	GuessCount int       `json:"guessCount"`
	LastGuess  game.Code `json:"lastGuess,omitempty"`
	InPlace    int       `json:"inPlace"`
	InColour   int       `json:"inColour"`
}

// NewPercept validates a percept against the code length.
func NewPercept(guessCount int, lastGuess game.Code, inPlace, inColour, codeLength int) (Percept, error) {
	p := Percept{GuessCount: guessCount, LastGuess: lastGuess, InPlace: inPlace, InColour: inColour}
	return p, p.validate(codeLength)
}

func (p Percept) validate(codeLength int) error {
	switch {
	case p.GuessCount < 0:
		return fmt.Errorf("guess count %d: %w", p.GuessCount, ErrInvalidPercept)
	case p.GuessCount == 0:
		return nil
	case len(p.LastGuess) != codeLength:
		return fmt.Errorf("last guess %q length %d, want %d: %w", p.LastGuess, len(p.LastGuess), codeLength, ErrInvalidPercept)
	case p.InPlace < 0 || p.InColour < 0 || p.InPlace+p.InColour > codeLength:
		return fmt.Errorf("score %s for length %d: %w", p.Score(), codeLength, ErrInvalidPercept)
	}
	return nil
}

// Score returns the (in place, in colour) pair carried by the percept.
func (p Percept) Score() game.Score { return game.Score{InPlace: p.InPlace, InColour: p.InColour} }

// Config describes one game as seen by the solver.
type Config struct {
	CodeLength int
	Colours    game.Palette
	NumGuesses int      // guess budget; informational, reaching it ends the session
	Strategy   Strategy // nil means Minimax
}

// Session plays one game at a time. It is not safe for concurrent use.
type Session struct {
	cfg        Config
	state      State
	guessCount int
	candidates *CandidateSet
	lastGuess  game.Code
	lastScore  *game.Score
	err        error
}

// New validates cfg and returns a session in the NotStarted state.
func New(cfg Config) (*Session, error) {
	if cfg.CodeLength <= 0 {
		return nil, fmt.Errorf("code length %d must be positive", cfg.CodeLength)
	}
	if cfg.NumGuesses <= 0 {
		return nil, fmt.Errorf("guess budget %d must be positive", cfg.NumGuesses)
	}
	if err := checkColours(cfg.Colours); err != nil {
		return nil, err
	}
	if len(uniq(cfg.Colours)) != len(cfg.Colours) {
		return nil, fmt.Errorf("palette %s has duplicate colours", cfg.Colours)
	}
	if cfg.Strategy == nil {
		cfg.Strategy = Minimax{}
	}
	return &Session{cfg: cfg}, nil
}

// Turn consumes the harness percept and returns the next guess.
//
//   - GuessCount 0 starts a fresh game and returns the opening guess.
//   - A percept with every peg in place moves the session to Solved.
//   - A percept at the guess budget moves the session to ExhaustedGuesses.
//   - An empty filter result moves the session to Failed.
//
// Terminal states are reported as ErrGameOver (or the failure cause).
func (s *Session) Turn(ctx context.Context, p Percept) (game.Code, error) {
	if err := p.validate(s.cfg.CodeLength); err != nil {
		return nil, err
	}
	if p.GuessCount == 0 {
		return s.open()
	}

	switch {
	case s.state == NotStarted:
		return nil, fmt.Errorf("session not started: %w", ErrInvalidPercept)
	case s.state.Terminal():
		return nil, fmt.Errorf("session %s: %w", s.state, ErrGameOver)
	}

	sc := p.Score()
	s.lastGuess, s.lastScore = p.LastGuess.Clone(), &sc
	if sc.InPlace == s.cfg.CodeLength {
		s.state = Solved
		log.Debug().Str("code", p.LastGuess.String()).Int("guesses", p.GuessCount).Msg("solver solved")
		return nil, fmt.Errorf("solved in %d: %w", p.GuessCount, ErrGameOver)
	}
	if p.GuessCount >= s.cfg.NumGuesses {
		s.state = ExhaustedGuesses
		return nil, fmt.Errorf("used %d of %d guesses: %w", p.GuessCount, s.cfg.NumGuesses, ErrGameOver)
	}

	next, err := Filter(s.candidates, p.LastGuess, sc)
	if err != nil {
		return nil, s.fail(err)
	}
	s.candidates = next

	guess, err := s.cfg.Strategy.Select(ctx, next)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-scan; refiltering with the same percept is idempotent.
			return nil, err
		}
		return nil, s.fail(err)
	}
	consistent := next.Len()
	s.candidates.Remove(guess)
	s.guessCount = p.GuessCount + 1

	log.Debug().
		Str("strategy", s.cfg.Strategy.Name()).
		Int("turn", p.GuessCount).
		Str("score", sc.String()).
		Int("consistent", consistent).
		Str("guess", guess.String()).
		Msg("solver turn")
	return guess, nil
}

// open resets the session for a new game and returns the opening guess.
func (s *Session) open() (game.Code, error) {
	guess, err := OpeningGuess(s.cfg.Colours, s.cfg.CodeLength)
	if err != nil {
		return nil, s.fail(err)
	}
	s.candidates = FullSpace(s.cfg.Colours, s.cfg.CodeLength)
	s.candidates.Remove(guess)
	s.state, s.err = AwaitingGuess, nil
	s.guessCount = 1
	s.lastGuess, s.lastScore = nil, nil

	log.Debug().Int("space", s.candidates.Len()+1).Str("guess", guess.String()).Msg("solver opening")
	return guess, nil
}

func (s *Session) fail(err error) error {
	s.state, s.err = Failed, err
	log.Debug().Err(err).Msg("solver failed")
	return err
}

// State reports the session's lifecycle state.
func (s *Session) State() State { return s.state }

// Err returns the cause of a Failed state.
func (s *Session) Err() error { return s.err }

// GuessCount is the number of guesses produced in the current game.
func (s *Session) GuessCount() int { return s.guessCount }

// Remaining is the number of candidates not yet ruled out or played.
func (s *Session) Remaining() int {
	if s.candidates == nil {
		return 0
	}
	return s.candidates.Len()
}

// Candidates exposes the live candidate set (nil before the first turn).
func (s *Session) Candidates() *CandidateSet { return s.candidates }

// LastScore returns the most recent score fed to the session, if any.
func (s *Session) LastScore() (game.Score, bool) {
	if s.lastScore == nil {
		return game.Score{}, false
	}
	return *s.lastScore, true
}

// Config returns the session's configuration.
func (s *Session) Config() Config { return s.cfg }

func uniq(p game.Palette) map[game.Colour]struct{} {
	m := make(map[game.Colour]struct{}, len(p))
	for _, c := range p {
		m[c] = struct{}{}
	}
	return m
}
