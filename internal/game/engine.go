// internal/game/engine.go
//
// Core game engine for Mastermind.
// Responsibilities:
//   - Score a guess against a target (in place / in colour pegs).
//   - Create harness games with a fixed or random secret.
//   - Validate and apply guesses, tracking playing → won/lost transitions.
//
// Score is the solver's hot path: it is called O(n²) times per solver turn,
// so it works on stack arrays and never allocates.
package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrLengthMismatch is returned when a guess and target differ in length.
	ErrLengthMismatch = errors.New("code length mismatch")
	// ErrUnknownColour is returned when a code uses a colour outside the palette.
	ErrUnknownColour = errors.New("colour not in palette")
	// ErrGameFinished is returned when a guess is applied to a finished game.
	ErrGameFinished = errors.New("game finished")
)

// Game states as reported to clients.
const (
	StatePlaying = "playing"
	StateWon     = "won"
	StateLost    = "lost"
)

// Evaluate computes the score of guess against target.
// Fails with ErrLengthMismatch if the lengths differ.
func Evaluate(guess, target Code) (Score, error) {
	if len(guess) != len(target) {
		return Score{}, fmt.Errorf("guess %d vs target %d: %w", len(guess), len(target), ErrLengthMismatch)
	}
	return score(guess, target), nil
}

// score implements peg scoring for equal-length codes.
//
// Pass 1:
//   - Count exact matches as in place.
//   - Count remaining (mismatched) target colours.
//
// Pass 2:
//   - For each mismatched guess colour, left to right: if the target still has
//     an unused instance of it, consume one and count it in colour.
//
// Each target instance is matched at most once, so repeated colours are
// never double counted.
func score(guess, target Code) Score {
	var counts [256]uint16
	var s Score
	for i := range guess {
		if guess[i] == target[i] {
			s.InPlace++
		} else {
			counts[target[i]]++
		}
	}
	for i := range guess {
		if guess[i] == target[i] {
			continue
		}
		if c := guess[i]; counts[c] > 0 {
			counts[c]--
			s.InColour++
		}
	}
	return s
}

// MustEvaluate scores two codes already known to share a length.
// It panics on a length mismatch; use it only where lengths are invariant.
func MustEvaluate(guess, target Code) Score {
	if len(guess) != len(target) {
		panic(ErrLengthMismatch)
	}
	return score(guess, target)
}

// New constructs a new harness game.
// If secret is nil, a random secret of the given length is drawn from the palette.
func New(secret Code, length int, p Palette, maxGuesses int) (*Game, error) {
	if secret == nil {
		secret = RandomCode(length, p)
	}
	if len(secret) != length {
		return nil, fmt.Errorf("secret %s: %w", secret, ErrLengthMismatch)
	}
	for _, c := range secret {
		if !p.Contains(c) {
			return nil, fmt.Errorf("secret %s colour %s: %w", secret, c, ErrUnknownColour)
		}
	}
	return &Game{
		ID:         randomID(),
		Secret:     secret.Clone(),
		Palette:    p,
		MaxGuesses: maxGuesses,
	}, nil
}

// ApplyGuess validates and scores a guess, mutating the game state.
// Returns: the score, the new state string ("playing"/"won"/"lost"), or an error.
//
// State transitions:
//   - If every peg is in place → Finished = true, Won = true.
//   - Else if the number of guesses reaches MaxGuesses → Finished = true (loss).
func (g *Game) ApplyGuess(guess Code) (Score, string, error) {
	if g.Finished {
		return Score{}, g.State(), ErrGameFinished
	}
	if len(guess) != len(g.Secret) {
		return Score{}, g.State(), fmt.Errorf("guess %s: %w", guess, ErrLengthMismatch)
	}
	for _, c := range guess {
		if !g.Palette.Contains(c) {
			return Score{}, g.State(), fmt.Errorf("guess %s colour %s: %w", guess, c, ErrUnknownColour)
		}
	}

	s := score(guess, g.Secret)
	g.Guesses = append(g.Guesses, guess.Clone())
	g.Scores = append(g.Scores, s)

	if s.InPlace == len(g.Secret) {
		g.Finished, g.Won = true, true
	} else if g.MaxGuesses > 0 && len(g.Guesses) >= g.MaxGuesses {
		g.Finished = true
	}
	return s, g.State(), nil
}

// CodeLength reports the number of positions in the secret.
func (g *Game) CodeLength() int { return len(g.Secret) }

// State reports a coarse string representation of the current game state.
func (g *Game) State() string {
	if g.Finished {
		if g.Won {
			return StateWon
		}
		return StateLost
	}
	return StatePlaying
}

// RandomCode draws a uniformly random code from the palette.
func RandomCode(length int, p Palette) Code {
	if len(p) == 0 {
		return nil
	}
	out := make(Code, length)
	n := big.NewInt(int64(len(p)))
	for i := range out {
		k, _ := rand.Int(rand.Reader, n)
		out[i] = p[k.Int64()]
	}
	return out
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
