// internal/game/types.go
//
// Core type definitions for the Mastermind game engine.
// Defines:
//   - Colour: a single peg symbol drawn from a palette.
//   - Code:   an ordered sequence of colours (a secret or a guess).
//   - Score:  (in place, in colour) feedback for a guess.
//   - Game:   state for a single in-progress or finished harness game.

package game

import (
	"fmt"
	"strings"
)

// Colour is an opaque peg symbol. Only equality is meaningful.
type Colour byte

// String renders the colour as its letter.
func (c Colour) String() string { return string(rune(c)) }

// Code is an ordered sequence of colours. Treat it as immutable once built.
type Code []Colour

// String renders a code as a compact letter string ("AABB").
func (c Code) String() string {
	b := make([]byte, len(c))
	for i, x := range c {
		b[i] = byte(x)
	}
	return string(b)
}

// Key returns a comparable map key for the code.
func (c Code) Key() string { return c.String() }

// Equal reports whether both codes match at every position.
func (c Code) Equal(o Code) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the code.
func (c Code) Clone() Code {
	out := make(Code, len(c))
	copy(out, c)
	return out
}

// MarshalText lets codes travel as plain strings in JSON payloads.
func (c Code) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText accepts a letter string; palette membership is checked by callers.
func (c *Code) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	out := make(Code, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = Colour(s[i])
	}
	*c = out
	return nil
}

// Palette is the ordered alphabet of distinct colours for a game.
type Palette []Colour

// ParsePalette builds a palette from a letter string ("ABCDEF").
// Duplicate letters are rejected.
func ParsePalette(s string) (Palette, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	seen := make(map[byte]bool, len(s))
	out := make(Palette, 0, len(s))
	for i := 0; i < len(s); i++ {
		if seen[s[i]] {
			return nil, fmt.Errorf("palette %q: duplicate colour %q", s, s[i])
		}
		seen[s[i]] = true
		out = append(out, Colour(s[i]))
	}
	return out, nil
}

// Contains reports whether c belongs to the palette.
func (p Palette) Contains(c Colour) bool {
	for _, x := range p {
		if x == c {
			return true
		}
	}
	return false
}

// String renders the palette as a letter string.
func (p Palette) String() string { return Code(p).String() }

// MarshalText encodes the palette as its letter string rather than base64.
func (p Palette) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Palette) UnmarshalText(b []byte) error {
	out, err := ParsePalette(string(b))
	if err != nil {
		return err
	}
	*p = out
	return nil
}

// ParseCode parses a letter string into a code of the given length,
// rejecting colours outside the palette.
func ParseCode(s string, length int, p Palette) (Code, error) {
	var c Code
	_ = c.UnmarshalText([]byte(s))
	if len(c) != length {
		return nil, fmt.Errorf("code %q: %w", s, ErrLengthMismatch)
	}
	for _, x := range c {
		if !p.Contains(x) {
			return nil, fmt.Errorf("code %q colour %q: %w", s, x, ErrUnknownColour)
		}
	}
	return c, nil
}

// Score is the feedback for one guess against a target.
// InPlace+InColour never exceeds the code length.
type Score struct {
	InPlace  int `json:"inPlace"`
	InColour int `json:"inColour"`
}

// String renders the score as "(in_place,in_colour)".
func (s Score) String() string { return fmt.Sprintf("(%d,%d)", s.InPlace, s.InColour) }

// Game holds the state of a single harness game: the secret and the guesses
// played against it.
type Game struct {
	ID         string  // Unique game identifier (random hex string).
	Secret     Code    // The hidden code.
	Palette    Palette // Colours allowed in guesses.
	MaxGuesses int     // Guess budget.
	Guesses    []Code  // Guesses made so far.
	Scores     []Score // Scores for each guess, index-aligned with Guesses.
	Finished   bool    // True once the game is over (won or lost).
	Won        bool    // True if the secret was found.
}
