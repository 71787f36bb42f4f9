// internal/solver/candidates.go
//
// Candidate space for the Mastermind solver.
// Responsibilities:
//   - Enumerate the full code space (colours^length) in a deterministic order.
//   - Build the two-colour opening guess ("AABB" for length 4).
//   - Narrow a candidate set to the codes consistent with a scored guess.
//
// A CandidateSet is created once per game and only ever shrinks.

package solver

import (
	"errors"
	"fmt"

	"github.com/robalobadob/mastermind/internal/game"
)

var (
	// ErrInsufficientColours is returned when fewer than two distinct colours are supplied.
	ErrInsufficientColours = errors.New("at least two distinct colours required")
	// ErrNoConsistentCandidates is returned when filtering leaves nothing: the
	// scores were contradictory or the secret was wrongly removed.
	ErrNoConsistentCandidates = errors.New("no consistent candidates")
	// ErrEmptyCandidateSet is returned when a selector is asked to choose from nothing.
	ErrEmptyCandidateSet = errors.New("empty candidate set")
)

// CandidateSet is an ordered set of unique codes of one length.
// Iteration order is deterministic: the order of the full space it came from.
type CandidateSet struct {
	length int
	codes  []game.Code
}

// FullSpace returns the Cartesian product of colours taken length times.
// Codes are ordered like an odometer over the palette order, with the last
// position varying fastest, so FullSpace("AB", 2) yields AA, AB, BA, BB.
func FullSpace(colours game.Palette, length int) *CandidateSet {
	if length <= 0 || len(colours) == 0 {
		return &CandidateSet{length: length}
	}
	total := 1
	for i := 0; i < length; i++ {
		total *= len(colours)
	}

	// One backing array for every code keeps the space to two allocations.
	backing := make([]game.Colour, total*length)
	codes := make([]game.Code, total)
	digits := make([]int, length)
	for n := 0; n < total; n++ {
		c := game.Code(backing[n*length : (n+1)*length : (n+1)*length])
		for i, d := range digits {
			c[i] = colours[d]
		}
		codes[n] = c

		for i := length - 1; i >= 0; i-- {
			digits[i]++
			if digits[i] < len(colours) {
				break
			}
			digits[i] = 0
		}
	}
	return &CandidateSet{length: length, codes: codes}
}

// NewCandidateSet builds a set from explicit codes, dropping duplicates and
// keeping first-seen order. All codes must share length.
func NewCandidateSet(length int, codes ...game.Code) (*CandidateSet, error) {
	seen := make(map[string]struct{}, len(codes))
	out := make([]game.Code, 0, len(codes))
	for _, c := range codes {
		if len(c) != length {
			return nil, fmt.Errorf("candidate %s: %w", c, game.ErrLengthMismatch)
		}
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return &CandidateSet{length: length, codes: out}, nil
}

// Len reports the number of candidates.
func (cs *CandidateSet) Len() int { return len(cs.codes) }

// CodeLength reports the length of every code in the set.
func (cs *CandidateSet) CodeLength() int { return cs.length }

// Codes exposes the candidates in iteration order. Callers must not modify it.
func (cs *CandidateSet) Codes() []game.Code { return cs.codes }

// Contains reports whether c is still a candidate.
func (cs *CandidateSet) Contains(c game.Code) bool {
	return cs.indexOf(c) >= 0
}

// Remove drops c from the set, preserving the order of the rest.
// It reports whether c was present.
func (cs *CandidateSet) Remove(c game.Code) bool {
	i := cs.indexOf(c)
	if i < 0 {
		return false
	}
	cs.codes = append(cs.codes[:i:i], cs.codes[i+1:]...)
	return true
}

func (cs *CandidateSet) indexOf(c game.Code) int {
	for i, x := range cs.codes {
		if x.Equal(c) {
			return i
		}
	}
	return -1
}

// OpeningGuess builds the fixed two-colour opener: the first length/2
// positions take colours[0] and the rest take colours[1].
func OpeningGuess(colours game.Palette, length int) (game.Code, error) {
	if err := checkColours(colours); err != nil {
		return nil, err
	}
	out := make(game.Code, length)
	for i := range out {
		if i < length/2 {
			out[i] = colours[0]
		} else {
			out[i] = colours[1]
		}
	}
	return out, nil
}

// checkColours enforces at least two distinct colours.
func checkColours(colours game.Palette) error {
	seen := make(map[game.Colour]struct{}, len(colours))
	for _, c := range colours {
		seen[c] = struct{}{}
	}
	if len(seen) < 2 {
		return fmt.Errorf("got %d: %w", len(seen), ErrInsufficientColours)
	}
	return nil
}

// Filter returns the candidates whose score against lastGuess equals
// lastScore. The input set is left untouched.
//
// A (0,0) score means no colour of the guess appears anywhere in the secret,
// so candidates are dropped by colour membership alone; this keeps exactly the
// same codes as scoring each one.
//
// An empty result is returned together with ErrNoConsistentCandidates.
func Filter(cs *CandidateSet, lastGuess game.Code, lastScore game.Score) (*CandidateSet, error) {
	if len(lastGuess) != cs.length {
		return nil, fmt.Errorf("filter on guess %s: %w", lastGuess, game.ErrLengthMismatch)
	}

	keep := make([]game.Code, 0, len(cs.codes))
	if lastScore == (game.Score{}) {
		var used [256]bool
		for _, c := range lastGuess {
			used[c] = true
		}
	next:
		for _, cand := range cs.codes {
			for _, c := range cand {
				if used[c] {
					continue next
				}
			}
			keep = append(keep, cand)
		}
	} else {
		for _, cand := range cs.codes {
			if game.MustEvaluate(cand, lastGuess) == lastScore {
				keep = append(keep, cand)
			}
		}
	}

	out := &CandidateSet{length: cs.length, codes: keep}
	if len(keep) == 0 {
		return out, fmt.Errorf("guess %s scored %s: %w", lastGuess, lastScore, ErrNoConsistentCandidates)
	}
	return out, nil
}
