// internal/solver/selector.go
//
// Guess selection strategies.
//
// Every strategy partitions the remaining candidates by some outcome of
// pairing each candidate h with a hypothetical secret g, builds a histogram of
// bucket sizes for g, and ranks g by that histogram:
//
//   - minimax: true peg scores; value(g) = smallest bucket; pick the largest value.
//   - lazy:    signed colour-overlap proxy instead of peg scores; same ranking.
//   - knuth:   true peg scores; value(g) = largest bucket; pick the smallest value.
//
// Ties go to the first candidate in iteration order. Each Select is O(n²).

package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/robalobadob/mastermind/internal/game"
)

// Strategy picks the next guess from a non-empty candidate set.
type Strategy interface {
	Name() string
	Select(ctx context.Context, cs *CandidateSet) (game.Code, error)
}

// Strategy names.
const (
	StrategyMinimax = "minimax"
	StrategyLazy    = "lazy"
	StrategyKnuth   = "knuth"
)

// ErrUnknownStrategy is returned by StrategyByName for unregistered names.
var ErrUnknownStrategy = errors.New("unknown strategy")

var strategies = map[string]Strategy{
	StrategyMinimax: Minimax{},
	StrategyLazy:    Lazy{},
	StrategyKnuth:   Knuth{},
}

// StrategyByName resolves a strategy; the empty name means minimax.
func StrategyByName(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = StrategyMinimax
	}
	if s, ok := strategies[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
}

// StrategyNames lists registered strategies in sorted order.
func StrategyNames() []string {
	out := make([]string, 0, len(strategies))
	for n := range strategies {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Minimax keeps the guess whose least-populated score bucket is largest.
type Minimax struct{}

func (Minimax) Name() string { return StrategyMinimax }

func (Minimax) Select(ctx context.Context, cs *CandidateSet) (game.Code, error) {
	return scan(ctx, cs, pegPartition(cs.length), smallestBucket, greater)
}

// Lazy ranks like Minimax but partitions on colourOverlap instead of peg scores.
type Lazy struct{}

func (Lazy) Name() string { return StrategyLazy }

func (Lazy) Select(ctx context.Context, cs *CandidateSet) (game.Code, error) {
	return scan(ctx, cs, overlapPartition(cs.length), smallestBucket, greater)
}

// Knuth minimises the worst-case (largest) bucket, restricted to candidates.
type Knuth struct{}

func (Knuth) Name() string { return StrategyKnuth }

func (Knuth) Select(ctx context.Context, cs *CandidateSet) (game.Code, error) {
	return scan(ctx, cs, pegPartition(cs.length), largestBucket, less)
}

// partition maps a (candidate, hypothetical secret) pair to a bucket index
// in [0, size).
type partition struct {
	size   int
	bucket func(h, g game.Code) int
}

// pegPartition buckets by peg score: in_place*(length+1) + in_colour.
func pegPartition(length int) partition {
	return partition{
		size: (length + 1) * (length + 1),
		bucket: func(h, g game.Code) int {
			s := game.MustEvaluate(h, g)
			return s.InPlace*(length+1) + s.InColour
		},
	}
}

// overlapPartition buckets by colourOverlap, shifted into [0, 2*length].
func overlapPartition(length int) partition {
	return partition{
		size: 2*length + 1,
		bucket: func(h, g game.Code) int {
			return colourOverlap(h, g) + length
		},
	}
}

// colourOverlap scores +1 for every guess colour present anywhere in target
// and -1 for every one that is not.
func colourOverlap(guess, target game.Code) int {
	var present [256]bool
	for _, c := range target {
		present[c] = true
	}
	v := 0
	for _, c := range guess {
		if present[c] {
			v++
		} else {
			v--
		}
	}
	return v
}

func smallestBucket(hist []int) int {
	v := -1
	for _, n := range hist {
		if n > 0 && (v < 0 || n < v) {
			v = n
		}
	}
	return v
}

func largestBucket(hist []int) int {
	v := 0
	for _, n := range hist {
		if n > v {
			v = n
		}
	}
	return v
}

func greater(a, b int) bool { return a > b }
func less(a, b int) bool    { return a < b }

// cancelEvery is how many outer iterations run between context checks.
const cancelEvery = 64

// scan runs the O(n²) partition pass and returns the first candidate whose
// histogram value is best under better.
func scan(ctx context.Context, cs *CandidateSet, p partition, value func([]int) int, better func(a, b int) bool) (game.Code, error) {
	codes := cs.Codes()
	switch len(codes) {
	case 0:
		return nil, ErrEmptyCandidateSet
	case 1:
		return codes[0], nil
	}

	hist := make([]int, p.size)
	best, bestValue := -1, 0
	for i, g := range codes {
		if i%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		clear(hist)
		for _, h := range codes {
			hist[p.bucket(h, g)]++
		}
		v := value(hist)
		if best < 0 || better(v, bestValue) {
			best, bestValue = i, v
		}
	}
	return codes[best], nil
}
