// Package simulate plays the solver against the game harness.
//
// Play runs one game end to end. Run plays every code of a preset's space
// (or the first Limit of them) with bounded concurrency; each game gets its
// own solver session, so no candidate state is shared between workers.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/mastermind/internal/game"
	"github.com/robalobadob/mastermind/internal/rules"
	"github.com/robalobadob/mastermind/internal/solver"
)

// Result is the outcome of one simulated game.
type Result struct {
	Secret  game.Code    `json:"secret"`
	Guesses []game.Code  `json:"guesses"`
	Scores  []game.Score `json:"scores"`
	Outcome solver.State `json:"outcome"`
}

// Play drives a fresh session against secret until the game ends.
// A Failed outcome is returned together with the solver's error.
func Play(ctx context.Context, r rules.Rules, strategy solver.Strategy, secret game.Code) (Result, error) {
	g, err := r.NewGame(secret)
	if err != nil {
		return Result{}, err
	}
	sess, err := solver.New(solver.Config{
		CodeLength: r.CodeLength,
		Colours:    r.Colours,
		NumGuesses: r.MaxGuesses,
		Strategy:   strategy,
	})
	if err != nil {
		return Result{}, err
	}
	return Drive(ctx, g, sess)
}

// Drive plays sess against an existing harness game until either side ends it.
func Drive(ctx context.Context, g *game.Game, sess *solver.Session) (Result, error) {
	res := Result{Secret: g.Secret}
	var p solver.Percept
	for {
		guess, err := sess.Turn(ctx, p)
		if errors.Is(err, solver.ErrGameOver) {
			res.Outcome = sess.State()
			return res, nil
		}
		if err != nil {
			res.Outcome = sess.State()
			return res, err
		}
		sc, _, err := g.ApplyGuess(guess)
		if err != nil {
			return res, fmt.Errorf("apply solver guess %s: %w", guess, err)
		}
		res.Guesses = append(res.Guesses, guess)
		res.Scores = append(res.Scores, sc)
		p = solver.Percept{GuessCount: len(g.Guesses), LastGuess: guess, InPlace: sc.InPlace, InColour: sc.InColour}
	}
}

// Options configures a batch run.
type Options struct {
	Rules    rules.Rules
	Strategy solver.Strategy
	Workers  int // <= 0 means runtime.NumCPU()
	Limit    int // play only the first Limit secrets; <= 0 means all
}

// Report summarises a batch run.
type Report struct {
	Preset      string        `json:"preset"`
	Strategy    string        `json:"strategy"`
	Games       int           `json:"games"`
	Solved      int           `json:"solved"`
	Exhausted   int           `json:"exhausted"`
	Failed      int           `json:"failed"`
	MaxGuesses  int           `json:"maxGuesses"`
	MeanGuesses float64       `json:"meanGuesses"`
	Histogram   map[int]int   `json:"histogram"` // guesses-to-solve → games
	WorstSecret string        `json:"worstSecret,omitempty"`
	Elapsed     time.Duration `json:"elapsedNs"`
}

// Run plays every secret of the preset's code space in space order.
func Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Strategy == nil {
		opts.Strategy = solver.Minimax{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	secrets := solver.FullSpace(opts.Rules.Colours, opts.Rules.CodeLength).Codes()
	if opts.Limit > 0 && opts.Limit < len(secrets) {
		secrets = secrets[:opts.Limit]
	}

	start := time.Now()
	results := make([]Result, len(secrets))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, secret := range secrets {
		eg.Go(func() error {
			res, err := Play(ctx, opts.Rules, opts.Strategy, secret)
			if err != nil && !errors.Is(err, solver.ErrNoConsistentCandidates) {
				return fmt.Errorf("secret %s: %w", secret, err)
			}
			results[i] = res
			observe(opts.Strategy.Name(), res)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Report{}, err
	}

	rep := summarise(results)
	rep.Preset, rep.Strategy, rep.Elapsed = opts.Rules.Name, opts.Strategy.Name(), time.Since(start)
	log.Info().
		Str("preset", rep.Preset).
		Str("strategy", rep.Strategy).
		Int("games", rep.Games).
		Int("solved", rep.Solved).
		Int("max", rep.MaxGuesses).
		Float64("mean", rep.MeanGuesses).
		Dur("elapsed", rep.Elapsed).
		Msg("simulation finished")
	return rep, nil
}

func summarise(results []Result) Report {
	rep := Report{Games: len(results), Histogram: map[int]int{}}
	total := 0
	for _, res := range results {
		switch res.Outcome {
		case solver.Solved:
			n := len(res.Guesses)
			rep.Solved++
			rep.Histogram[n]++
			total += n
			if n > rep.MaxGuesses {
				rep.MaxGuesses, rep.WorstSecret = n, res.Secret.String()
			}
		case solver.ExhaustedGuesses:
			rep.Exhausted++
		default:
			rep.Failed++
		}
	}
	if rep.Solved > 0 {
		rep.MeanGuesses = float64(total) / float64(rep.Solved)
	}
	return rep
}

// HistogramKeys returns the histogram's guess counts in ascending order.
func (r Report) HistogramKeys() []int {
	out := make([]int, 0, len(r.Histogram))
	for k := range r.Histogram {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
