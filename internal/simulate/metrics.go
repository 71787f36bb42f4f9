package simulate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/robalobadob/mastermind/internal/solver"
)

var (
	// GamesTotal counts simulated games.
	// Labels: strategy, outcome (solved, exhausted_guesses, failed)
	GamesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mastermind",
			Subsystem: "simulate",
			Name:      "games_total",
			Help:      "Total number of simulated games by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	// GuessesToSolve tracks how many guesses solved games needed.
	GuessesToSolve = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mastermind",
			Subsystem: "simulate",
			Name:      "guesses_to_solve",
			Help:      "Guesses needed per solved simulated game",
			Buckets:   prometheus.LinearBuckets(1, 1, 12),
		},
		[]string{"strategy"},
	)
)

func observe(strategy string, res Result) {
	GamesTotal.WithLabelValues(strategy, res.Outcome.String()).Inc()
	if res.Outcome == solver.Solved {
		GuessesToSolve.WithLabelValues(strategy).Observe(float64(len(res.Guesses)))
	}
}
