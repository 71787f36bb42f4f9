package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robalobadob/mastermind/internal/db"
	"github.com/robalobadob/mastermind/internal/simulate"
)

func newSimulateCmd(opts *options) *cobra.Command {
	var (
		workers int
		limit   int
		asJSON  bool
		dbPath  string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play the solver against every secret of a preset",
		Long: `Play the solver against every secret of a preset and report how many
guesses it needed.

Examples:
  # Evaluate the default strategy on the classic preset
  mmsim simulate

  # Compare Knuth on the first 200 secrets and record the run
  mmsim simulate -s knuth --limit 200 --db ./data/mastermind.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, strategy, err := opts.resolve()
			if err != nil {
				return err
			}
			rep, err := simulate.Run(cmd.Context(), simulate.Options{
				Rules:    rl,
				Strategy: strategy,
				Workers:  workers,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if dbPath != "" {
				sqlDB, err := db.OpenAndMigrate(dbPath)
				if err != nil {
					return err
				}
				defer sqlDB.Close()
				rec, err := simulate.NewStore(sqlDB).Save(cmd.Context(), rep)
				if err != nil {
					return fmt.Errorf("save run: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved run %s\n", rec.ID)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			fmt.Fprintf(out, "preset %s  strategy %s\n", rep.Preset, rep.Strategy)
			fmt.Fprintf(out, "games %d  solved %d  exhausted %d  failed %d\n", rep.Games, rep.Solved, rep.Exhausted, rep.Failed)
			fmt.Fprintf(out, "max %d  mean %.4f  worst %s  elapsed %s\n", rep.MaxGuesses, rep.MeanGuesses, rep.WorstSecret, rep.Elapsed.Round(time.Millisecond))
			for _, k := range rep.HistogramKeys() {
				n := rep.Histogram[k]
				fmt.Fprintf(out, "%3d %6d %s\n", k, n, strings.Repeat("#", (n*50+rep.Games-1)/rep.Games))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "concurrent games")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "play only the first n secrets (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&dbPath, "db", "", "record the run in this SQLite database")
	return cmd
}
