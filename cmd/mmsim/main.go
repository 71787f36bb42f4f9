// Package main implements mmsim, a command-line front end to the Mastermind solver.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/mastermind/internal/rules"
	"github.com/robalobadob/mastermind/internal/solver"
)

var version = "dev"

// options holds the persistent flags shared by every subcommand.
type options struct {
	preset    string
	strategy  string
	rulesFile string
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "mmsim",
		Short: "Play and evaluate the Mastermind solver",
		Long: `mmsim runs the Mastermind solver outside the HTTP server.

It can evaluate a strategy against every secret of a preset, or play an
interactive game where you hold the secret and type in the scores.`,
		Version:       version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := zerolog.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(lvl)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true})
			return rules.Init(opts.rulesFile)
		},
	}
	root.PersistentFlags().StringVarP(&opts.preset, "preset", "p", rules.DefaultName, "game preset (see presets.txt)")
	root.PersistentFlags().StringVarP(&opts.strategy, "strategy", "s", solver.StrategyMinimax, "guess selection strategy: knuth, lazy, minimax")
	root.PersistentFlags().StringVar(&opts.rulesFile, "rules-file", os.Getenv("RULES_FILE"), "preset file (defaults to the embedded presets)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(newSimulateCmd(opts))
	root.AddCommand(newPlayCmd(opts))
	return root
}

// resolve looks up the preset and strategy named by the flags.
func (o *options) resolve() (rules.Rules, solver.Strategy, error) {
	rl, err := rules.Get(o.preset)
	if err != nil {
		return rules.Rules{}, nil, err
	}
	s, err := solver.StrategyByName(o.strategy)
	if err != nil {
		return rules.Rules{}, nil, err
	}
	return rl, s, nil
}
