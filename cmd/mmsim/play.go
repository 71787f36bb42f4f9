package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robalobadob/mastermind/internal/game"
	"github.com/robalobadob/mastermind/internal/solver"
)

func newPlayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Let the solver guess a secret you hold",
		Long: `Pick a secret code and let the solver guess it. After each guess type the
score as two numbers: pegs in place, then pegs in colour only.

Examples:
  $ mmsim play
  guess 1: AABB
  score> 1 1
  guess 2: ABCC
  score> 3 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, strategy, err := opts.resolve()
			if err != nil {
				return err
			}
			sess, err := solver.New(solver.Config{
				CodeLength: rl.CodeLength,
				Colours:    rl.Colours,
				NumGuesses: rl.MaxGuesses,
				Strategy:   strategy,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d pegs, colours %s, %d guesses (%s)\n", rl.CodeLength, rl.Colours, rl.MaxGuesses, strategy.Name())
			return play(cmd, sess, bufio.NewScanner(cmd.InOrStdin()), rl.CodeLength)
		},
	}
}

func play(cmd *cobra.Command, sess *solver.Session, in *bufio.Scanner, length int) error {
	out := cmd.OutOrStdout()
	p := solver.Percept{}
	for {
		guess, err := sess.Turn(cmd.Context(), p)
		switch {
		case errors.Is(err, solver.ErrGameOver):
			if sess.State() == solver.Solved {
				fmt.Fprintf(out, "solved in %d\n", p.GuessCount)
			} else {
				fmt.Fprintf(out, "out of guesses after %d\n", p.GuessCount)
			}
			return nil
		case errors.Is(err, solver.ErrNoConsistentCandidates):
			fmt.Fprintln(out, "no code fits those scores; one of them was wrong")
			return err
		case err != nil:
			return err
		}

		n := p.GuessCount + 1
		fmt.Fprintf(out, "guess %d: %s (%d left)\n", n, guess, sess.Remaining()+1)
		for {
			fmt.Fprint(out, "score> ")
			sc, err := readScore(in, length)
			if err == io.EOF {
				return fmt.Errorf("input closed after guess %d", n)
			}
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			p = solver.Percept{GuessCount: n, LastGuess: guess, InPlace: sc.InPlace, InColour: sc.InColour}
			break
		}
	}
}

// readScore reads "a b", "a,b" or "(a,b)" from the next line.
func readScore(in *bufio.Scanner, length int) (game.Score, error) {
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return game.Score{}, err
		}
		return game.Score{}, io.EOF
	}
	line := strings.NewReplacer("(", " ", ")", " ", ",", " ").Replace(in.Text())
	f := strings.Fields(line)
	if len(f) != 2 {
		return game.Score{}, fmt.Errorf("want two numbers, got %q", in.Text())
	}
	a, errA := strconv.Atoi(f[0])
	b, errB := strconv.Atoi(f[1])
	if errA != nil || errB != nil || a < 0 || b < 0 || a+b > length {
		return game.Score{}, fmt.Errorf("score %q out of range for %d pegs", in.Text(), length)
	}
	return game.Score{InPlace: a, InColour: b}, nil
}
