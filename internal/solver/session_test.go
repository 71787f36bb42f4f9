package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mastermind/internal/game"
)

func classic(t *testing.T, s Strategy) *Session {
	t.Helper()
	sess, err := New(Config{CodeLength: 4, Colours: game.Palette("ABCDEF"), NumGuesses: 10, Strategy: s})
	require.NoError(t, err)
	return sess
}

// play drives a session against secret the way a game harness would and
// returns the number of guesses it took.
func play(t *testing.T, sess *Session, secret game.Code) int {
	t.Helper()
	ctx := context.Background()
	guess, err := sess.Turn(ctx, Percept{})
	require.NoError(t, err)
	for n := 1; ; n++ {
		sc := game.MustEvaluate(guess, secret)
		before := sess.Remaining()
		guess, err = sess.Turn(ctx, Percept{GuessCount: n, LastGuess: guess, InPlace: sc.InPlace, InColour: sc.InColour})
		if err != nil {
			require.ErrorIs(t, err, ErrGameOver, "secret %s", secret)
			return n
		}
		assert.Less(t, sess.Remaining(), before, "candidates must strictly shrink")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		is   error
	}{
		{"one colour", Config{CodeLength: 4, Colours: game.Palette("A"), NumGuesses: 10}, ErrInsufficientColours},
		{"repeated colour only", Config{CodeLength: 4, Colours: game.Palette("AA"), NumGuesses: 10}, ErrInsufficientColours},
		{"zero length", Config{CodeLength: 0, Colours: game.Palette("AB"), NumGuesses: 10}, nil},
		{"zero budget", Config{CodeLength: 4, Colours: game.Palette("AB"), NumGuesses: 0}, nil},
		{"duplicate colours", Config{CodeLength: 4, Colours: game.Palette("ABA"), NumGuesses: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	sess, err := New(Config{CodeLength: 4, Colours: game.Palette("ABCDEF"), NumGuesses: 10})
	require.NoError(t, err)
	assert.Equal(t, NotStarted, sess.State())
	assert.Equal(t, StrategyMinimax, sess.Config().Strategy.Name())
}

func TestNewPercept(t *testing.T) {
	_, err := NewPercept(0, nil, 0, 0, 4)
	assert.NoError(t, err)

	_, err = NewPercept(-1, nil, 0, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidPercept)

	_, err = NewPercept(1, mustCode(t, "ABC"), 0, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidPercept)

	_, err = NewPercept(1, mustCode(t, "ABCD"), 3, 2, 4)
	assert.ErrorIs(t, err, ErrInvalidPercept)

	p, err := NewPercept(2, mustCode(t, "ABCD"), 1, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, game.Score{InPlace: 1, InColour: 2}, p.Score())
}

func TestSessionOpening(t *testing.T) {
	sess := classic(t, nil)
	guess, err := sess.Turn(context.Background(), Percept{})
	require.NoError(t, err)
	assert.Equal(t, "AABB", guess.String())
	assert.Equal(t, AwaitingGuess, sess.State())
	assert.Equal(t, 1295, sess.Remaining())
	assert.False(t, sess.Candidates().Contains(guess), "opening guess is never offered twice")
	assert.Equal(t, 1, sess.GuessCount())
}

func TestSessionConvergesOnABCD(t *testing.T) {
	sess := classic(t, Minimax{})
	ctx := context.Background()

	guess, err := sess.Turn(ctx, Percept{})
	require.NoError(t, err)

	guess, err = sess.Turn(ctx, Percept{GuessCount: 1, LastGuess: guess, InPlace: 1, InColour: 1})
	require.NoError(t, err)
	assert.Equal(t, "ABCC", guess.String())
	assert.Equal(t, 207, sess.Remaining())

	guess, err = sess.Turn(ctx, Percept{GuessCount: 2, LastGuess: guess, InPlace: 3})
	require.NoError(t, err)
	assert.Equal(t, "ABCD", guess.String())

	_, err = sess.Turn(ctx, Percept{GuessCount: 3, LastGuess: guess, InPlace: 4})
	assert.ErrorIs(t, err, ErrGameOver)
	assert.Equal(t, Solved, sess.State())
	last, ok := sess.LastScore()
	assert.True(t, ok)
	assert.Equal(t, game.Score{InPlace: 4}, last)

	_, err = sess.Turn(ctx, Percept{GuessCount: 4, LastGuess: guess, InPlace: 4})
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestSessionContradictionFails(t *testing.T) {
	sess := classic(t, nil)
	ctx := context.Background()
	_, err := sess.Turn(ctx, Percept{})
	require.NoError(t, err)

	// After (0,0) against AABB no candidate holds A or B, so none can score (1,0) against ABAB.
	_, err = sess.Turn(ctx, Percept{GuessCount: 1, LastGuess: mustCode(t, "AABB"), InPlace: 0, InColour: 0})
	require.NoError(t, err)
	_, err = sess.Turn(ctx, Percept{GuessCount: 2, LastGuess: mustCode(t, "ABAB"), InPlace: 1, InColour: 0})
	assert.ErrorIs(t, err, ErrNoConsistentCandidates)
	assert.Equal(t, Failed, sess.State())
	assert.ErrorIs(t, sess.Err(), ErrNoConsistentCandidates)

	_, err = sess.Turn(ctx, Percept{GuessCount: 3, LastGuess: mustCode(t, "CCCC"), InPlace: 1})
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestSessionExhaustsGuesses(t *testing.T) {
	sess, err := New(Config{CodeLength: 4, Colours: game.Palette("ABCDEF"), NumGuesses: 2})
	require.NoError(t, err)
	ctx := context.Background()
	g1, err := sess.Turn(ctx, Percept{})
	require.NoError(t, err)
	g2, err := sess.Turn(ctx, Percept{GuessCount: 1, LastGuess: g1, InPlace: 0, InColour: 1})
	require.NoError(t, err)
	_, err = sess.Turn(ctx, Percept{GuessCount: 2, LastGuess: g2, InPlace: 0, InColour: 1})
	assert.ErrorIs(t, err, ErrGameOver)
	assert.Equal(t, ExhaustedGuesses, sess.State())
}

func TestSessionRejectsBadPercepts(t *testing.T) {
	sess := classic(t, nil)
	ctx := context.Background()

	_, err := sess.Turn(ctx, Percept{GuessCount: 1, LastGuess: mustCode(t, "AABB"), InPlace: 1})
	assert.ErrorIs(t, err, ErrInvalidPercept, "turn before opening")

	_, err = sess.Turn(ctx, Percept{})
	require.NoError(t, err)
	_, err = sess.Turn(ctx, Percept{GuessCount: 1, LastGuess: mustCode(t, "AAB"), InPlace: 1})
	assert.ErrorIs(t, err, ErrInvalidPercept)
	assert.Equal(t, AwaitingGuess, sess.State(), "rejected percepts leave the session usable")
}

func TestSessionRestartsOnGuessCountZero(t *testing.T) {
	sess := classic(t, nil)
	play(t, sess, mustCode(t, "FEDC"))
	require.Equal(t, Solved, sess.State())

	guess, err := sess.Turn(context.Background(), Percept{})
	require.NoError(t, err)
	assert.Equal(t, "AABB", guess.String())
	assert.Equal(t, AwaitingGuess, sess.State())
	assert.Equal(t, 1295, sess.Remaining())
}

func TestSessionsDoNotShareState(t *testing.T) {
	a, b := classic(t, nil), classic(t, nil)
	ctx := context.Background()
	ga, _ := a.Turn(ctx, Percept{})
	_, _ = b.Turn(ctx, Percept{})
	_, err := a.Turn(ctx, Percept{GuessCount: 1, LastGuess: ga, InPlace: 0, InColour: 0})
	require.NoError(t, err)
	assert.Equal(t, 1295, b.Remaining())
	assert.Less(t, a.Remaining(), 256)
}

func TestSessionSolvesEverySecret(t *testing.T) {
	t.Run("mini", func(t *testing.T) {
		palette := game.Palette("ABCD")
		for _, s := range []Strategy{Minimax{}, Knuth{}, Lazy{}} {
			t.Run(s.Name(), func(t *testing.T) {
				for _, secret := range FullSpace(palette, 3).Codes() {
					sess, err := New(Config{CodeLength: 3, Colours: palette, NumGuesses: 8, Strategy: s})
					require.NoError(t, err)
					n := play(t, sess, secret)
					require.Equal(t, Solved, sess.State(), "secret %s", secret)
					assert.LessOrEqual(t, n, 5, "secret %s", secret)
				}
			})
		}
	})

	t.Run("classic", func(t *testing.T) {
		if testing.Short() {
			t.Skip("exhaustive classic run")
		}
		worst := 0
		for _, secret := range FullSpace(game.Palette("ABCDEF"), 4).Codes() {
			sess := classic(t, Minimax{})
			n := play(t, sess, secret)
			require.Equal(t, Solved, sess.State(), "secret %s", secret)
			worst = max(worst, n)
		}
		assert.Equal(t, 8, worst)
	})
}

func TestStateText(t *testing.T) {
	for _, st := range []State{NotStarted, AwaitingGuess, Solved, ExhaustedGuesses, Failed} {
		b, err := st.MarshalText()
		require.NoError(t, err)
		var got State
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, st, got)
	}
	var st State
	assert.Error(t, st.UnmarshalText([]byte("won")))
	assert.True(t, Failed.Terminal())
	assert.False(t, AwaitingGuess.Terminal())
	assert.Equal(t, "state(9)", State(9).String())
}
