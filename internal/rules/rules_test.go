package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mastermind/internal/game"
)

func TestMain(m *testing.M) {
	if err := Init(""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestParse(t *testing.T) {
	r, err := Parse("Classic  4  abcdef  10")
	require.NoError(t, err)
	assert.Equal(t, "classic", r.Name)
	assert.Equal(t, 4, r.CodeLength)
	assert.Equal(t, "ABCDEF", r.Colours.String())
	assert.Equal(t, 10, r.MaxGuesses)
	assert.Equal(t, 1296, r.SpaceSize())

	for _, line := range []string{
		"classic 4 ABCDEF",
		"classic x ABCDEF 10",
		"classic 0 ABCDEF 10",
		"classic 4 A 10",
		"classic 4 ABCA 10",
		"classic 4 ABCDEF -1",
	} {
		_, err := Parse(line)
		assert.Error(t, err, line)
	}
}

func TestParseLinesRejectsDuplicates(t *testing.T) {
	_, err := parseLines([]string{"a 2 AB 4", "A 3 ABC 5"})
	assert.ErrorContains(t, err, "duplicate")
}

func TestEmbeddedPresets(t *testing.T) {
	assert.Equal(t, []string{"classic", "mini", "duo", "super"}, Names())
	assert.Len(t, All(), 4)

	r, err := Get("MINI")
	require.NoError(t, err)
	assert.Equal(t, Rules{Name: "mini", CodeLength: 3, Colours: game.Palette("ABCD"), MaxGuesses: 8}, r)

	def, err := Get("")
	require.NoError(t, err)
	assert.Equal(t, "classic", def.Name)
	assert.Equal(t, def, Default())

	_, err = Get("nope")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestRulesParseCodeAndNewGame(t *testing.T) {
	r := Default()
	c, err := r.ParseCode("abcd")
	require.NoError(t, err)
	assert.Equal(t, "ABCD", c.String())

	_, err = r.ParseCode("ABCG")
	assert.ErrorIs(t, err, game.ErrUnknownColour)

	g, err := r.NewGame(c)
	require.NoError(t, err)
	assert.Equal(t, 10, g.MaxGuesses)
	assert.Equal(t, "ABCD", g.Secret.String())

	g, err = r.NewGame(nil)
	require.NoError(t, err)
	assert.Len(t, g.Secret, 4)
}

func TestReadPresetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.txt")
	require.NoError(t, os.WriteFile(path, []byte("# name len colours guesses\n\ntiny 2 XY 3\n"), 0o644))
	lines, err := readPresetFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tiny 2 XY 3"}, lines)

	_, err = readPresetFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestRulesJSON(t *testing.T) {
	b, err := json.Marshal(Default())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"classic","codeLength":4,"colours":"ABCDEF","maxGuesses":10}`, string(b))

	var r Rules
	require.NoError(t, json.Unmarshal(b, &r))
	assert.Equal(t, Default(), r)
}
