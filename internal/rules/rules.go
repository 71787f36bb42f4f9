// internal/rules/rules.go
//
// Provides game preset management.
//
// Responsibilities:
//   - Load named presets (code length, palette, guess budget) from a file or
//     fall back to the embedded defaults.
//   - Maintain a lookup by name, keeping file order for listings.
//   - Supply helpers like Get, Default, Names, and SpaceSize.
//
// Preset lines (whitespace separated, '#' starts a comment):
//   classic   4   ABCDEF   10
//
// Initialization behavior (Init):
//   1. If path is non-empty, load presets from that file.
//   2. Otherwise use the embedded assets/presets.txt table.
//
// Constraints:
//   • Names are lowercase and unique.
//   • Palettes need at least two distinct colours; length and budget are positive.
//   • Initialization is run once (sync.Once).

package rules

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/robalobadob/mastermind/assets"
	"github.com/robalobadob/mastermind/internal/game"
)

// DefaultName is the preset used when a request names none.
const DefaultName = "classic"

// ErrUnknownPreset is returned by Get for names that were not loaded.
var ErrUnknownPreset = errors.New("unknown preset")

// Rules fixes the dimensions of one game.
type Rules struct {
	Name       string       `json:"name"`
	CodeLength int          `json:"codeLength"`
	Colours    game.Palette `json:"colours"`
	MaxGuesses int          `json:"maxGuesses"`
}

// SpaceSize is the number of distinct codes: colours^length.
func (r Rules) SpaceSize() int {
	n := 1
	for i := 0; i < r.CodeLength; i++ {
		n *= len(r.Colours)
	}
	return n
}

// ParseCode parses s as a code under these rules.
func (r Rules) ParseCode(s string) (game.Code, error) {
	return game.ParseCode(s, r.CodeLength, r.Colours)
}

// NewGame starts a harness game; a nil secret draws a random one.
func (r Rules) NewGame(secret game.Code) (*game.Game, error) {
	return game.New(secret, r.CodeLength, r.Colours, r.MaxGuesses)
}

var (
	initOnce   sync.Once
	presets    []Rules          // file order
	presetsSet map[string]Rules // keyed by name
	initialErr error
)

// Init loads presets exactly once.
// Returns an error if no valid preset could be loaded.
func Init(path string) error {
	initOnce.Do(func() {
		var lines []string
		var err error
		if path != "" {
			lines, err = readPresetFile(path)
		} else {
			lines, err = assets.PresetLines()
		}
		if err != nil {
			initialErr = err
			return
		}
		list, err := parseLines(lines)
		if err != nil {
			initialErr = err
			return
		}
		if len(list) == 0 {
			initialErr = errors.New("rules: preset list is empty")
			return
		}
		presets = list
		presetsSet = make(map[string]Rules, len(list))
		for _, r := range list {
			presetsSet[r.Name] = r
		}
	})
	return initialErr
}

// readPresetFile loads non-blank, non-comment lines from a file.
func readPresetFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// parseLines converts preset lines into Rules, rejecting malformed or duplicate entries.
func parseLines(lines []string) ([]Rules, error) {
	seen := make(map[string]bool, len(lines))
	var out []Rules
	for _, line := range lines {
		r, err := Parse(line)
		if err != nil {
			return nil, err
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rules: duplicate preset %q", r.Name)
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out, nil
}

// Parse reads one "name length colours max_guesses" line.
func Parse(line string) (Rules, error) {
	f := strings.Fields(line)
	if len(f) != 4 {
		return Rules{}, fmt.Errorf("rules: %q: want 4 fields, got %d", line, len(f))
	}
	length, err := strconv.Atoi(f[1])
	if err != nil || length <= 0 {
		return Rules{}, fmt.Errorf("rules: %q: bad length %q", line, f[1])
	}
	palette, err := game.ParsePalette(f[2])
	if err != nil {
		return Rules{}, fmt.Errorf("rules: %q: %w", line, err)
	}
	if len(palette) < 2 {
		return Rules{}, fmt.Errorf("rules: %q: need at least two colours", line)
	}
	budget, err := strconv.Atoi(f[3])
	if err != nil || budget <= 0 {
		return Rules{}, fmt.Errorf("rules: %q: bad guess budget %q", line, f[3])
	}
	return Rules{Name: strings.ToLower(f[0]), CodeLength: length, Colours: palette, MaxGuesses: budget}, nil
}

// Get returns the named preset; the empty name means DefaultName.
func Get(name string) (Rules, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default(), nil
	}
	if r, ok := presetsSet[name]; ok {
		return r, nil
	}
	return Rules{}, fmt.Errorf("%q: %w", name, ErrUnknownPreset)
}

// Default returns the classic preset, or the first one loaded if the file has no classic.
// If nothing is loaded yet it falls back to 4 pegs over ABCDEF with 10 guesses.
func Default() Rules {
	if r, ok := presetsSet[DefaultName]; ok {
		return r
	}
	if len(presets) > 0 {
		return presets[0]
	}
	return Rules{Name: DefaultName, CodeLength: 4, Colours: game.Palette("ABCDEF"), MaxGuesses: 10}
}

// All returns the loaded presets in file order.
func All() []Rules {
	return append([]Rules(nil), presets...)
}

// Names returns the loaded preset names in file order.
func Names() []string {
	out := make([]string, len(presets))
	for i, r := range presets {
		out[i] = r.Name
	}
	return out
}
