// Package daily derives the deterministic "code of the day" and stores
// daily results.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/mastermind/internal/game"
	"github.com/robalobadob/mastermind/internal/rules"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SecretIndex returns a deterministic index for a date using HMAC(salt, YYYY-MM-DD) % spaceSize.
func SecretIndex(date time.Time, salt string, spaceSize int) int {
	if spaceSize <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % uint64(spaceSize))
}

// CodeAt decodes idx as base-len(colours) digits, most significant first,
// matching the order of the solver's full code space.
func CodeAt(idx int, r rules.Rules) game.Code {
	out := make(game.Code, r.CodeLength)
	base := len(r.Colours)
	for i := r.CodeLength - 1; i >= 0; i-- {
		out[i] = r.Colours[idx%base]
		idx /= base
	}
	return out
}

// SecretFor returns the day's secret code and its index in the code space.
func SecretFor(date time.Time, salt string, r rules.Rules) (game.Code, int) {
	idx := SecretIndex(date, salt, r.SpaceSize())
	return CodeAt(idx, r), idx
}
