package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed presets.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// PresetLines returns the non-comment lines of the embedded preset table.
func PresetLines() ([]string, error) {
	return readLines("presets.txt")
}
