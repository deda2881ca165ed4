// Package outdef parses the output-definition ("odef") file and binds
// its glob patterns against a Context's available variables to
// produce the ordered outvars list. Grounded on
// original_source/Context.cxx's wildcard-match loop in Init().
package outdef

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hallaphys/ppar/variable"
	"golang.org/x/xerrors"
)

// ParsePatterns reads filename and returns the ordered list of
// non-empty, comment-stripped glob pattern lines it contains.
func ParsePatterns(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, xerrors.Errorf("outdef: open %s: %w", filename, err)
	}
	defer f.Close()
	return parsePatterns(f)
}

func parsePatterns(r io.Reader) ([]string, error) {
	var patterns []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Errorf("outdef: read error: %w", err)
	}
	return patterns, nil
}

// Bind matches each pattern against every name in available, in
// pattern-line order, and returns the matched variables in the order
// encountered. Matching is case-sensitive and uses path/filepath.Match
// glob semantics ('*' matches zero or more characters).
//
// A variable may match more than once across distinct pattern lines;
// those repeats are intentionally not deduplicated (spec.md §9, Open
// Question 1 — see DESIGN.md).
func Bind(patterns []string, available []variable.Variable) ([]variable.Variable, error) {
	var out []variable.Variable
	for _, pattern := range patterns {
		for _, v := range available {
			ok, err := filepath.Match(pattern, v.Name())
			if err != nil {
				return nil, xerrors.Errorf("outdef: bad pattern %q: %w", pattern, err)
			}
			if ok {
				out = append(out, v)
			}
		}
	}
	return out, nil
}
