// Package ignorefilter implements the glob-based ignore DSL the sync
// engine uses to exclude paths from filesystem import/export.
package ignorefilter

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

type pattern struct {
	raw      string // un-prefixed spelling, used for sorting
	inverted bool
	compiled glob.Glob
}

// Filter is an ordered set of compiled glob patterns. A zero-value
// Filter is inactive and matches nothing.
type Filter struct {
	patterns []pattern
}

// EnvVar is the environment variable holding the ignore-filter DSL
// string.
const EnvVar = "H2KV_IGNORE"

// FromEnv builds a Filter from H2KV_IGNORE. An unset or empty variable
// yields an inactive filter.
func FromEnv() (*Filter, error) {
	src, ok := os.LookupEnv(EnvVar)
	if !ok || strings.TrimSpace(src) == "" {
		return &Filter{}, nil
	}
	return Parse(src)
}

// Parse compiles src into a Filter. src is tokenized on whitespace and
// newlines; `#` starts a comment running to end of line; a literal `\n`
// inside a token also separates it. A leading `!` marks a token as an
// exception (a match overrides a plain-pattern match, making the path
// not ignored).
func Parse(src string) (*Filter, error) {
	tokens := tokenize(src)

	patterns := make([]pattern, 0, len(tokens))
	for _, tok := range tokens {
		inverted := false
		raw := tok
		if strings.HasPrefix(raw, "!") {
			inverted = true
			raw = raw[1:]
		}
		if raw == "" {
			continue
		}
		g, err := glob.Compile(raw, '/')
		if err != nil {
			return nil, fmt.Errorf("ignorefilter: compile pattern %q: %w", tok, err)
		}
		patterns = append(patterns, pattern{raw: raw, inverted: inverted, compiled: g})
	}

	// Reverse lexicographic order of the un-prefixed spelling, so
	// construction order never affects which pattern wins a tie and
	// "more specific" exceptions sort ahead of broader plain patterns
	// sharing a prefix. Among patterns with identical spelling,
	// exceptions sort first.
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].raw != patterns[j].raw {
			return patterns[i].raw > patterns[j].raw
		}
		return patterns[i].inverted && !patterns[j].inverted
	})

	return &Filter{patterns: patterns}, nil
}

func tokenize(src string) []string {
	src = strings.ReplaceAll(src, "\\n", "\n")

	var tokens []string
	for _, line := range strings.Split(src, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		tokens = append(tokens, strings.Fields(line)...)
	}
	return tokens
}

// Matches reports whether path is ignored. The first pattern (in the
// sorted order Parse establishes) that matches wins: an exception match returns
// false, a plain-pattern match returns true. No match returns false.
func (f *Filter) Matches(path string) bool {
	if f == nil {
		return false
	}
	for _, p := range f.patterns {
		if p.compiled.Match(path) {
			return !p.inverted
		}
	}
	return false
}
