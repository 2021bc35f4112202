// Package glob matches hierarchical paths against case-insensitive glob
// patterns.
//
// A path is a sequence of segments, written with "/" as separator
// ("Servers/Prod/web-1"). Within a segment the usual wildcards apply:
// "*" matches any run of characters, "?" a single character and "[...]" a
// character class. A segment consisting only of "**" matches zero or more
// whole segments, so "Servers" matches exactly that path while "Servers/**"
// matches it and every descendant.
package glob

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Separator delimits path segments in pattern and path strings.
const Separator = "/"

const anySegments = "**"

// ErrBadPattern is returned by Compile for malformed patterns.
var ErrBadPattern = errors.New("glob: malformed pattern")

// Pattern is a compiled glob pattern. The zero value matches nothing.
type Pattern struct {
	raw      string
	segments []string
}

// Compile parses pattern. An empty pattern is rejected; use "**" to match
// every path.
func Compile(pattern string) (*Pattern, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrBadPattern)
	}

	segments := strings.Split(strings.ToLower(pattern), Separator)
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrBadPattern, pattern)
		}
		if seg == anySegments {
			continue
		}
		if strings.Contains(seg, anySegments) {
			return nil, fmt.Errorf("%w: %q must be a whole segment in %q", ErrBadPattern, anySegments, pattern)
		}
		if _, err := path.Match(seg, ""); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, pattern, err)
		}
	}

	return &Pattern{raw: pattern, segments: segments}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern as given to Compile.
func (p *Pattern) String() string {
	return p.raw
}

// Match reports whether the segment sequence matches the pattern.
func (p *Pattern) Match(segments []string) bool {
	if p == nil || len(p.segments) == 0 {
		return false
	}
	lowered := make([]string, len(segments))
	for i, s := range segments {
		lowered[i] = strings.ToLower(s)
	}
	return matchSegments(p.segments, lowered)
}

// MatchString splits s on Separator and matches the result.
func (p *Pattern) MatchString(s string) bool {
	return p.Match(strings.Split(s, Separator))
}

// Match compiles pattern and matches it against s.
func Match(pattern, s string) (bool, error) {
	p, err := Compile(pattern)
	if err != nil {
		return false, err
	}
	return p.MatchString(s), nil
}

func matchSegments(pattern, segments []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == anySegments {
			for len(pattern) > 0 && pattern[0] == anySegments {
				pattern = pattern[1:]
			}
			if len(pattern) == 0 {
				return true
			}
			for i := 0; i <= len(segments); i++ {
				if matchSegments(pattern, segments[i:]) {
					return true
				}
			}
			return false
		}

		if len(segments) == 0 {
			return false
		}
		// Patterns were validated by Compile, so the error is always nil.
		if ok, _ := path.Match(pattern[0], segments[0]); !ok {
			return false
		}
		pattern, segments = pattern[1:], segments[1:]
	}
	return len(segments) == 0
}
