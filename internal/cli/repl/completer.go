package repl

import (
	"sort"
	"strings"
)

// Completer resolves abbreviated REPL commands.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer for the built-in REPL commands.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{"exit", "help", "history", "quit"},
	}
}

// Complete returns the commands starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve returns the single command matching prefix. ok is false when
// nothing or more than one command matches; candidates lists the matches.
func (c *Completer) Resolve(prefix string) (cmd string, candidates []string, ok bool) {
	candidates = c.Complete(prefix)
	for _, m := range candidates {
		if m == prefix {
			return m, candidates, true
		}
	}
	if len(candidates) == 1 {
		return candidates[0], candidates, true
	}
	return "", candidates, false
}
