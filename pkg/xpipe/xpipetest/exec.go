package xpipetest

import (
	"errors"
	"strconv"
	"strings"
)

type execResult struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

const maxScriptDepth = 8

var errUnterminatedQuote = errors.New("unterminated quoted string")

// runCommand interprets one command line against a connection's files.
// Output has no trailing newline, matching the daemon.
func runCommand(files map[string][]byte, line string, depth int) execResult {
	words, err := splitWords(line)
	if err != nil {
		return execResult{ExitCode: 2, Stderr: "sh: 1: Syntax error: " + err.Error()}
	}
	if len(words) == 0 {
		return execResult{}
	}

	name, args := words[0], words[1:]
	switch name {
	case "echo":
		return execResult{Stdout: strings.Join(args, " ")}
	case "true":
		return execResult{}
	case "false":
		return execResult{ExitCode: 1}
	case "exit":
		code := 0
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return execResult{ExitCode: 2, Stderr: "sh: 1: exit: Illegal number: " + args[0]}
			}
			code = n
		}
		return execResult{ExitCode: code}
	case "cat":
		var out []string
		for _, p := range args {
			data, ok := files[p]
			if !ok {
				return execResult{ExitCode: 1, Stdout: strings.Join(out, ""), Stderr: "cat: " + p + ": No such file or directory"}
			}
			out = append(out, string(data))
		}
		return execResult{Stdout: strings.TrimSuffix(strings.Join(out, ""), "\n")}
	case "sh", "bash":
		if len(args) == 0 {
			return execResult{}
		}
		name = args[0]
	}

	if script, ok := files[name]; ok {
		if depth >= maxScriptDepth {
			return execResult{ExitCode: 2, Stderr: "sh: script nesting too deep"}
		}
		return runScript(files, string(script), depth+1)
	}
	return execResult{ExitCode: 127, Stderr: "sh: 1: " + name + ": not found"}
}

// runScript runs a script line by line. exit stops the script; otherwise
// the last line's exit code wins.
func runScript(files map[string][]byte, script string, depth int) execResult {
	var (
		res    execResult
		stdout []string
		stderr []string
	)
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r := runCommand(files, line, depth)
		if r.Stdout != "" {
			stdout = append(stdout, r.Stdout)
		}
		if r.Stderr != "" {
			stderr = append(stderr, r.Stderr)
		}
		res.ExitCode = r.ExitCode
		if words, _ := splitWords(line); len(words) > 0 && words[0] == "exit" {
			break
		}
	}
	res.Stdout = strings.Join(stdout, "\n")
	res.Stderr = strings.Join(stderr, "\n")
	return res
}

// splitWords splits a command line into words using POSIX quoting: single
// quotes are literal, double quotes allow backslash escapes, and adjacent
// quoted parts join into one word.
func splitWords(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == ' ' || ch == '\t':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		case ch == '\'':
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, errUnterminatedQuote
			}
			current.WriteString(line[i+1 : i+1+end])
			i += end + 1
			inWord = true
		case ch == '"':
			i++
			for ; i < len(line) && line[i] != '"'; i++ {
				if line[i] == '\\' && i+1 < len(line) && strings.IndexByte(`"\$`+"`", line[i+1]) >= 0 {
					i++
				}
				current.WriteByte(line[i])
			}
			if i >= len(line) {
				return nil, errUnterminatedQuote
			}
			inWord = true
		case ch == '\\' && i+1 < len(line):
			i++
			current.WriteByte(line[i])
			inWord = true
		default:
			current.WriteByte(ch)
			inWord = true
		}
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
