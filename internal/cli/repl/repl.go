package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yndnr/xpipe-go/pkg/xpipe"
)

// Executor runs one command line on the remote shell.
type Executor func(ctx context.Context, line string) (xpipe.ExecResult, error)

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	errOut    io.Writer
	prompt    string
	exec      Executor
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(r *REPL) {
		r.input, r.output, r.errOut = in, out, errOut
	}
}

// WithPrompt sets the prompt.
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// New creates a REPL that sends lines to exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		errOut:    os.Stderr,
		prompt:    "xpipe> ",
		exec:      exec,
		completer: NewCompleter(),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF, an exit command or ctx is done. Failed
// commands are reported and the loop continues, unless the shell session is
// gone.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(r.input)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.output, r.prompt)

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.output)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(r.output)
			select {
			case err := <-readErr:
				return err
			default:
				return nil
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		if line == "exit" || line == "quit" {
			return nil
		}
		if strings.HasPrefix(line, ":") {
			if r.builtin(strings.TrimPrefix(line, ":")) {
				return nil
			}
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			return err
		}
	}
}

// builtin runs a REPL command and reports whether the loop should end.
func (r *REPL) builtin(name string) bool {
	cmd, candidates, ok := r.completer.Resolve(strings.TrimSpace(name))
	if !ok {
		if len(candidates) > 1 {
			fmt.Fprintf(r.errOut, "ambiguous command :%s (%s)\n", name, strings.Join(candidates, ", "))
		} else {
			fmt.Fprintf(r.errOut, "unknown command :%s, try :help\n", name)
		}
		return false
	}

	switch cmd {
	case "exit", "quit":
		return true
	case "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
	case "help":
		fmt.Fprintln(r.output, "Each line runs as one command on the remote shell.")
		fmt.Fprintf(r.output, "REPL commands: :%s\n", strings.Join(r.completer.Complete(""), ", :"))
	}
	return false
}

func (r *REPL) execute(ctx context.Context, line string) error {
	res, err := r.exec(ctx, line)
	if err != nil {
		if errors.Is(err, xpipe.ErrSessionNotOpen) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(r.errOut, "error: %v\n", err)
		return nil
	}

	if res.Stdout != "" {
		fmt.Fprintln(r.output, strings.TrimSuffix(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		fmt.Fprintln(r.errOut, strings.TrimSuffix(res.Stderr, "\n"))
	}
	if !res.Success() {
		fmt.Fprintf(r.errOut, "[exit %d]\n", res.ExitCode)
	}
	return nil
}
