package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/xpipe-go/internal/cli/output"
	"github.com/yndnr/xpipe-go/internal/cli/repl"
	"github.com/yndnr/xpipe-go/internal/infra/confloader"
	"github.com/yndnr/xpipe-go/internal/infra/shutdown"
	"github.com/yndnr/xpipe-go/pkg/xpipe"
)

const replShutdownTimeout = 5 * time.Second

// ShellCommand returns the shell subcommand group.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands in a connection's shell",
		Subcommands: []*cli.Command{
			{
				Name:      "exec",
				Usage:     "Start a shell, run one command and stop the shell",
				ArgsUsage: "CONNECTION -- COMMAND...",
				Action:    shellExec,
			},
			{
				Name:      "repl",
				Usage:     "Run commands line by line in one shell session",
				ArgsUsage: "CONNECTION",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "history",
						Usage: "History file; empty disables it",
						Value: repl.DefaultHistoryPath(),
					},
				},
				Action: shellREPL,
			},
		},
	}
}

func shellExec(c *cli.Context) error {
	args := c.Args()
	words := args.Tail()
	if len(words) > 0 && words[0] == "--" {
		words = words[1:]
	}
	command := strings.Join(words, " ")
	if strings.TrimSpace(command) == "" {
		return errors.New("command required")
	}
	id, err := resolveConnection(c, args.First())
	if err != nil {
		return err
	}

	st := getState(c)
	var res xpipe.ExecResult
	err = st.client.WithShell(c.Context, id, func(sh *xpipe.Shell) error {
		var err error
		res, err = sh.Exec(c.Context, command)
		return err
	})
	if err != nil {
		return err
	}
	if err := printResult(c, st.printer, res); err != nil {
		return err
	}
	return exitWith(res)
}

// printResult writes stdout and stderr unchanged in table format, and the
// whole result otherwise.
func printResult(c *cli.Context, p *output.Printer, res xpipe.ExecResult) error {
	if p.Format != output.FormatTable {
		return p.Print(res, nil)
	}
	if err := writeText(c.App.Writer, res.Stdout); err != nil {
		return err
	}
	return writeText(c.App.ErrWriter, res.Stderr)
}

func writeText(w io.Writer, s string) error {
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

func shellREPL(c *cli.Context) error {
	id, err := resolveConnection(c, c.Args().First())
	if err != nil {
		return err
	}
	st := getState(c)

	h := shutdown.NewHandler(replShutdownTimeout)
	ctx := h.Context(c.Context)
	defer func() {
		if err := h.Shutdown(); err != nil {
			st.log.Warn("repl shutdown", "error", err)
		}
	}()

	history := repl.NewHistory(c.String("history"))
	if err := history.Load(); err != nil {
		st.log.Warn("load history", "error", err)
	}
	h.OnShutdown(func(context.Context) error { return history.Save() })

	if w := watchAuthFile(st); w != nil {
		h.OnShutdown(func(context.Context) error { return w.Stop() })
		go w.Run(ctx)
	}

	return st.client.WithShell(ctx, id, func(sh *xpipe.Shell) error {
		session := sh.Session()
		fmt.Fprintf(c.App.ErrWriter, "connected to %s (%s, %s)\n", session.OSName, session.Dialect, session.Connection)

		r := repl.New(sh.Exec,
			repl.WithIO(c.App.Reader, c.App.Writer, c.App.ErrWriter),
			repl.WithHistory(history),
			repl.WithPrompt(c.Args().First()+"> "),
		)
		return r.Run(ctx)
	})
}

// watchAuthFile re-authenticates whenever the daemon rewrites its auth file.
// It returns nil when an explicit token is used or the file cannot be
// watched.
func watchAuthFile(st *appState) *confloader.Watcher {
	if st.cfg.Auth.Token != "" || st.cfg.Auth.File == "" {
		return nil
	}
	w, err := confloader.NewWatcher(st.cfg.Auth.File, confloader.WithWatcherLogger(st.log))
	if err != nil {
		st.log.Debug("auth file not watched", "file", st.cfg.Auth.File, "error", err)
		return nil
	}
	w.OnChange(func(path string) {
		ctx, cancel := context.WithTimeout(context.Background(), replShutdownTimeout)
		defer cancel()
		if err := st.client.Reauthenticate(ctx); err != nil {
			st.log.Warn("re-authentication failed", "file", path, "error", err)
			return
		}
		st.log.Info("re-authenticated after auth file change", "file", path)
	})
	return w
}
