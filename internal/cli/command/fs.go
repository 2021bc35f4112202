package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/xpipe-go/internal/cli/output"
	"github.com/yndnr/xpipe-go/pkg/xpipe"
)

// FsCommand returns the fs subcommand group.
func FsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fs",
		Usage: "Transfer files to and from a connection",
		Subcommands: []*cli.Command{
			{
				Name:      "read",
				Aliases:   []string{"cat"},
				Usage:     "Print a remote file",
				ArgsUsage: "CONNECTION PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write to a local file instead of stdout",
					},
				},
				Action: fsRead,
			},
			{
				Name:      "write",
				Usage:     "Upload a local file, or stdin, to a remote path",
				ArgsUsage: "CONNECTION PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "in",
						Usage: "Local file to upload (default stdin)",
					},
				},
				Action: fsWrite,
			},
			{
				Name:      "script",
				Usage:     "Upload a local script and run it",
				ArgsUsage: "CONNECTION FILE",
				Action:    fsScript,
			},
		},
	}
}

func connectionAndPath(c *cli.Context) (string, string, error) {
	if c.NArg() != 2 {
		return "", "", fmt.Errorf("expected CONNECTION and PATH, got %d argument(s)", c.NArg())
	}
	return c.Args().Get(0), c.Args().Get(1), nil
}

func fsRead(c *cli.Context) error {
	conn, path, err := connectionAndPath(c)
	if err != nil {
		return err
	}
	id, err := resolveConnection(c, conn)
	if err != nil {
		return err
	}

	var data []byte
	err = getState(c).client.WithShell(c.Context, id, func(sh *xpipe.Shell) error {
		var err error
		data, err = sh.Read(c.Context, path)
		return err
	})
	if err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		return os.WriteFile(out, data, 0o644)
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func fsWrite(c *cli.Context) error {
	conn, path, err := connectionAndPath(c)
	if err != nil {
		return err
	}
	id, err := resolveConnection(c, conn)
	if err != nil {
		return err
	}

	var content []byte
	if in := c.String("in"); in != "" {
		content, err = os.ReadFile(in)
	} else {
		content, err = io.ReadAll(c.App.Reader)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	err = getState(c).client.WithShell(c.Context, id, func(sh *xpipe.Shell) error {
		return sh.WriteBytes(c.Context, content, path)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "wrote %s to %s\n", output.FormatBytes(int64(len(content))), path)
	return nil
}

func fsScript(c *cli.Context) error {
	conn, file, err := connectionAndPath(c)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if len(content) == 0 {
		return errors.New("script is empty")
	}
	id, err := resolveConnection(c, conn)
	if err != nil {
		return err
	}

	st := getState(c)
	var res xpipe.ExecResult
	err = st.client.WithShell(c.Context, id, func(sh *xpipe.Shell) error {
		var err error
		res, err = sh.RunScript(c.Context, content)
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
