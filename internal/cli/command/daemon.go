package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/xpipe-go/internal/cli/output"
	"github.com/yndnr/xpipe-go/internal/infra/buildinfo"
	"github.com/yndnr/xpipe-go/pkg/xpipe"
)

// DaemonCommand returns the daemon subcommand group.
func DaemonCommand() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Inspect the running daemon",
		Subcommands: []*cli.Command{
			{
				Name:   "version",
				Usage:  "Show daemon and client versions",
				Action: daemonVersion,
			},
		},
	}
}

func daemonVersion(c *cli.Context) error {
	st := getState(c)
	v, err := st.client.DaemonVersion(c.Context)
	if err != nil {
		return err
	}

	client := buildinfo.Get()
	t := output.NewTable("KEY", "VALUE")
	t.AddRow("daemon", v.Version)
	t.AddRow("canonical", output.Cell(v.CanonicalVersion))
	t.AddRow("build", output.Cell(v.BuildVersion))
	t.AddRow("jvm", output.Cell(v.JavaVersion))
	t.AddRow("pro", output.Cell(v.Pro))
	t.AddRow("client", client.Version)
	t.AddRow("daemon url", st.client.BaseURL())

	return st.printer.Print(struct {
		Daemon xpipe.DaemonVersion `json:"daemon" yaml:"daemon"`
		Client buildinfo.Info      `json:"client" yaml:"client"`
	}{v, client}, t)
}
