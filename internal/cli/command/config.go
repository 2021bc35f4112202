package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/xpipe-go/internal/cli/config"
	"github.com/yndnr/xpipe-go/internal/cli/output"
	"github.com/yndnr/xpipe-go/pkg/token"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Local CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Show the config and key file locations",
				Action: configPath,
			},
			{
				Name:   "save",
				Usage:  "Write the effective configuration, including flags, to the config file",
				Action: configSave,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	st := getState(c)
	shown := *st.cfg
	if shown.Auth.Token != "" {
		shown.Auth.Token = "fingerprint:" + token.Fingerprint(shown.Auth.Token)
	}
	return st.printer.Print(shown, nil)
}

func configPath(c *cli.Context) error {
	st := getState(c)
	t := output.NewTable("KEY", "VALUE")
	t.AddRow("config", st.cfgPath)
	t.AddRow("key", config.KeyPath(st.cfgPath))
	t.AddRow("auth file", output.Cell(st.cfg.Auth.File))
	return st.printer.Print(map[string]string{
		"config":    st.cfgPath,
		"key":       config.KeyPath(st.cfgPath),
		"auth_file": st.cfg.Auth.File,
	}, t)
}

func configSave(c *cli.Context) error {
	st := getState(c)
	if err := config.Save(st.cfg, st.cfgPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "saved %s\n", st.cfgPath)
	return nil
}
