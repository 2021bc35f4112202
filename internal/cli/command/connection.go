package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/xpipe-go/internal/cli/output"
	"github.com/yndnr/xpipe-go/pkg/xpipe"
)

// ConnectionCommand returns the connection subcommand group.
func ConnectionCommand() *cli.Command {
	return &cli.Command{
		Name:    "connection",
		Aliases: []string{"conn"},
		Usage:   "Query connections and trigger GUI actions",
		Subcommands: []*cli.Command{
			{
				Name:   "query",
				Usage:  "Print the UUIDs of matching connections",
				Flags:  filterFlags(),
				Action: connectionQuery,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List matching connections with details",
				Flags:   filterFlags(),
				Action:  connectionList,
			},
			{
				Name:      "info",
				Usage:     "Show details of connections",
				ArgsUsage: "CONNECTION...",
				Action:    connectionInfo,
			},
			{
				Name:      "add",
				Usage:     "Add a connection from its JSON store data",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Connection data as JSON, or @FILE, or - for stdin",
					},
					&cli.BoolFlag{
						Name:  "validate",
						Usage: "Have the daemon test the connection first",
					},
				},
				Action: connectionAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove connections",
				ArgsUsage: "CONNECTION...",
				Action:    connectionRemove,
			},
			{
				Name:      "browse",
				Usage:     "Open the file browser for a connection",
				ArgsUsage: "CONNECTION",
				Flags:     []cli.Flag{dirFlag()},
				Action:    connectionBrowse,
			},
			{
				Name:      "terminal",
				Usage:     "Open a terminal for a connection",
				ArgsUsage: "CONNECTION",
				Flags:     []cli.Flag{dirFlag()},
				Action:    connectionTerminal,
			},
			{
				Name:      "toggle",
				Usage:     "Switch a toggleable connection on or off",
				ArgsUsage: "CONNECTION",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "active",
						Value: true,
						Usage: "Target state; use --active=false to switch off",
					},
				},
				Action: connectionToggle,
			},
			{
				Name:      "refresh",
				Usage:     "Refresh a connection's state",
				ArgsUsage: "CONNECTION",
				Action:    connectionRefresh,
			},
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "category",
			Aliases: []string{"c"},
			Usage:   "Category path glob",
			Value:   "**",
		},
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Connection name glob",
			Value:   "**",
		},
		&cli.StringFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Usage:   "Connection type glob",
			Value:   "*",
		},
	}
}

func dirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "dir",
		Usage: "Starting directory",
	}
}

func queryFilter(c *cli.Context) xpipe.QueryFilter {
	return xpipe.QueryFilter{
		Categories: c.String("category"),
		Names:      c.String("name"),
		Types:      c.String("type"),
	}
}

// detailTable renders connections one per row.
func detailTable(details []xpipe.ConnectionDetail) *output.Table {
	t := output.NewTable("CONNECTION", "CATEGORY", "NAME", "TYPE", "LAST USED")
	for _, d := range details {
		t.AddRow(d.Connection.String(), output.Cell(d.Category), output.Cell(d.Name), output.Cell(d.Type), output.Cell(d.LastUsed))
	}
	return t
}

func idTable(ids []uuid.UUID) *output.Table {
	t := output.NewTable("CONNECTION")
	for _, id := range ids {
		t.AddRow(id.String())
	}
	return t
}

func connectionQuery(c *cli.Context) error {
	st := getState(c)
	ids, err := st.client.Query(c.Context, queryFilter(c))
	if err != nil {
		return err
	}
	return st.printer.Print(ids, idTable(ids))
}

func connectionList(c *cli.Context) error {
	st := getState(c)
	details, err := st.client.List(c.Context, queryFilter(c))
	if err != nil {
		return err
	}
	return st.printer.Print(details, detailTable(details))
}

func connectionInfo(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one connection required")
	}
	st := getState(c)
	ids, err := resolveConnections(c, c.Args().Slice())
	if err != nil {
		return err
	}
	details, err := st.client.Info(c.Context, ids)
	if err != nil {
		return err
	}
	return st.printer.Print(details, detailTable(details))
}

func connectionAdd(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("connection name required")
	}
	data, err := readData(c.String("data"), c.App.Reader)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return errors.New("connection data is not valid JSON")
	}

	st := getState(c)
	id, err := st.client.Add(c.Context, name, data, c.Bool("validate"))
	if err != nil {
		return err
	}
	return st.printer.Print(map[string]string{"connection": id.String()}, idTable([]uuid.UUID{id}))
}

// readData resolves the --data value: inline JSON, @FILE or - for in.
func readData(value string, in io.Reader) ([]byte, error) {
	switch {
	case value == "":
		return nil, errors.New("--data required")
	case value == "-":
		return io.ReadAll(in)
	case value[0] == '@':
		data, err := os.ReadFile(value[1:])
		if err != nil {
			return nil, fmt.Errorf("read connection data: %w", err)
		}
		return data, nil
	default:
		return []byte(value), nil
	}
}

func connectionRemove(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one connection required")
	}
	st := getState(c)
	ids, err := resolveConnections(c, c.Args().Slice())
	if err != nil {
		return err
	}
	if err := st.client.Remove(c.Context, ids); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed %d connection(s)\n", len(ids))
	return nil
}

func connectionBrowse(c *cli.Context) error {
	id, err := resolveConnection(c, c.Args().First())
	if err != nil {
		return err
	}
	return getState(c).client.Browse(c.Context, id, c.String("dir"))
}

func connectionTerminal(c *cli.Context) error {
	id, err := resolveConnection(c, c.Args().First())
	if err != nil {
		return err
	}
	return getState(c).client.Terminal(c.Context, id, c.String("dir"))
}

func connectionToggle(c *cli.Context) error {
	id, err := resolveConnection(c, c.Args().First())
	if err != nil {
		return err
	}
	return getState(c).client.Toggle(c.Context, id, c.Bool("active"))
}

func connectionRefresh(c *cli.Context) error {
	id, err := resolveConnection(c, c.Args().First())
	if err != nil {
		return err
	}
	return getState(c).client.Refresh(c.Context, id)
}
