package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/xpipe-go/internal/cli/config"
	"github.com/yndnr/xpipe-go/internal/cli/output"
	"github.com/yndnr/xpipe-go/internal/infra/buildinfo"
	"github.com/yndnr/xpipe-go/internal/infra/tlsroots"
	"github.com/yndnr/xpipe-go/internal/telemetry/logger"
	"github.com/yndnr/xpipe-go/internal/telemetry/metric"
	"github.com/yndnr/xpipe-go/internal/telemetry/tracer"
	"github.com/yndnr/xpipe-go/pkg/xpipe"
)

const (
	appName     = "xpipe-cli"
	stateKey    = "state"
	teardownMax = 10 * time.Second
)

// appState is the per-invocation state built by the Before hook.
type appState struct {
	cfg      *config.CLIConfig
	cfgPath  string
	client   *xpipe.Client
	printer  *output.Printer
	log      logger.Logger
	tracer   *tracer.Provider
	gatherer prometheus.Gatherer
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    appName,
		Usage:   "Drive a running XPipe daemon from the command line",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ConnectionCommand(),
			ShellCommand(),
			FsCommand(),
			DaemonCommand(),
			ConfigCommand(),
		},
		Metadata: map[string]any{},
		Before:   before,
		After:    after,
		// Exit codes are handled by main so that tests can run the app.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI config file",
			Value: config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Daemon address (default " + xpipe.DefaultBaseURL + ")",
		},
		&cli.BoolFlag{
			Name:  "ptb",
			Usage: "Talk to the public test build on " + xpipe.PTBBaseURL,
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "API key; takes precedence over the auth file",
		},
		&cli.StringFlag{
			Name:  "auth-file",
			Usage: "Local auth file written by the daemon",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log requests at debug level",
		},
		&cli.BoolFlag{
			Name:  "trace",
			Usage: "Export request spans to stderr",
		},
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "Dump client metrics to stderr on exit",
		},
	}
}

// flagOverrides maps explicitly set flags to config keys.
func flagOverrides(c *cli.Context) map[string]any {
	m := map[string]any{}
	if c.IsSet("base-url") {
		m["server.url"] = c.String("base-url")
	}
	if c.IsSet("ptb") {
		m["server.ptb"] = c.Bool("ptb")
	}
	if c.IsSet("token") {
		m["auth.token"] = c.String("token")
	}
	if c.IsSet("auth-file") {
		m["auth.file"] = c.String("auth-file")
	}
	if c.IsSet("timeout") {
		m["server.timeout"] = c.Duration("timeout").String()
	}
	if c.IsSet("output") {
		m["output"] = c.String("output")
	}
	return m
}

func before(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path, flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	if c.Bool("verbose") {
		logger.SetLevel(log, "debug")
	}
	logger.SetDefault(log)

	rt := &appState{
		cfg:     cfg,
		cfgPath: path,
		printer: output.NewPrinter(format, c.App.Writer),
		log:     log,
	}

	opts := []xpipe.Option{
		xpipe.WithBaseURL(cfg.BaseURL()),
		xpipe.WithToken(cfg.Auth.Token),
		xpipe.WithAuthFile(cfg.Auth.File),
		xpipe.WithClientName(appName),
		xpipe.WithLogger(logger.ToSlog(log)),
	}
	if cfg.Server.Timeout > 0 {
		opts = append(opts, xpipe.WithTimeout(cfg.Server.Timeout))
	}
	if cfg.Server.RateLimit > 0 {
		opts = append(opts, xpipe.WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst))
	}
	if roots := cfg.TLSRoots(); !roots.IsZero() {
		tlsCfg, err := tlsroots.ClientConfig(roots)
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		opts = append(opts, xpipe.WithTLSConfig(tlsCfg))
	}
	if c.Bool("trace") {
		tp, err := tracer.New(tracer.Config{ServiceName: appName, Output: c.App.ErrWriter})
		if err != nil {
			return fmt.Errorf("start tracer: %w", err)
		}
		rt.tracer = tp
		opts = append(opts, xpipe.WithTracerProvider(tp.TracerProvider()))
	}
	if c.Bool("metrics") {
		reg := metric.Global()
		rt.gatherer = reg.Gatherer()
		opts = append(opts, xpipe.WithMetrics(reg.Registerer()))
	}

	rt.client, err = xpipe.New(opts...)
	if err != nil {
		return err
	}
	c.App.Metadata[stateKey] = rt
	return nil
}

// after stops shells left open by an interrupted command and flushes
// telemetry. It also runs when before failed.
func after(c *cli.Context) error {
	rt, ok := c.App.Metadata[stateKey].(*appState)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), teardownMax)
	defer cancel()

	var errs []error
	if err := rt.client.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if rt.tracer != nil {
		if err := rt.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.gatherer != nil {
		if err := dumpMetrics(c.App.ErrWriter, rt.gatherer); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "xpipe_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func getState(c *cli.Context) *appState {
	rt, _ := c.App.Metadata[stateKey].(*appState)
	return rt
}

// resolveConnection accepts a connection UUID or a name glob that matches
// exactly one connection.
func resolveConnection(c *cli.Context, arg string) (uuid.UUID, error) {
	if arg == "" {
		return uuid.Nil, errors.New("connection argument required")
	}
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}

	ids, err := getState(c).client.Query(c.Context, xpipe.QueryFilter{Names: arg})
	if err != nil {
		return uuid.Nil, err
	}
	switch len(ids) {
	case 0:
		return uuid.Nil, xpipe.ErrConnectionNotFound.WithDetails(arg)
	case 1:
		return ids[0], nil
	default:
		return uuid.Nil, fmt.Errorf("%q matches %d connections, use a UUID or a narrower name", arg, len(ids))
	}
}

func resolveConnections(c *cli.Context, args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := resolveConnection(c, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// exitWith turns a remote exit status into the process exit code.
func exitWith(res xpipe.ExecResult) error {
	if res.Success() {
		return nil
	}
	return cli.Exit("", res.ExitCode)
}
