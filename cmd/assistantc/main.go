// Command assistantc compiles conversational project schemas into assistant
// workspaces, publishes them and serves the dialog webhook.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/config"
)

type Globals struct {
	Config   string `help:"Configuration file (YAML or JSON)." type:"path" env:"ASSISTANT_CONFIG"`
	EnvFile  string `name:"env-file" help:"Dotenv file read before the environment." default:".env"`
	LogLevel string `name:"log-level" help:"Overrides log.level."`
}

type CLI struct {
	Globals

	Compile CompileCmd `cmd:"" help:"Compile a schema file into workspace JSON."`
	Import  ImportCmd  `cmd:"" help:"Store a schema file as a project."`
	Publish PublishCmd `cmd:"" help:"Create or update the workspace of a project."`
	Sync    SyncCmd    `cmd:"" help:"Export every workspace of the service instance."`
	Serve   ServeCmd   `cmd:"" help:"Serve the dialog webhook."`
}

// App carries what every command needs once flags and configuration are
// resolved.
type App struct {
	ctx    context.Context
	cfg    config.Config
	logger assistant.Logger
	out    io.Writer
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("assistantc"),
		kong.Description("Conversational project compiler for IBM Watson Assistant."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cli.Globals, os.Stdout, os.Stderr)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(app)
	if err != nil {
		app.logger.Error("%s: %v", kctx.Command(), err)
	}
	kctx.FatalIfErrorf(err)
}

func newApp(ctx context.Context, g Globals, out, logs io.Writer) (*App, error) {
	opts := []config.Option{config.WithEnvFile(g.EnvFile)}
	if g.Config != "" {
		opts = append(opts, config.WithFile(g.Config))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}

	return &App{
		ctx:    ctx,
		cfg:    cfg,
		logger: newLogger(cfg.Log, logs),
		out:    out,
	}, nil
}

// newLogger writes to w so stdout stays reserved for command output.
func newLogger(cfg config.LogConfig, w io.Writer) assistant.Logger {
	return assistant.NewLogger(w, cfg.Level, cfg.Format)
}
