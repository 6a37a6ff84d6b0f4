package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/webitel/reactor-plant/internal/config"
	"github.com/webitel/reactor-plant/internal/plant"
)

const (
	ServiceName      = "reactor-plant"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Run is the process entrypoint, following the teacher's cmd.Run/serverCmd
// shape: a urfave/cli app with one "server" command that loads config,
// builds the fx.App and blocks until SIGINT/SIGTERM.
func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Reactive message-passing runtime demo",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
			topCmd(),
		},
	}
	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the demo plant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to a YAML/JSON/TOML configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			fs := pflag.NewFlagSet(ServiceName, pflag.ContinueOnError)
			config.Flags(fs)

			cfg, v, err := config.Load(c.String("config_file"), fs)
			if err != nil {
				return err
			}

			app := NewApp(cfg)
			if err := app.Start(c.Context); err != nil {
				return err
			}

			if c.String("config_file") != "" {
				config.Watch(v, slog.Default(), func(newCfg *config.Config) {
					slog.Warn("CONFIG_CHANGED_RESTART_REQUIRED", "new_log_level", newCfg.LogLevel)
				})
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("SHUTTING_DOWN")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.Stop(ctx)
		},
	}
}

// topCmd runs a standalone plant with the demo reactor installed and
// renders the termui dashboard against it, for local experimentation
// without the full fx/admin-HTTP stack.
func topCmd() *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Run a demo plant and watch it live in a terminal dashboard",
		Action: func(c *cli.Context) error {
			logger := slog.Default()
			p := plant.New(plant.Config{DefaultPoolConcurrency: 2, Logger: logger})
			if err := p.Install(NewHeartbeatReactor(logger)); err != nil {
				return err
			}
			go func() {
				if err := p.Start(c.Context); err != nil {
					logger.Error("PLANT_START_FAILED", "err", err)
				}
			}()
			defer p.Shutdown()
			return RunPlantTop(p)
		},
	}
}
