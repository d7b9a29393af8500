package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/simaogato/papertrade-backend/internal/app"
	"github.com/simaogato/papertrade-backend/internal/cli"
	"github.com/simaogato/papertrade-backend/internal/config"
	"github.com/simaogato/papertrade-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	plain := flag.Bool("plain", false, "print reports as raw markdown")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	var (
		cfg *config.Config
		log *zap.Logger
	)
	load := func() error {
		if cfg != nil {
			return nil
		}
		c, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		l, err := logger.New(c.Log)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		cfg, log = c, l
		return nil
	}

	env := &cli.Env{
		Open: func(ctx context.Context) (*app.App, error) {
			if err := load(); err != nil {
				return nil, err
			}
			return app.New(ctx, cfg, log)
		},
		Migrate: func(ctx context.Context) error {
			if err := load(); err != nil {
				return err
			}
			if err := app.Migrate(ctx, cfg); err != nil {
				return err
			}
			// SQLite creates its schema on open.
			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			return a.Close()
		},
		Out: os.Stdout,
		Err: os.Stderr,
	}
	cli.Register(commander, env)

	flag.Parse()
	env.Plain = *plain

	status := commander.Execute(context.Background())
	if log != nil {
		_ = log.Sync()
	}
	os.Exit(int(status))
}
