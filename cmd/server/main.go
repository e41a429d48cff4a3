package main

import (
	"os"

	"github.com/example/salad-order-service/internal/adapter/repo"
	"github.com/example/salad-order-service/internal/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	if err := newApp().Run(os.Args); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "server",
		Usage:          "salad bar order API",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and event workers",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back database migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply all pending migrations", Action: migrateAction(repo.MigrateUp)},
					{Name: "down", Usage: "roll back all migrations", Action: migrateAction(repo.MigrateDown)},
				},
			},
		},
	}
}

func migrateAction(step func(databaseURL string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for migrations")
		}
		if err := step(cfg.DatabaseURL); err != nil {
			return err
		}
		log.WithField("command", c.Command.Name).Info("migrations done")
		return nil
	}
}

func setupLogging(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
