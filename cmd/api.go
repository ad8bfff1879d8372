package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/licenced/internal/api"
	"github.com/licenced/internal/decay"
	"github.com/licenced/internal/licence"
)

// APICommand returns the CLI command for starting the API server
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the licence API server with the daily decay scheduler",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "no-decay",
				Usage: "Serve without the background decay scheduler",
			},
		},
		Action: runAPI,
	}
}

func runAPI(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	db, dbURL, err := openStoreDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := licence.NewService(licence.NewPostgresStore(db))

	if !c.Bool("no-decay") {
		qcfg := decay.DefaultQueueConfig()
		qcfg.Timezone = cfg.Decay.Timezone
		qcfg.RunOnStart = cfg.Decay.RunOnStart

		queue, err := decay.NewQueue(dbURL, svc, qcfg)
		if err != nil {
			return fmt.Errorf("failed to start decay queue: %w", err)
		}
		if err := queue.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start decay queue: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := queue.Stop(ctx); err != nil {
				log.Warn().Err(err).Msg("decay queue did not stop cleanly")
			}
		}()
		log.Info().Str("timezone", cfg.Decay.Timezone).Msg("decay scheduler running")
	}

	fmt.Printf("Starting licenced API server on port %d...\n", cfg.Server.Port)
	return api.NewServer(cfg, svc).Start()
}
