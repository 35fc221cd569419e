package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"event-validation-service/internal/app"
	"event-validation-service/internal/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "event-validator",
		Usage: "Validate request events against their registered schemas",
		Commands: []*cli.Command{
			serveCommand(),
			validateCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("event-validator failed")
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the gRPC, HTTP and Kafka validation service (configured from the environment)",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg := config.Load()

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			return a.Run(ctx)
		},
	}
}
