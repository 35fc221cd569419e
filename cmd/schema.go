package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"event-validation-service/internal/app"
	"event-validation-service/internal/config"
	"event-validation-service/internal/observability/logging"
	"event-validation-service/internal/schema"
	"event-validation-service/internal/schema/store"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Inspect and register schema documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Value:   config.SourceFiles,
				Sources: cli.EnvVars("SCHEMA_SOURCE"),
				Usage:   "Schema backend: files or sqlite",
			},
			&cli.StringFlag{
				Name:    "dir",
				Value:   "./schemas",
				Sources: cli.EnvVars("SCHEMA_DIR"),
				Usage:   "Schema directory for the files backend",
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./schemas.sqlite",
				Sources: cli.EnvVars("SCHEMA_DB_PATH"),
				Usage:   "SQLite file for the sqlite backend",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logging.Init(logging.Config{Level: "warn", Format: "console", TimeFormat: time.RFC3339})
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:      "lint",
				Usage:     "Check schema documents without registering them",
				ArgsUsage: "<file>...",
				Action: func(_ context.Context, c *cli.Command) error {
					if c.Args().Len() == 0 {
						return cli.Exit("expected at least one schema file", 2)
					}
					failed := 0
					for _, path := range c.Args().Slice() {
						if _, err := lintFile(path); err != nil {
							failed++
							fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
							continue
						}
						fmt.Printf("%s: ok\n", path)
					}
					if failed > 0 {
						return cli.Exit(fmt.Sprintf("%d of %d documents failed", failed, c.Args().Len()), 1)
					}
					return nil
				},
			},
			{
				Name:      "put",
				Usage:     "Register a schema document in the sqlite registry",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return cli.Exit("expected exactly one schema file", 2)
					}
					path := c.Args().First()
					doc, err := lintFile(path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					raw, err := os.ReadFile(path)
					if err != nil {
						return err
					}

					schemas, err := openSchemas(ctx, c)
					if err != nil {
						return err
					}
					defer schemas.Close()
					if schemas.Registry == nil {
						return cli.Exit(fmt.Sprintf("schema source %q is read-only", c.String("source")), 2)
					}

					key := schema.Key{Name: doc.Event.Name, Version: doc.Event.Version}
					if err := schemas.Registry.Put(ctx, key, raw); err != nil {
						if errors.Is(err, store.ErrSchemaExists) {
							return cli.Exit(fmt.Sprintf("%s: %v", key, err), 1)
						}
						return err
					}
					fmt.Printf("registered %s\n", key)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List registered schema keys",
				Action: func(ctx context.Context, c *cli.Command) error {
					schemas, err := openSchemas(ctx, c)
					if err != nil {
						return err
					}
					defer schemas.Close()

					keys, err := schemas.Lister.List(ctx)
					if err != nil {
						return err
					}
					for _, key := range keys {
						fmt.Println(key.Name + "\t" + strconv.Itoa(key.Version))
					}
					return nil
				},
			},
		},
	}
}

// lintFile checks the document's shape, then parses it.
func lintFile(path string) (*schema.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := store.Lint(raw); err != nil {
		return nil, err
	}
	return schema.Parse(raw)
}

func openSchemas(ctx context.Context, c *cli.Command) (*app.Schemas, error) {
	return app.OpenSchemas(ctx, config.SchemasConfig{
		Source: c.String("source"),
		Dir:    c.String("dir"),
		DBPath: c.String("db-path"),
	})
}
