package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"event-validation-service/internal/models"
	"event-validation-service/internal/observability/logging"
	"event-validation-service/internal/schema"
	"event-validation-service/internal/schema/store"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate one event file and print its report",
		ArgsUsage: "<event.json | ->",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schema-dir",
				Value:   "./schemas",
				Sources: cli.EnvVars("SCHEMA_DIR"),
				Usage:   "Schema directory laid out as <name>/<version>.yaml",
			},
			&cli.StringFlag{
				Name:  "schema",
				Usage: "Single schema document to validate against instead of --schema-dir",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Log level",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Init(logging.Config{Level: c.String("log-level"), Format: "console", TimeFormat: time.RFC3339})

			if c.Args().Len() != 1 {
				return cli.Exit("expected exactly one event file", 2)
			}
			ev, err := readEvent(c.Args().First())
			if err != nil {
				return err
			}

			source, err := validationSource(ctx, c.String("schema"), c.String("schema-dir"))
			if err != nil {
				return err
			}

			res, err := schema.New(store.NewCache(source)).Validate(ctx, ev)
			if err != nil {
				if errors.Is(err, schema.ErrSchemaNotFound) {
					return cli.Exit(err.Error(), 3)
				}
				return err
			}

			out, err := json.MarshalIndent(res.Report(ev, time.Now()), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if !res.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// validationSource serves a single document from memory when file is set,
// the schema directory otherwise.
func validationSource(ctx context.Context, file, dir string) (store.Source, error) {
	if file == "" {
		return store.NewFileSource(dir), nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	doc, err := schema.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	mem := store.NewMemorySource()
	if err := mem.Put(ctx, schema.Key{Name: doc.Event.Name, Version: doc.Event.Version}, raw); err != nil {
		return nil, err
	}
	return mem, nil
}

func readEvent(path string) (*models.Event, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var ev models.Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", path, err)
	}
	return &ev, nil
}
