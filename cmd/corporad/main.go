// Copyright 2025 Archivemind Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/archivemind/corpora"
	"github.com/archivemind/corpora/config"
	"github.com/archivemind/corpora/core"
)

func main() {
	app := &cli.App{
		Name:  "corporad",
		Usage: "Versioned corpus ingestion and chunk-processing service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML config file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the ingestion service and HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "HTTP listen address, overrides the config file",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Run one synchronous ingestion pass for a modality",
				ArgsUsage: "<post|book|audio|video>",
				Action:    ingestCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if listen := c.String("listen"); listen != "" {
		cfg.API.Listen = listen
	}
	return cfg, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	service, err := corpora.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to assemble service: %w", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- service.Serve()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}

func ingestCommand(c *cli.Context) error {
	modality, err := core.ParseModality(c.Args().First())
	if err != nil {
		return fmt.Errorf("usage: corporad ingest <post|book|audio|video>: %w", err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	service, err := corpora.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to assemble service: %w", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := service.Coordinator().Run(ctx, modality)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Modality: %s\n", stats.Modality)
	fmt.Fprintf(os.Stderr, "Fetched: %d\n", stats.Fetched)
	fmt.Fprintf(os.Stderr, "Accepted: %d\n", stats.Accepted)
	fmt.Fprintf(os.Stderr, "Unchanged: %d\n", stats.Unchanged)
	fmt.Fprintf(os.Stderr, "Failed: %d\n", stats.Failed)
	fmt.Fprintf(os.Stderr, "Chunks: %d\n", stats.Chunks)
	fmt.Fprintf(os.Stderr, "Stage failures: %d\n", stats.StageFailures)
	fmt.Fprintf(os.Stderr, "Rotated: %t\n", stats.Rotated)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
