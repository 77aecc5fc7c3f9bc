// Copyright 2025 Poiesic Systems
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/lumina"
	"github.com/poiesic/lumina/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lumina",
		Usage: "Multi-tenant document retrieval and answer streaming",
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
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Path to the BadgerDB database directory (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and run the ingestion workers",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Address to listen on (overrides config)",
					},
					&cli.StringFlag{
						Name:  "redis-url",
						Usage: "Redis URL of the ingestion queue (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "memory-queue",
						Usage: "Keep the ingestion queue in process instead of Redis",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of documents ingested in parallel (overrides config)",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Upload a local file into a tenant and index it",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "org",
						Usage:    "Tenant (organization) id",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "User recorded in the audit trail",
						Value: "cli",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Show the chunks retrieved for a question",
				ArgsUsage: "<query...>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "org",
						Usage:    "Tenant (organization) id",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of chunks to return (defaults to config)",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Print each search stage",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the vector index from stored chunks",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (defaults to config)",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name (defaults to config)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:  "member",
				Usage: "Manage tenant memberships",
				Subcommands: []*cli.Command{
					{
						Name:   "add",
						Usage:  "Grant a user access to a tenant",
						Action: memberAddCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "org",
								Usage:    "Tenant (organization) id",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "user",
								Usage:    "User id",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "role",
								Usage: "Membership role (ADMIN or MEMBER)",
								Value: "MEMBER",
							},
						},
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load sample documents into a tenant",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "org",
						Usage: "Tenant (organization) id",
						Value: "demo",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "User granted access to the tenant",
						Value: "demo-user",
					},
					&cli.StringFlag{
						Name:  "src",
						Usage: "File of seed lines (defaults to built-in samples)",
					},
					&cli.IntFlag{
						Name:  "lines-per-doc",
						Usage: "Number of lines per seeded document",
						Value: 5,
					},
				},
			},
			{
				Name:   "queue-stats",
				Usage:  "Print the ingestion queue depths",
				Action: queueStatsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "redis-url",
						Usage: "Redis URL of the ingestion queue (overrides config)",
					},
				},
			},
		},
	}
}

// loadConfig resolves the configuration and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if !c.IsSet("log-level") && cfg.LogLevel != "" {
		if err := configureLogging(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*lumina.Database, error) {
	db, err := lumina.NewDatabase(cfg.DataDir,
		lumina.WithAIConfig(cfg.AIConfig()),
		lumina.WithVectorStorePath(cfg.VectorStorePath),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DataDir, err)
	}
	return db, nil
}

func setupLogger(c *cli.Context) error {
	return configureLogging(c.String("log-level"))
}

func configureLogging(levelStr string) error {
	levelStr = strings.ToLower(levelStr)

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
