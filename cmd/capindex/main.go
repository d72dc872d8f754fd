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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/capindex"
	"github.com/poiesic/capindex/core"
)

func main() {
	app := &cli.App{
		Name:  "capindex",
		Usage: "Hybrid search engine for registered capabilities",
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
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the database directory (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "upsert",
				Usage:     "Index entity records from a JSON file or stdin",
				ArgsUsage: "[file]",
				Action:    upsertCommand,
			},
			{
				Name:      "delete",
				Usage:     "Remove an entity from the index by path",
				ArgsUsage: "<path>",
				Action:    deleteCommand,
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid query against the index",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Restrict results to entity types (server, tool, agent)",
					},
					&cli.IntFlag{
						Name:    "max-results",
						Aliases: []string{"n"},
						Usage:   "Maximum results per entity type",
						Value:   core.DefaultMaxResultsPerType,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every indexed document",
				Action: reindexCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openEngine builds an engine from the config file, if any, with the
// db flag taking precedence over the configured storage path.
func openEngine(c *cli.Context) (*capindex.Engine, error) {
	cfg := capindex.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := capindex.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dbPath := c.String("db"); dbPath != "" {
		cfg.Storage.Path = dbPath
		cfg.Storage.InMemory = false
	}

	return capindex.NewEngine(cfg)
}

func upsertCommand(c *cli.Context) error {
	ctx := context.Background()

	input := os.Stdin
	if c.Args().Len() > 0 {
		file, err := os.Open(c.Args().First())
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer file.Close()
		input = file
	}

	docs, err := readDocuments(input)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no entity records in input")
	}

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	indexed := 0
	for _, doc := range docs {
		if err := engine.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("failed to index %q: %w", doc.Path, err)
		}
		indexed++
	}

	fmt.Fprintf(os.Stderr, "Indexed %d entities\n", indexed)
	return nil
}

// readDocuments accepts either a single JSON object or a JSON array.
func readDocuments(r io.Reader) ([]*core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var docs []*core.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("failed to parse entity records: %w", err)
		}
		return docs, nil
	}

	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse entity record: %w", err)
	}
	return []*core.Document{&doc}, nil
}

func deleteCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}
	path := c.Args().First()

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	if err := engine.Delete(context.Background(), path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}

	fmt.Fprintf(os.Stderr, "Deleted %s\n", path)
	return nil
}

// parseEntityTypes validates --type values against the known result
// groups. Unknown values are a usage error, not an empty result set.
func parseEntityTypes(values []string) ([]core.EntityType, error) {
	var types []core.EntityType
	for _, v := range values {
		et := core.EntityType(strings.ToLower(v))
		switch et {
		case core.EntityTypeServer, core.EntityTypeTool, core.EntityTypeAgent:
			types = append(types, et)
		default:
			return nil, fmt.Errorf("unknown type %q: must be one of server, tool, agent", v)
		}
	}
	return types, nil
}

func searchCommand(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("query text is required")
	}
	queryText := strings.Join(c.Args().Slice(), " ")

	types, err := parseEntityTypes(c.StringSlice("type"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	response, err := engine.Search(context.Background(), core.SearchQuery{
		Text:              queryText,
		Types:             types,
		MaxResultsPerType: c.Int("max-results"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

func reindexCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	engine.Indexer().SetProgressWriter(os.Stderr)

	stats, err := engine.Reindex(context.Background())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reindexed %d documents (%d failed) in %s\n",
		stats.Succeeded, stats.Failed, stats.Duration.Round(time.Millisecond))
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
