package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/trellis/internal"
	"github.com/starford/trellis/internal/graph"
	pkgconfig "github.com/starford/trellis/pkg/config"
)

// configFlag is declared on the root command; v3 flags are inherited by
// subcommands.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func seed(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	_, err = internal.RunSeed(ctx, cmd.String("file"), opts...)
	return err
}

func query(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	q := internal.Query{
		Parent: cmd.String("parent"),
		User:   cmd.String("user"),
	}
	if q.User == "" {
		t, err := graph.ParseNodeType(cmd.String("type"))
		if err != nil {
			return err
		}
		q.Type = t
	}
	return internal.RunQuery(ctx, os.Stdout, q, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "trellis",
		Usage:  "Project, task and discussion graph with SQLite or YAML record storage",
		Action: serve,
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:  "seed",
				Usage: "Merge a seed document into the stored graph",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Path to seed YAML",
						Value:   "config/seed.yaml",
					},
				},
				Action: seed,
			},
			{
				Name:  "query",
				Usage: "Print nodes under a parent as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "parent",
						Aliases:  []string{"p"},
						Usage:    "Node id to start from",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Node type to collect (project, task, sub_task, user, discussion)",
						Value:   string(graph.NodeTask),
					},
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Collect discussions linked to this user instead",
					},
				},
				Action: query,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
