package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/feattree/internal"
	pkgconfig "github.com/starford/feattree/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Flags win over the file.
	if root := cmd.String("project"); root != "" {
		cfg.Project.Root = root
	}
	if driver := cmd.String("driver"); driver != "" {
		cfg.SQLite.Driver = driver
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func runMode(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithVersion(version),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "feattree",
		Usage:   "Feature and workflow catalog for coding agents, served over MCP",
		Version: version,
		Action:  runMode(internal.ModeStdio),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "project",
				Usage: "Project root holding the .feat-tree directory",
			},
			&cli.StringFlag{
				Name:    "driver",
				Usage:   `SQLite driver: "sqlite" (pure Go) or "sqlite3" (cgo)`,
				Sources: cli.EnvVars("FEAT_TREE_SQLITE_DRIVER"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the MCP tools over stdio (default)",
				Action: runMode(internal.ModeStdio),
			},
			{
				Name:   "http",
				Usage:  "Serve the REST API with live change events",
				Action: runMode(internal.ModeHTTP),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "HTTP port (overrides app.http.port)",
					},
				},
			},
			{
				Name:   "render",
				Usage:  "Regenerate FEATURES.md and WORKFLOWS.md",
				Action: runMode(internal.ModeRender),
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the full-text indexes and regenerate the documents",
				Action: runMode(internal.ModeReindex),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
