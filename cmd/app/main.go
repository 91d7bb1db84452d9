package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunExport(ctx, cfg, cmd.String("target"), cmd.Bool("single-file"))
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(cfg)
}

func newCommand() *cli.Command {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	return &cli.Command{
		Name:  "raido",
		Usage: "Local-first 360° virtual tour studio with panorama import, hotspot editing, and standalone web export",
		Flags: []cli.Flag{configFlag},
		// Bare invocation starts the editing server.
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the editing server (HTTP API, live preview, SSE)",
				Action: serve,
			},
			{
				Name:  "export",
				Usage: "Build a standalone web bundle of the current tour",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "target",
						Usage: "Output directory, or a .html path for a single self-contained page (default exports/<title> in the workspace)",
					},
					&cli.BoolFlag{
						Name:  "single-file",
						Usage: "Emit a single self-contained HTML page",
					},
				},
				Action: export,
			},
			{
				Name:   "mcp",
				Usage:  "Start the MCP server on stdio for LLM integration",
				Action: mcp,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
