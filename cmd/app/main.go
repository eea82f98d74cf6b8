package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/storyloom/internal"
	pkgconfig "github.com/starford/storyloom/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// openOutput returns stdout for "-" and a created file otherwise.
func openOutput(name string) (io.WriteCloser, error) {
	if name == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func translateFiles(_ context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("at least one story file is required")
	}

	out, err := openOutput(cmd.String("output"))
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if _, err := internal.Translate(files, out, logger); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func exportCharacters(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("exactly one story file is required")
	}

	story, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("read story: %w", err)
	}
	data, err := internal.ExportCharacters(story)
	if err != nil {
		return fmt.Errorf("export characters: %w", err)
	}

	out, err := openOutput(cmd.String("output"))
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return fmt.Errorf("write characters: %w", err)
	}
	return out.Close()
}

func main() {
	cmd := &cli.Command{
		Name:    "storyloom",
		Usage:   "Branching-dialogue story editor backend with playback, search and translation export",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with the file watcher and event stream",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the story library to MCP clients over stdio",
				Action: serveMCP,
			},
			{
				Name:      "translate",
				Usage:     "Extract one translation table from story files",
				ArgsUsage: "<story.json>...",
				Action:    translateFiles,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, - for stdout",
						Value:   "translations.json",
					},
				},
			},
			{
				Name:      "export-characters",
				Usage:     "Write the characters of a story as a characters file",
				ArgsUsage: "<story.json>",
				Action:    exportCharacters,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, - for stdout",
						Value:   "characters.json",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
