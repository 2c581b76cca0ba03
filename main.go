package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/tinfoilsh/multisearch/config"
	"github.com/tinfoilsh/multisearch/telemetry"
)

var Version = "dev"

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	if err := newApp().RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var shutdownTracing func(context.Context) error

	return &cli.App{
		Name:    "multisearch",
		Usage:   "Search the web through one or many providers",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if err := configureLogging(cfg.LogLevel, c.Bool("verbose")); err != nil {
				return err
			}
			shutdownTracing, err = telemetry.Setup(c.Context, cfg.Tracing)
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]any{"config": cfg}
			return nil
		},
		After: func(c *cli.Context) error {
			if shutdownTracing == nil {
				return nil
			}
			return shutdownTracing(context.Background())
		},
		Commands: []*cli.Command{
			singleCommand(),
			multiCommand(),
			arxivCommand(),
			providersCommand(),
			serveCommand(),
		},
	}
}

func configureLogging(level string, verbose bool) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
		return nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	return nil
}

func loadedConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata["config"].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}
