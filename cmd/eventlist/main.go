package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"eventlist/internal/config"
	appLog "eventlist/internal/log"
)

var version = "0.1.0-dev"

func main() {
	// Load .env first; a missing file is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "eventlist",
		Usage:   "Server-rendered event list backed by a REST events service.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "Path to YAML config file (created with defaults if missing)",
				EnvVars: []string{"EVENTLIST_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			appLog.SetLevel(appLog.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			mockCommand(),
			importCommand(),
			exportCommand(),
			captureCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		appLog.Error("eventlist failed", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the file named by --config and applies environment
// overrides. A config that could not be written back is still used.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		if cfg == nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		appLog.Warn("could not write default config; continuing with defaults", "config_path", path, "err", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}
