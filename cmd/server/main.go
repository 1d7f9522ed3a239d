package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	_ "evently/docs" // swagger docs
)

// Version information (set via ldflags during build)
var Version = "dev"

// @title Evently API
// @version 1.0
// @description Event discovery API with email verification, Google sign-in and bookmarks.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cmd := &cli.Command{
		Name:    "evently",
		Usage:   "Evently API server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file; environment variables override it",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema and exit",
				Action: runMigrate,
			},
		},
		Action: runServe,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
