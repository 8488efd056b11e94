package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pulsegrid/sentinel/cmd"
	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/logger"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version is populated by build flags with the current Git tag.
var Version string

func main() {
	config.Version = Version

	app := &cli.App{
		EnableBashCompletion: true,
		Commands:             cmd.Commands(),
		Name:                 "sentinel",
		Usage:                "distributed uptime and latency monitoring",
		UsageText:            "sentinel [-d] command [command options]",
		Version:              Version,
		Args:                 true,
		ExitErrHandler:       exitErrHandler,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Run in debug mode",
			},
		},
		Before: func(cCtx *cli.Context) error {
			logger.DebugMode = os.Getenv("APP_ENV") == "dev"
			if cCtx.Bool("debug") {
				logger.DebugMode = true
			}

			if err := godotenv.Load("./.env"); err != nil {
				log.Fatal("Error loading .env file: ", err)
			}

			if Version != "" {
				if err := cmd.CheckForUpdate(); err != nil {
					log.Fatalf("Error checking for newer version: %v", err)
				}
			}

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.GetLogger().Fatal().Err(err).Send()
	}
}

// exitErrHandler implements cli.ExitErrHandlerFunc.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(c.App.ErrWriter, "\n[!] %+v\n", err.Error())
	cli.OsExiter(1)
}
