package cmd

import (
	"fmt"
	"os"

	"github.com/pulsegrid/sentinel/query"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ServeCommand = &cli.Command{
	Name:      "serve",
	Usage:     "run the query-layer HTTP server until signaled",
	UsageText: "sentinel serve [--config FILE] [--addr HOST:PORT]",
	Flags: []cli.Flag{
		ConfigFlag(),
		&cli.StringFlag{Name: "addr", Usage: "address to listen on", Value: ":8080"},
	},
	Action: func(cCtx *cli.Context) error {
		afs := afero.NewOsFs()
		cfg, err := loadConfig(afs, cCtx.String("config"))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		st, err := connectStore(cCtx, cfg)
		if err != nil {
			return fmt.Errorf("connecting to store: %w", err)
		}

		if env := os.Getenv("PASSWORD_PROTECTION"); env != "" {
			cfg.PasswordProtection = env
		}

		srv := query.New(st, cfg)
		return srv.Listen(cCtx.String("addr"))
	},
}
