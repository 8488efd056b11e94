package cmd

import (
	"fmt"
	"time"

	"github.com/pulsegrid/sentinel/aggregator"
	"github.com/pulsegrid/sentinel/notifier"

	zlog "github.com/pulsegrid/sentinel/logger"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var AggregateCommand = &cli.Command{
	Name:      "aggregate",
	Usage:     "run one aggregator tick and exit",
	UsageText: "sentinel aggregate [--config FILE]",
	Flags: []cli.Flag{
		ConfigFlag(),
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

		n := notifier.New(cfg.Notification.Webhook)
		agg := aggregator.New(st, n, cfg)

		if err := agg.RunTick(cCtx.Context, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("running aggregator tick: %w", err)
		}

		zlog.GetLogger().Info().Int("monitors", len(cfg.Monitors)).Msg("aggregator tick complete")
		return nil
	},
}
