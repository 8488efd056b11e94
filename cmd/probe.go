package cmd

import (
	"context"
	"fmt"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/probe"
	"github.com/pulsegrid/sentinel/store"

	zlog "github.com/pulsegrid/sentinel/logger"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var ProbeCommand = &cli.Command{
	Name:      "probe",
	Usage:     "run one regional probe tick and exit",
	UsageText: "sentinel probe --region REGION [--config FILE]",
	Flags: []cli.Flag{
		ConfigFlag(),
		&cli.StringFlag{Name: "region", Usage: "region this probe runs from", Required: true},
	},
	Action: func(cCtx *cli.Context) error {
		region := cCtx.String("region")
		if region == "" {
			return ErrMissingRegion
		}

		afs := afero.NewOsFs()
		cfg, err := loadConfig(afs, cCtx.String("config"))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		st, err := connectStore(cCtx, cfg)
		if err != nil {
			return fmt.Errorf("connecting to store: %w", err)
		}

		return RunProbeCommand(cCtx.Context, st, cfg, region)
	},
}

// RunProbeCommand runs a single probe tick for region against cfg's
// monitor list, flushing every write to st before returning.
func RunProbeCommand(ctx context.Context, st *store.Store, cfg *config.Config, region string) error {
	log := zlog.GetLogger()

	writer := store.NewWriter(st, store.WriterOptions{RatePerSecond: 50, Burst: 20})
	driver := probe.NewDriver(region, writer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return writer.Run(gctx) })

	driver.RunTick(gctx, cfg.Monitors)
	writer.Close()

	if err := g.Wait(); err != nil {
		return fmt.Errorf("flushing probe writes: %w", err)
	}

	log.Info().Str("region", region).Int("monitors", len(cfg.Monitors)).Msg("probe tick complete")
	return nil
}
