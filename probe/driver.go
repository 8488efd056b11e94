package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
	"github.com/pulsegrid/sentinel/store"

	zlog "github.com/pulsegrid/sentinel/logger"
	"golang.org/x/sync/errgroup"
)

// checker is implemented by HTTPClient and TCPProber; the driver picks
// one per monitor based on its configured method.
type checker interface {
	Check(ctx context.Context, region string, m config.MonitorTarget) model.CheckResult
}

// Driver runs one tick of checks for every monitor assigned to a region
// and writes the results through a Writer. One Driver exists per region
// process (§4.3: "a Regional Probe Driver per region").
type Driver struct {
	region string
	writer *store.Writer
	http   *HTTPClient
	tcp    *TCPProber
}

// NewDriver builds a Driver for region, writing results through w.
func NewDriver(region string, w *store.Writer) *Driver {
	return &Driver{
		region: region,
		writer: w,
		http:   NewHTTPClient(),
		tcp:    NewTCPProber(),
	}
}

// RunTick checks every monitor in monitors concurrently and unbounded
// (§4.3: no SetLimit, since the goroutine count is bounded only by the
// monitor list's length and the runtime's default scheduler). Each task
// is isolated: one monitor's check failing or panicking-recovering never
// cancels another's, which is why results flow through a channel rather
// than relying on errgroup.Wait's first-error semantics.
func (d *Driver) RunTick(ctx context.Context, monitors []config.MonitorTarget) {
	if len(monitors) == 0 {
		return
	}

	log := zlog.GetLogger()
	results := make(chan model.CheckResult, len(monitors))

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range monitors {
		m := m
		g.Go(func() (err error) {
			if !regionApplies(m, d.region) {
				return nil
			}
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Str("monitor_id", m.ID).Str("region", d.region).
						Interface("panic", rec).Msg("probe check panicked, skipping monitor")
					results <- model.CheckResult{
						MonitorID:   m.ID,
						Region:      d.region,
						TimestampMS: time.Now().UnixMilli(),
						Status:      model.StatusDown,
						Error:       fmt.Sprintf("panic: %v", rec),
					}
				}
			}()
			results <- d.checkOne(gctx, m)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	for r := range results {
		d.writer.SubmitCheck(r)
		d.writer.SubmitLatency(model.LatencyHistorySample{
			MonitorID:   r.MonitorID,
			Region:      r.Region,
			TimestampMS: r.TimestampMS,
			LatencyMS:   r.LatencyMS,
			Timing:      r.Timing,
		})
		if r.Status == model.StatusDown {
			log.Debug().Str("monitor_id", r.MonitorID).Str("region", d.region).Str("error", r.Error).Msg("check failed")
		}
	}
}

// checkOne dispatches to the HTTP or TCP checker based on the monitor's
// method. The returned CheckResult is the single source for both the
// check and latency rows RunTick submits afterward.
func (d *Driver) checkOne(ctx context.Context, m config.MonitorTarget) model.CheckResult {
	if m.Method == config.MethodTCPPing {
		return d.tcp.Check(ctx, d.region, m)
	}
	return d.http.Check(ctx, d.region, m)
}

// regionApplies reports whether monitor m is checked from region.
// Config validation guarantees at least one region; an empty list is
// treated as "all regions" defensively rather than skipping the monitor.
func regionApplies(m config.MonitorTarget, region string) bool {
	if len(m.Regions) == 0 {
		return true
	}
	for _, r := range m.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// TickInterval is the nominal cadence of a probe tick. RunTick runs a
// single tick; the probe command does not loop on this interval, so
// repeating ticks is left to whatever invokes the command.
const TickInterval = 60 * time.Second
