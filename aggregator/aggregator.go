// Package aggregator runs the once-per-tick fan-in over every region's
// checks: tallying the majority vote, deriving monitor status, rolling
// incident lifecycle, and deciding which notifications an edge-triggered
// gate should fire.
package aggregator

import (
	"context"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
	"github.com/pulsegrid/sentinel/notifier"
	"github.com/pulsegrid/sentinel/store"

	zlog "github.com/pulsegrid/sentinel/logger"
	"golang.org/x/sync/errgroup"
)

// observationWindowMS absorbs clock drift between regions, per §4.5's
// W = 90_000 ms.
const observationWindowMS = 90_000

// Aggregator runs one tick across every configured monitor.
type Aggregator struct {
	store    *store.Store
	notifier *notifier.Notifier
	cfg      *config.Config
}

// New builds an Aggregator for a single tick run.
func New(s *store.Store, n *notifier.Notifier, cfg *config.Config) *Aggregator {
	return &Aggregator{store: s, notifier: n, cfg: cfg}
}

// RunTick evaluates every monitor in cfg.Monitors at wall-clock time
// nowMS and overwrites the global summary once all monitors have been
// processed.
func (a *Aggregator) RunTick(ctx context.Context, nowMS int64) error {
	log := zlog.GetLogger()

	summary := model.GlobalSummary{LastUpdateMS: nowMS}
	for _, m := range a.cfg.Monitors {
		status, err := a.evaluateMonitor(ctx, m, nowMS)
		if err != nil {
			log.Err(err).Str("monitor_id", m.ID).Msg("failed to evaluate monitor")
			continue
		}
		switch status {
		case model.MonitorUp:
			summary.OverallUp++
		case model.MonitorDown:
			summary.OverallDown++
		case model.MonitorDegraded:
			summary.OverallDegraded++
		case model.MonitorMaintenance:
			// Maintenance monitors are excluded from the headline counters
			// so an intentional outage window doesn't read as a real one.
		}
	}

	return a.store.WriteGlobalSummary(summary)
}

// evaluateMonitor runs §4.5 steps 1-5 plus state transitions, incident
// lifecycle, and notification decisions for one monitor.
func (a *Aggregator) evaluateMonitor(ctx context.Context, m config.MonitorTarget, nowMS int64) (model.MonitorStatus, error) {
	observations, err := a.collectObservations(ctx, m, nowMS)
	if err != nil {
		return "", err
	}

	prev, hadPrev, err := a.store.ReadState(m.ID)
	if err != nil {
		return "", err
	}
	if !hadPrev {
		prev = model.MonitorState{MonitorID: m.ID, RegionStatuses: map[string]model.RegionStatus{}}
	}

	next := tally(m, observations, prev, nowMS)

	inWindow := inMaintenance(a.cfg.Maintenances, m.ID, nowMS)

	var events []notifier.Event
	if !skipped(a.cfg.Notification.SkipIDs, m.ID) && !inWindow {
		events, next = decideNotifications(m, observations, prev, next, a.cfg.Notification, nowMS)
		if spikeEvent, ok := a.checkSpike(ctx, m, next, nowMS); ok {
			events = append(events, spikeEvent)
		}
	}

	if err := a.store.WriteState(next); err != nil {
		return "", err
	}

	if err := a.reconcileIncident(m, observations, prev, next, nowMS); err != nil {
		return "", err
	}

	for _, ev := range events {
		a.notifier.Notify(ctx, ev)
	}

	// The stored state keeps the derived status; maintenance only mutes
	// notifications and is reported to RunTick for the summary counters.
	if inWindow {
		return model.MonitorMaintenance, nil
	}
	return next.Status, nil
}

// collectObservations fans out the per-region CHECK# queries
// concurrently, per SPEC_FULL.md's adoption of the spec's own "parallel
// per-region aggregator queries" redesign note — the keys are disjoint so
// there is no need to serialize them.
func (a *Aggregator) collectObservations(ctx context.Context, m config.MonitorTarget, nowMS int64) (map[string]model.CheckResult, error) {
	type regionResult struct {
		region string
		result model.CheckResult
		found  bool
	}

	g, _ := errgroup.WithContext(ctx)
	out := make(chan regionResult, len(m.Regions))

	for _, region := range m.Regions {
		region := region
		g.Go(func() error {
			r, found, err := a.store.LatestCheckForRegion(m.ID, region, nowMS, observationWindowMS)
			if err != nil {
				return err
			}
			out <- regionResult{region: region, result: r, found: found}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(out)
	}()

	observations := make(map[string]model.CheckResult)
	for r := range out {
		if r.found {
			observations[r.region] = r.result
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return observations, nil
}

func skipped(skipIDs []string, monitorID string) bool {
	for _, id := range skipIDs {
		if id == monitorID {
			return true
		}
	}
	return false
}

func inMaintenance(maintenances []config.Maintenance, monitorID string, nowMS int64) bool {
	now := model.MSToTime(nowMS)
	for _, win := range maintenances {
		if win.Matches(monitorID, now) {
			return true
		}
	}
	return false
}
