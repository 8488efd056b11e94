package aggregator

import (
	"context"
	"fmt"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
	"github.com/pulsegrid/sentinel/notifier"
)

// decideNotifications implements §4.5's edge-triggered, grace-period
// gated notification rules. It returns both the events to fire and next
// with last_notified_* stamped for any event that fired; the caller must
// persist the returned state, not the one it passed in.
func decideNotifications(m config.MonitorTarget, observations map[string]model.CheckResult, prev, next model.MonitorState, notifyCfg config.Notification, nowMS int64) ([]notifier.Event, model.MonitorState) {
	var events []notifier.Event

	graceDownMS := int64(m.Alerting.GraceDownMinutes) * 60_000
	graceSlowMS := int64(m.Alerting.GraceSlowMinutes) * 60_000

	// Down: fire once when down long enough and not already notified
	// since down_since.
	if next.Status == model.MonitorDown && next.DownSinceMS != nil {
		age := nowMS - *next.DownSinceMS
		alreadyNotified := next.LastNotifiedDownMS != nil && *next.LastNotifiedDownMS >= *next.DownSinceMS
		if age >= graceDownMS && !alreadyNotified {
			events = append(events, notifier.Event{
				MonitorID: m.ID,
				Kind:      "down",
				Message:   fmt.Sprintf("%s is down: %s", m.Name, primaryError(next, observations)),
			})
			t := nowMS
			next.LastNotifiedDownMS = &t
		}
	}

	// Up after down: fire once on the down -> up edge, only if the down
	// episode was itself announced.
	if prev.Status == model.MonitorDown && next.Status == model.MonitorUp && prev.LastNotifiedDownMS != nil {
		events = append(events, notifier.Event{
			MonitorID: m.ID,
			Kind:      "up",
			Message:   fmt.Sprintf("%s has recovered", m.Name),
		})
	}

	// Slow: fire once when the primary has been slow long enough.
	if next.SlowSinceMS != nil {
		age := nowMS - *next.SlowSinceMS
		if age >= graceSlowMS && next.LastNotifiedSlowMS == nil {
			events = append(events, notifier.Event{
				MonitorID: m.ID,
				Kind:      "slow",
				Message:   fmt.Sprintf("%s is slow: %dms", m.Name, next.PrimaryLatencyMS),
			})
			t := nowMS
			next.LastNotifiedSlowMS = &t
		}
	}

	// Fast again: fire once on the slow -> not-slow edge, only if the
	// slow episode was announced.
	if prev.SlowSinceMS != nil && next.SlowSinceMS == nil && prev.LastNotifiedSlowMS != nil {
		events = append(events, notifier.Event{
			MonitorID: m.ID,
			Kind:      "fast",
			Message:   fmt.Sprintf("%s latency is back to normal", m.Name),
		})
	}

	_ = notifyCfg // reserved for timezone-aware message formatting
	return events, next
}

// checkSpike implements §4.5's spike detection: compares the current
// primary latency against the median of recent samples for the primary
// region, firing independently of the up/down/slow grace gates.
func (a *Aggregator) checkSpike(ctx context.Context, m config.MonitorTarget, next model.MonitorState, nowMS int64) (notifier.Event, bool) {
	if !m.Alerting.SpikeDetectionEnabled || next.PrimaryLatencyMS == 0 {
		return notifier.Event{}, false
	}

	samples, err := a.store.LatencyWindow(m.ID, m.PrimaryRegion, nowMS, m.Alerting.BaselineWindowMinutes)
	if err != nil {
		return notifier.Event{}, false
	}

	baseline, ok := spikeBaseline(samples)
	if !ok {
		return notifier.Event{}, false
	}

	if !isSpike(next.PrimaryLatencyMS, baseline, m.Alerting.SpikeThresholdPercent) {
		return notifier.Event{}, false
	}

	phase := spikePhase(next.PrimaryTiming)
	return notifier.Event{
		MonitorID: m.ID,
		Kind:      "spike",
		Message: fmt.Sprintf("%s latency spike (%s): %dms vs baseline %.0fms",
			m.Name, phase, next.PrimaryLatencyMS, baseline),
	}, true
}

// primaryError reports the error text backing a down notification, drawn
// from the same down-region observations reconcileIncident writes into
// the Incident record, so the notification and the incident agree.
func primaryError(state model.MonitorState, observations map[string]model.CheckResult) string {
	if msg := firstDownRegionError(state, observations); msg != "" {
		return msg
	}
	return "check failing"
}

// firstDownRegionError returns the observed error text for the first
// region currently reporting down, or "" if none carried an error.
func firstDownRegionError(state model.MonitorState, observations map[string]model.CheckResult) string {
	for region, rs := range state.RegionStatuses {
		if rs.Status != model.StatusDown {
			continue
		}
		if obs, ok := observations[region]; ok && obs.Error != "" {
			return obs.Error
		}
	}
	return ""
}
