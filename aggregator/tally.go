package aggregator

import (
	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
)

// tally implements §4.5 steps 1-5 plus the state-transition rules: vote
// tallying, status derivation, primary latency/timing selection, and the
// down_since/slow_since bookkeeping. It is a pure function of its inputs
// so it can be tested without a store.
func tally(m config.MonitorTarget, observations map[string]model.CheckResult, prev model.MonitorState, nowMS int64) model.MonitorState {
	next := prev.Clone()
	next.MonitorID = m.ID
	next.LastCheckMS = nowMS
	next.RegionStatuses = make(map[string]model.RegionStatus, len(observations))

	regionsDown := 0
	for region, obs := range observations {
		next.RegionStatuses[region] = model.RegionStatus{Status: obs.Status, LatencyMS: obs.LatencyMS}
		if obs.Status == model.StatusDown {
			regionsDown++
		}
	}

	threshold := m.DownVoteThreshold()
	majorityDown := regionsDown >= threshold && regionsDown > 0

	switch {
	case majorityDown:
		next.Status = model.MonitorDown
	case regionsDown > 0:
		next.Status = model.MonitorDegraded
	default:
		next.Status = model.MonitorUp
	}

	primary, havePrimary := observations[m.PrimaryRegion]
	if havePrimary {
		next.PrimaryLatencyMS = primary.LatencyMS
		next.PrimaryTiming = primary.Timing
	} else {
		next.PrimaryLatencyMS = 0
		next.PrimaryTiming = model.TimingMetrics{}
	}

	applyDownSinceTransition(&next, prev, nowMS)
	applySlowSinceTransition(&next, m, nowMS)

	return next
}

// applyDownSinceTransition implements §4.5's down_since rules: set it on
// the up/degraded → down edge, clear it (and last_notified_down) on any
// transition to up. A down → down tick leaves down_since untouched so
// its age keeps accumulating across ticks.
func applyDownSinceTransition(next *model.MonitorState, prev model.MonitorState, nowMS int64) {
	wasDown := prev.Status == model.MonitorDown

	switch {
	case next.Status == model.MonitorDown && !wasDown:
		t := nowMS
		next.DownSinceMS = &t
	case next.Status == model.MonitorUp:
		next.DownSinceMS = nil
		next.LastNotifiedDownMS = nil
	}
}

// applySlowSinceTransition implements §4.5's slow_since rules against the
// monitor's configured latency threshold. A threshold of zero disables
// slow detection for that monitor.
func applySlowSinceTransition(next *model.MonitorState, m config.MonitorTarget, nowMS int64) {
	if m.LatencyThresholdMS <= 0 {
		return
	}

	slow := next.PrimaryLatencyMS > m.LatencyThresholdMS
	switch {
	case slow && next.SlowSinceMS == nil:
		t := nowMS
		next.SlowSinceMS = &t
	case !slow:
		next.SlowSinceMS = nil
		next.LastNotifiedSlowMS = nil
	}
}
