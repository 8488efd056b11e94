package aggregator

import (
	"testing"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"

	"github.com/stretchr/testify/require"
)

func threeRegionMonitor() config.MonitorTarget {
	m := config.MonitorTarget{
		ID:            "web",
		Name:          "Web",
		Method:        config.MethodGET,
		Target:        "https://example.com",
		Regions:       []string{"A", "B", "C"},
		PrimaryRegion: "A",
	}
	m.ApplyDefaults()
	return m
}

func emptyState(id string) model.MonitorState {
	return model.MonitorState{MonitorID: id, RegionStatuses: map[string]model.RegionStatus{}}
}

// Scenario 1: A=up, B=down, C=up against a default threshold of 2.
func TestTallyDegradedScenario(t *testing.T) {
	m := threeRegionMonitor()
	require.Equal(t, 2, m.DownVoteThreshold())

	observations := map[string]model.CheckResult{
		"A": {Status: model.StatusUp, LatencyMS: 50},
		"B": {Status: model.StatusDown},
		"C": {Status: model.StatusUp, LatencyMS: 55},
	}

	next := tally(m, observations, emptyState(m.ID), 1000)
	require.Equal(t, model.MonitorDegraded, next.Status)
	require.Nil(t, next.DownSinceMS)
}

// Scenario 2: A=down, B=down, C=up meets the threshold of 2.
func TestTallyDownScenario(t *testing.T) {
	m := threeRegionMonitor()

	observations := map[string]model.CheckResult{
		"A": {Status: model.StatusDown},
		"B": {Status: model.StatusDown},
		"C": {Status: model.StatusUp},
	}

	next := tally(m, observations, emptyState(m.ID), 1000)
	require.Equal(t, model.MonitorDown, next.Status)
	require.NotNil(t, next.DownSinceMS)
	require.Equal(t, int64(1000), *next.DownSinceMS)
}

// Majority-vote property across the full space of down counts at n=3.
func TestTallyMajorityVoteProperty(t *testing.T) {
	m := threeRegionMonitor()
	threshold := m.DownVoteThreshold()

	cases := []struct {
		down int
		want model.MonitorStatus
	}{
		{0, model.MonitorUp},
		{1, model.MonitorDegraded},
		{2, model.MonitorDown},
		{3, model.MonitorDown},
	}

	for _, c := range cases {
		observations := map[string]model.CheckResult{}
		regions := []string{"A", "B", "C"}
		for i, r := range regions {
			status := model.StatusUp
			if i < c.down {
				status = model.StatusDown
			}
			observations[r] = model.CheckResult{Status: status}
		}

		next := tally(m, observations, emptyState(m.ID), 1000)
		require.Equal(t, c.want, next.Status, "down=%d threshold=%d", c.down, threshold)
	}
}

// Idempotence: re-running tally on unchanged observations and an
// unchanged previous state must not introduce a new down_since or change
// any field besides last_check_ms.
func TestTallyIdempotence(t *testing.T) {
	m := threeRegionMonitor()
	observations := map[string]model.CheckResult{
		"A": {Status: model.StatusDown},
		"B": {Status: model.StatusDown},
		"C": {Status: model.StatusUp},
	}

	first := tally(m, observations, emptyState(m.ID), 1000)
	second := tally(m, observations, first, 2000)

	require.Equal(t, *first.DownSinceMS, *second.DownSinceMS, "down_since must not move on a repeated down observation")
	require.Equal(t, first.Status, second.Status)
}

// Recovery clears down_since and the down notification marker.
func TestTallyRecoveryClearsDownSince(t *testing.T) {
	m := threeRegionMonitor()
	down := int64(1000)
	notified := int64(1300)
	prev := model.MonitorState{
		MonitorID:          m.ID,
		Status:             model.MonitorDown,
		DownSinceMS:        &down,
		LastNotifiedDownMS: &notified,
		RegionStatuses:     map[string]model.RegionStatus{},
	}

	observations := map[string]model.CheckResult{
		"A": {Status: model.StatusUp},
		"B": {Status: model.StatusUp},
		"C": {Status: model.StatusUp},
	}

	next := tally(m, observations, prev, 2000)
	require.Equal(t, model.MonitorUp, next.Status)
	require.Nil(t, next.DownSinceMS)
	require.Nil(t, next.LastNotifiedDownMS)
}

// Scenario 4: latency threshold 500ms, slow_grace=3min, samples at
// T=0..4 minutes all at 700ms.
func TestTallySlowSinceTransitions(t *testing.T) {
	m := threeRegionMonitor()
	m.LatencyThresholdMS = 500

	observations := map[string]model.CheckResult{
		"A": {Status: model.StatusUp, LatencyMS: 700},
		"B": {Status: model.StatusUp, LatencyMS: 700},
		"C": {Status: model.StatusUp, LatencyMS: 700},
	}

	state := emptyState(m.ID)
	for minute := int64(0); minute <= 4; minute++ {
		state = tally(m, observations, state, minute*60_000)
	}
	require.NotNil(t, state.SlowSinceMS)
	require.Equal(t, int64(0), *state.SlowSinceMS)

	fastObservations := map[string]model.CheckResult{
		"A": {Status: model.StatusUp, LatencyMS: 100},
		"B": {Status: model.StatusUp, LatencyMS: 100},
		"C": {Status: model.StatusUp, LatencyMS: 100},
	}
	state = tally(m, fastObservations, state, 5*60_000)
	require.Nil(t, state.SlowSinceMS)
}
