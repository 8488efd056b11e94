package aggregator

import (
	"testing"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"

	"github.com/stretchr/testify/require"
)

func graceMonitor() config.MonitorTarget {
	m := config.MonitorTarget{
		ID:            "web",
		Name:          "Web",
		Regions:       []string{"A", "B"},
		PrimaryRegion: "A",
	}
	m.ApplyDefaults()
	m.Alerting.GraceDownMinutes = 5
	m.Alerting.GraceSlowMinutes = 3
	return m
}

// For a monitor that remains down for 60 minutes with grace_down=5,
// exactly one down notification fires across the whole run.
func TestDecideNotificationsFiresOnceAcrossSustainedDowntime(t *testing.T) {
	m := graceMonitor()
	notifyCfg := config.Notification{}

	down := int64(0)
	state := model.MonitorState{
		MonitorID:   m.ID,
		Status:      model.MonitorDown,
		DownSinceMS: &down,
		RegionStatuses: map[string]model.RegionStatus{
			"A": {Status: model.StatusDown},
		},
	}
	prev := state
	observations := map[string]model.CheckResult{
		"A": {Error: "Connection refused"},
	}

	fired := 0
	var lastMessage string
	for minute := int64(0); minute <= 60; minute++ {
		events, next := decideNotifications(m, observations, prev, state, notifyCfg, minute*60_000)
		for _, ev := range events {
			if ev.Kind == "down" {
				fired++
				lastMessage = ev.Message
			}
		}
		prev = state
		state = next
	}

	require.Equal(t, 1, fired)
	require.Equal(t, "Web is down: Connection refused", lastMessage)
}

func TestDecideNotificationsUpAfterDownOnlyWhenAnnounced(t *testing.T) {
	m := graceMonitor()
	notifyCfg := config.Notification{}

	notifiedAt := int64(100)
	prev := model.MonitorState{Status: model.MonitorDown, LastNotifiedDownMS: &notifiedAt, RegionStatuses: map[string]model.RegionStatus{}}
	next := model.MonitorState{Status: model.MonitorUp, RegionStatuses: map[string]model.RegionStatus{}}

	events, _ := decideNotifications(m, nil, prev, next, notifyCfg, 200)
	require.Len(t, events, 1)
	require.Equal(t, "up", events[0].Kind)
}

func TestDecideNotificationsNoUpEventWhenNeverAnnounced(t *testing.T) {
	m := graceMonitor()
	notifyCfg := config.Notification{}

	prev := model.MonitorState{Status: model.MonitorDown, RegionStatuses: map[string]model.RegionStatus{}}
	next := model.MonitorState{Status: model.MonitorUp, RegionStatuses: map[string]model.RegionStatus{}}

	events, _ := decideNotifications(m, nil, prev, next, notifyCfg, 200)
	require.Empty(t, events)
}

func TestPrimaryErrorFallsBackWhenObservationMissing(t *testing.T) {
	state := model.MonitorState{RegionStatuses: map[string]model.RegionStatus{"A": {Status: model.StatusDown}}}
	require.Equal(t, "check failing", primaryError(state, nil))
}
