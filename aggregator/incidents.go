package aggregator

import (
	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
)

// reconcileIncident implements §4.5's incident lifecycle, keyed by
// down_since rather than "most recent" (the §9 redesign SPEC_FULL.md
// adopts): opening or refreshing the incident whose start_ms equals the
// state's down_since while down, and closing the incident whose
// start_ms equals the state's down_since at the moment it clears.
func (a *Aggregator) reconcileIncident(m config.MonitorTarget, observations map[string]model.CheckResult, prev, next model.MonitorState, nowMS int64) error {
	switch {
	case next.Status == model.MonitorDown && next.DownSinceMS != nil:
		regionsDown := make([]string, 0, len(next.RegionStatuses))
		for region, rs := range next.RegionStatuses {
			if rs.Status == model.StatusDown {
				regionsDown = append(regionsDown, region)
			}
		}
		return a.store.UpsertIncident(model.Incident{
			MonitorID:   m.ID,
			StartMS:     *next.DownSinceMS,
			Error:       firstDownRegionError(next, observations),
			RegionsDown: regionsDown,
		})

	case next.Status == model.MonitorUp && prev.DownSinceMS != nil:
		// The state that was down a moment ago carries the down_since
		// that identifies which incident to close, since next.DownSinceMS
		// has already been cleared by tally's up transition.
		open, ok, err := a.store.OpenIncident(m.ID)
		if err != nil {
			return err
		}
		if !ok || open.StartMS != *prev.DownSinceMS {
			return nil
		}
		endMS := nowMS
		open.EndMS = &endMS
		return a.store.UpsertIncident(open)
	}

	return nil
}
