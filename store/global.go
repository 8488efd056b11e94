package store

import (
	"time"

	"github.com/pulsegrid/sentinel/model"
)

// globalSummaryID is the fixed row identity for the single global_summary
// row this deployment maintains; there is exactly one, so it needs no
// natural key beyond a constant.
const globalSummaryID = "global"

// WriteGlobalSummary overwrites the deployment-wide counters. Called once
// per aggregator tick after every monitor's state has been recomputed.
func (s *Store) WriteGlobalSummary(g model.GlobalSummary) error {
	return s.Conn.Exec(s.ctx, `--sql
		INSERT INTO global_summary (id, overall_up, overall_down, overall_degraded, last_update_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		globalSummaryID, g.OverallUp, g.OverallDown, g.OverallDegraded, g.LastUpdateMS, time.Now().UTC())
}

// ReadGlobalSummary loads the current deployment-wide counters. ok is
// false before the first aggregator tick has ever run.
func (s *Store) ReadGlobalSummary() (g model.GlobalSummary, ok bool, err error) {
	row := s.Conn.QueryRow(s.ctx, `--sql
		SELECT overall_up, overall_down, overall_degraded, last_update_ms
		FROM global_summary FINAL
		WHERE id = ?`, globalSummaryID)

	if err := row.Scan(&g.OverallUp, &g.OverallDown, &g.OverallDegraded, &g.LastUpdateMS); err != nil {
		return model.GlobalSummary{}, false, nil
	}
	return g, true, nil
}
