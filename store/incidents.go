package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pulsegrid/sentinel/model"
)

// UpsertIncident writes an incident row keyed by (monitor_id, start_ms).
// Because incidents is a ReplacingMergeTree on that key, calling this
// again with the same StartMS (e.g. to attach EndMS on recovery) replaces
// the open incident rather than creating a second one — the §9 redesign
// that keys incident identity on down_since instead of "most recent".
func (s *Store) UpsertIncident(inc model.Incident) error {
	return s.Conn.Exec(s.ctx, `--sql
		INSERT INTO incidents (monitor_id, start_ms, end_ms, error, regions_down, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inc.MonitorID, inc.StartMS, inc.EndMS, inc.Error, inc.RegionsDown, time.Now().UTC())
}

// OpenIncident returns the currently open incident for a monitor, if any.
// It returns the row with the highest start_ms among the monitor's rows
// whose end_ms IS NULL; FINAL collapses any duplicate writes from repeated UpsertIncident
// calls during the same downtime episode.
func (s *Store) OpenIncident(monitorID string) (inc model.Incident, ok bool, err error) {
	row := s.Conn.QueryRow(s.ctx, `--sql
		SELECT monitor_id, start_ms, end_ms, error, regions_down
		FROM incidents FINAL
		WHERE monitor_id = ? AND end_ms IS NULL
		ORDER BY start_ms DESC
		LIMIT 1`, monitorID)

	if err := row.Scan(&inc.MonitorID, &inc.StartMS, &inc.EndMS, &inc.Error, &inc.RegionsDown); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Incident{}, false, nil
		}
		return model.Incident{}, false, err
	}
	return inc, true, nil
}

// IncidentsSince returns every incident for a monitor that started on or
// after sinceMS, most recent first, used by the /api/incidents handler.
func (s *Store) IncidentsSince(monitorID string, sinceMS int64) ([]model.Incident, error) {
	rows, err := s.Conn.Query(s.ctx, `--sql
		SELECT monitor_id, start_ms, end_ms, error, regions_down
		FROM incidents FINAL
		WHERE monitor_id = ? AND start_ms >= ?
		ORDER BY start_ms DESC`, monitorID, sinceMS)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Incident
	for rows.Next() {
		var inc model.Incident
		if err := rows.Scan(&inc.MonitorID, &inc.StartMS, &inc.EndMS, &inc.Error, &inc.RegionsDown); err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}
