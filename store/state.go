package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/pulsegrid/sentinel/model"
)

// WriteState upserts a monitor's current STATE# row. monitor_state is a
// ReplacingMergeTree keyed on monitor_id, so the row most recently written
// wins once ClickHouse merges; reads always go through FINAL to see it
// immediately.
func (s *Store) WriteState(st model.MonitorState) error {
	regionStatuses, err := json.Marshal(st.RegionStatuses)
	if err != nil {
		return err
	}
	primaryTiming, err := json.Marshal(st.PrimaryTiming)
	if err != nil {
		return err
	}

	return s.Conn.Exec(s.ctx, `--sql
		INSERT INTO monitor_state (monitor_id, status, primary_latency_ms, primary_timing,
			region_statuses, last_check_ms, down_since_ms, slow_since_ms,
			last_notified_down_ms, last_notified_slow_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.MonitorID, string(st.Status), st.PrimaryLatencyMS, string(primaryTiming),
		string(regionStatuses), st.LastCheckMS, st.DownSinceMS, st.SlowSinceMS,
		st.LastNotifiedDownMS, st.LastNotifiedSlowMS, time.Now().UTC())
}

// ReadState loads one monitor's current state. ok is false if no STATE#
// row has ever been written for monitorID, which the aggregator treats as
// "first tick ever seen" and starts the monitor from a zero state.
func (s *Store) ReadState(monitorID string) (st model.MonitorState, ok bool, err error) {
	row := s.Conn.QueryRow(s.ctx, `--sql
		SELECT monitor_id, status, primary_latency_ms, primary_timing, region_statuses,
			last_check_ms, down_since_ms, slow_since_ms, last_notified_down_ms, last_notified_slow_ms
		FROM monitor_state FINAL
		WHERE monitor_id = ?`, monitorID)

	var (
		statusStr, primaryTimingJSON, regionStatusesJSON string
	)
	if err := row.Scan(&st.MonitorID, &statusStr, &st.PrimaryLatencyMS, &primaryTimingJSON,
		&regionStatusesJSON, &st.LastCheckMS, &st.DownSinceMS, &st.SlowSinceMS,
		&st.LastNotifiedDownMS, &st.LastNotifiedSlowMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.MonitorState{}, false, nil
		}
		return model.MonitorState{}, false, err
	}

	st.Status = model.MonitorStatus(statusStr)
	if err := json.Unmarshal([]byte(primaryTimingJSON), &st.PrimaryTiming); err != nil {
		return model.MonitorState{}, false, err
	}
	if err := json.Unmarshal([]byte(regionStatusesJSON), &st.RegionStatuses); err != nil {
		return model.MonitorState{}, false, err
	}
	return st, true, nil
}

// AllStates loads the current state of every monitor that has ever
// reported, used by the query layer's /api/status and /api/data handlers.
func (s *Store) AllStates() ([]model.MonitorState, error) {
	rows, err := s.Conn.Query(s.ctx, `--sql
		SELECT monitor_id, status, primary_latency_ms, primary_timing, region_statuses,
			last_check_ms, down_since_ms, slow_since_ms, last_notified_down_ms, last_notified_slow_ms
		FROM monitor_state FINAL
		ORDER BY monitor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MonitorState
	for rows.Next() {
		var (
			st                                    model.MonitorState
			statusStr, primaryTimingJSON, regionJSON string
		)
		if err := rows.Scan(&st.MonitorID, &statusStr, &st.PrimaryLatencyMS, &primaryTimingJSON,
			&regionJSON, &st.LastCheckMS, &st.DownSinceMS, &st.SlowSinceMS,
			&st.LastNotifiedDownMS, &st.LastNotifiedSlowMS); err != nil {
			return nil, err
		}
		st.Status = model.MonitorStatus(statusStr)
		if err := json.Unmarshal([]byte(primaryTimingJSON), &st.PrimaryTiming); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(regionJSON), &st.RegionStatuses); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
