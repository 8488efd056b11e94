package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pulsegrid/sentinel/model"
)

// WriteCheck appends a CHECK# record. Probes own this table exclusively;
// the aggregator only ever reads from it.
func (s *Store) WriteCheck(r model.CheckResult) error {
	return s.Conn.Exec(s.ctx, `--sql
		INSERT INTO checks (monitor_id, region, ts, status, latency_ms,
			dns_lookup_ms, tcp_connect_ms, tls_handshake_ms, ttfb_ms,
			content_download_ms, total_ms, approximated, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MonitorID, r.Region, msToTime(r.TimestampMS), string(r.Status), r.LatencyMS,
		r.Timing.DNSLookup, r.Timing.TCPConnect, r.Timing.TLSHandshake, r.Timing.TTFB,
		r.Timing.ContentDownload, r.Timing.Total, r.Timing.Approximated, r.Error)
}

// WriteLatencySample appends a LATENCY# record. Write order (check, then
// latency) is the driver's responsibility, not this package's; the two
// writes are not required to be atomic (§4.3).
func (s *Store) WriteLatencySample(sample model.LatencyHistorySample) error {
	return s.Conn.Exec(s.ctx, `--sql
		INSERT INTO latency_history (monitor_id, region, ts, latency_ms,
			dns_lookup_ms, tcp_connect_ms, tls_handshake_ms, ttfb_ms, content_download_ms, total_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.MonitorID, sample.Region, msToTime(sample.TimestampMS), sample.LatencyMS,
		sample.Timing.DNSLookup, sample.Timing.TCPConnect, sample.Timing.TLSHandshake,
		sample.Timing.TTFB, sample.Timing.ContentDownload, sample.Timing.Total)
}

// LatestCheckByRegion returns the most recent CHECK# record for each
// region of monitorID with sk > nowMS - windowMS, matching §4.5 step 1's
// "most recent record whose region field matches" rule. A region absent
// from the observations map had no matching record inside the window.
func (s *Store) LatestCheckByRegion(monitorID string, nowMS, windowMS int64) (map[string]model.CheckResult, error) {
	cutoff := msToTime(nowMS - windowMS)

	rows, err := s.Conn.Query(s.ctx, `--sql
		SELECT region, ts, status, latency_ms, dns_lookup_ms, tcp_connect_ms,
			tls_handshake_ms, ttfb_ms, content_download_ms, total_ms, approximated, error
		FROM checks
		WHERE monitor_id = ? AND ts > ?
		ORDER BY region, ts DESC`, monitorID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.CheckResult)
	for rows.Next() {
		var (
			region                                                        string
			ts                                                            time.Time
			status, errStr                                                string
			latency, dns, tcp, tls, ttfb, content, total                  int32
			approximated                                                  bool
		)
		if err := rows.Scan(&region, &ts, &status, &latency, &dns, &tcp, &tls, &ttfb, &content, &total, &approximated, &errStr); err != nil {
			return nil, err
		}
		// Keep only the first (most recent, due to ORDER BY ts DESC) row
		// seen per region.
		if _, exists := out[region]; exists {
			continue
		}
		out[region] = model.CheckResult{
			MonitorID:   monitorID,
			Region:      region,
			TimestampMS: timeToMS(ts),
			Status:      model.Status(status),
			LatencyMS:   int(latency),
			Error:       errStr,
			Timing: model.TimingMetrics{
				DNSLookup:       int(dns),
				TCPConnect:      int(tcp),
				TLSHandshake:    int(tls),
				TTFB:            int(ttfb),
				ContentDownload: int(content),
				Total:           int(total),
				Approximated:    approximated,
			},
		}
	}
	return out, rows.Err()
}

// LatestCheckForRegion returns the most recent CHECK# record for a single
// (monitorID, region) pair with sk > nowMS - windowMS, used by the
// aggregator's per-region fan-out so each region's query is independent
// of the others (§9: "parallel per-region aggregator queries").
func (s *Store) LatestCheckForRegion(monitorID, region string, nowMS, windowMS int64) (result model.CheckResult, found bool, err error) {
	cutoff := msToTime(nowMS - windowMS)

	row := s.Conn.QueryRow(s.ctx, `--sql
		SELECT ts, status, latency_ms, dns_lookup_ms, tcp_connect_ms,
			tls_handshake_ms, ttfb_ms, content_download_ms, total_ms, approximated, error
		FROM checks
		WHERE monitor_id = ? AND region = ? AND ts > ?
		ORDER BY ts DESC
		LIMIT 1`, monitorID, region, cutoff)

	var (
		ts                                             time.Time
		status, errStr                                 string
		latency, dns, tcp, tls, ttfb, content, total    int32
		approximated                                    bool
	)
	if err := row.Scan(&ts, &status, &latency, &dns, &tcp, &tls, &ttfb, &content, &total, &approximated, &errStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CheckResult{}, false, nil
		}
		return model.CheckResult{}, false, err
	}

	return model.CheckResult{
		MonitorID:   monitorID,
		Region:      region,
		TimestampMS: timeToMS(ts),
		Status:      model.Status(status),
		LatencyMS:   int(latency),
		Error:       errStr,
		Timing: model.TimingMetrics{
			DNSLookup:       int(dns),
			TCPConnect:      int(tcp),
			TLSHandshake:    int(tls),
			TTFB:            int(ttfb),
			ContentDownload: int(content),
			Total:           int(total),
			Approximated:    approximated,
		},
	}, true, nil
}

// LatencyWindow returns ascending-by-time latency samples for a region
// over the trailing windowMinutes, used both by the chart API and the
// aggregator's spike baseline.
func (s *Store) LatencyWindow(monitorID, region string, nowMS int64, windowMinutes int) ([]model.LatencyHistorySample, error) {
	cutoff := msToTime(nowMS - int64(windowMinutes)*60_000)

	rows, err := s.Conn.Query(s.ctx, `--sql
		SELECT ts, latency_ms, dns_lookup_ms, tcp_connect_ms, tls_handshake_ms, ttfb_ms, content_download_ms, total_ms
		FROM latency_history
		WHERE monitor_id = ? AND region = ? AND ts > ?
		ORDER BY ts ASC`, monitorID, region, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LatencyHistorySample
	for rows.Next() {
		var (
			ts                                             time.Time
			latency, dns, tcp, tls, ttfb, content, total int32
		)
		if err := rows.Scan(&ts, &latency, &dns, &tcp, &tls, &ttfb, &content, &total); err != nil {
			return nil, err
		}
		out = append(out, model.LatencyHistorySample{
			MonitorID:   monitorID,
			Region:      region,
			TimestampMS: timeToMS(ts),
			LatencyMS:   int(latency),
			Timing: model.TimingMetrics{
				DNSLookup: int(dns), TCPConnect: int(tcp), TLSHandshake: int(tls),
				TTFB: int(ttfb), ContentDownload: int(content), Total: int(total),
			},
		})
	}
	return out, rows.Err()
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timeToMS(t time.Time) int64 {
	return t.UnixMilli()
}
