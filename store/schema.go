package store

// TableChecks and friends name the five tables that realize the five
// pk/sk entities of §3. Range queries by sk (timestamp) under a fixed pk
// (monitor_id, or monitor_id+region) are expressed as ClickHouse ORDER BY
// prefixes; no cross-key scans happen on the probe or aggregator hot path.
const (
	TableChecks         = "checks"
	TableLatencyHistory = "latency_history"
	TableMonitorState   = "monitor_state"
	TableIncidents      = "incidents"
	TableGlobalSummary  = "global_summary"
)

func (s *Store) createTables() error {
	ctx := s.ctx

	if err := s.Conn.Exec(ctx, `--sql
		CREATE TABLE IF NOT EXISTS checks (
			monitor_id           String,
			region               String,
			ts                   DateTime64(3),
			status               String,
			latency_ms           Int32,
			dns_lookup_ms        Int32,
			tcp_connect_ms       Int32,
			tls_handshake_ms     Int32,
			ttfb_ms              Int32,
			content_download_ms  Int32,
			total_ms             Int32,
			approximated         Bool,
			error                String
		) ENGINE = MergeTree
		ORDER BY (monitor_id, ts, region)`); err != nil {
		return err
	}

	if err := s.Conn.Exec(ctx, `--sql
		CREATE TABLE IF NOT EXISTS latency_history (
			monitor_id           String,
			region               String,
			ts                   DateTime64(3),
			latency_ms           Int32,
			dns_lookup_ms        Int32,
			tcp_connect_ms       Int32,
			tls_handshake_ms     Int32,
			ttfb_ms              Int32,
			content_download_ms  Int32,
			total_ms             Int32
		) ENGINE = MergeTree
		ORDER BY (monitor_id, region, ts)`); err != nil {
		return err
	}

	if err := s.Conn.Exec(ctx, `--sql
		CREATE TABLE IF NOT EXISTS monitor_state (
			monitor_id              String,
			status                  String,
			primary_latency_ms      Int32,
			primary_timing          String,
			region_statuses         String,
			last_check_ms           Int64,
			down_since_ms           Nullable(Int64),
			slow_since_ms           Nullable(Int64),
			last_notified_down_ms   Nullable(Int64),
			last_notified_slow_ms   Nullable(Int64),
			updated_at              DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY monitor_id`); err != nil {
		return err
	}

	if err := s.Conn.Exec(ctx, `--sql
		CREATE TABLE IF NOT EXISTS incidents (
			monitor_id    String,
			start_ms      Int64,
			end_ms        Nullable(Int64),
			error         String,
			regions_down  Array(String),
			updated_at    DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (monitor_id, start_ms)`); err != nil {
		return err
	}

	if err := s.Conn.Exec(ctx, `--sql
		CREATE TABLE IF NOT EXISTS global_summary (
			id                String,
			overall_up        Int32,
			overall_down      Int32,
			overall_degraded  Int32,
			last_update_ms    Int64,
			updated_at        DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY id`); err != nil {
		return err
	}

	return nil
}

// applyTTLs sets item-level TTLs matching §3: 12 hours for CheckResult
// and LatencyHistory, 90 days for Incident, none for the current-state
// tables. The 12/90-hour-vs-day split and the ALTER TABLE ... MODIFY TTL
// idiom are taken directly from the teacher's database/ttl.go.
func (s *Store) applyTTLs() error {
	ctx := s.ctx

	if err := s.Conn.Exec(ctx, `--sql
		ALTER TABLE checks MODIFY TTL ts + INTERVAL 12 HOUR`); err != nil {
		return err
	}

	if err := s.Conn.Exec(ctx, `--sql
		ALTER TABLE latency_history MODIFY TTL ts + INTERVAL 12 HOUR`); err != nil {
		return err
	}

	if err := s.Conn.Exec(ctx, `--sql
		ALTER TABLE incidents MODIFY TTL updated_at + INTERVAL 90 DAY`); err != nil {
		return err
	}

	return nil
}
