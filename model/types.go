// Package model holds the entity types shared by the probe, aggregator,
// store, and query packages so none of them need to import each other
// directly — the only coupling between components is through these types
// and the central store (§9's "cycle-free module layout").
package model

import "time"

// MSToTime converts milliseconds-since-epoch, the wire representation
// used throughout the store and config layers, to a time.Time.
func MSToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Status is the up/down status a single region reports for one check.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// MonitorStatus is the aggregated, three-valued status the aggregator
// derives for a monitor as a whole.
type MonitorStatus string

const (
	MonitorUp          MonitorStatus = "up"
	MonitorDegraded    MonitorStatus = "degraded"
	MonitorDown        MonitorStatus = "down"
	MonitorMaintenance MonitorStatus = "maintenance"
)

// TimingMetrics is the phase-accurate timing breakdown of one check,
// measured in non-negative integer milliseconds.
type TimingMetrics struct {
	DNSLookup       int  `json:"dns_lookup"`
	TCPConnect      int  `json:"tcp_connect"`
	TLSHandshake    int  `json:"tls_handshake"`
	TTFB            int  `json:"ttfb"`
	ContentDownload int  `json:"content_download"`
	Total           int  `json:"total"`
	Approximated    bool `json:"approximated,omitempty"`
}

// CheckResult is one probe outcome for one monitor, from one region.
type CheckResult struct {
	MonitorID   string        `json:"monitor_id"`
	Region      string        `json:"region"`
	TimestampMS int64         `json:"timestamp_ms"`
	Status      Status        `json:"status"`
	LatencyMS   int           `json:"latency_ms"`
	Timing      TimingMetrics `json:"timing"`
	Error       string        `json:"error,omitempty"`
}

// LatencyHistorySample is one point of a region's latency time series,
// decoupled from CheckResult so chart queries never need to touch the
// error/status fields.
type LatencyHistorySample struct {
	MonitorID   string        `json:"monitor_id"`
	Region      string        `json:"region"`
	TimestampMS int64         `json:"timestamp_ms"`
	LatencyMS   int           `json:"latency_ms"`
	Timing      TimingMetrics `json:"timing"`
}

// RegionStatus is one region's contribution to a monitor's current state.
type RegionStatus struct {
	Status    Status `json:"status"`
	LatencyMS int    `json:"latency_ms"`
}

// MonitorState is the mutable, aggregator-owned current state of one
// monitor. down_since_ms is set on entering down and cleared only when
// Status returns to up, so it stays set through a down -> degraded tick;
// slow_since_ms is set iff the current primary latency exceeds the
// monitor's threshold.
type MonitorState struct {
	MonitorID           string                  `json:"monitor_id"`
	Status              MonitorStatus           `json:"status"`
	PrimaryLatencyMS    int                     `json:"primary_latency_ms"`
	PrimaryTiming       TimingMetrics           `json:"primary_timing"`
	RegionStatuses      map[string]RegionStatus `json:"region_statuses"`
	LastCheckMS         int64                   `json:"last_check_ms"`
	DownSinceMS         *int64                  `json:"down_since_ms,omitempty"`
	SlowSinceMS         *int64                  `json:"slow_since_ms,omitempty"`
	LastNotifiedDownMS  *int64                  `json:"last_notified_down_ms,omitempty"`
	LastNotifiedSlowMS  *int64                  `json:"last_notified_slow_ms,omitempty"`
}

// Clone returns a deep-enough copy of the state for safe mutation by the
// aggregator's pure transition functions.
func (s MonitorState) Clone() MonitorState {
	c := s
	if s.DownSinceMS != nil {
		v := *s.DownSinceMS
		c.DownSinceMS = &v
	}
	if s.SlowSinceMS != nil {
		v := *s.SlowSinceMS
		c.SlowSinceMS = &v
	}
	if s.LastNotifiedDownMS != nil {
		v := *s.LastNotifiedDownMS
		c.LastNotifiedDownMS = &v
	}
	if s.LastNotifiedSlowMS != nil {
		v := *s.LastNotifiedSlowMS
		c.LastNotifiedSlowMS = &v
	}
	c.RegionStatuses = make(map[string]RegionStatus, len(s.RegionStatuses))
	for k, v := range s.RegionStatuses {
		c.RegionStatuses[k] = v
	}
	return c
}

// Incident is one downtime episode. At most one open incident (EndMS ==
// nil) exists per monitor at a time; closure is one-way.
type Incident struct {
	MonitorID   string   `json:"monitor_id"`
	StartMS     int64    `json:"start_ms"`
	EndMS       *int64   `json:"end_ms,omitempty"`
	Error       string   `json:"error"`
	RegionsDown []string `json:"regions_down"`
}

// GlobalSummary is the derived, deployment-wide counters overwritten each
// aggregator tick.
type GlobalSummary struct {
	OverallUp       int   `json:"overall_up"`
	OverallDown     int   `json:"overall_down"`
	OverallDegraded int   `json:"overall_degraded"`
	LastUpdateMS    int64 `json:"last_update_ms"`
}
