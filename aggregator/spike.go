package aggregator

import (
	"github.com/pulsegrid/sentinel/model"

	"github.com/montanaflynn/stats"
)

// minBaselineSamples is the smallest sample count spike detection trusts;
// below this a median is too noisy to compare against, per §4.5.
const minBaselineSamples = 6

// spikeBaseline computes the median latency of a primary region's recent
// samples, grounded on montanaflynn/stats the way the teacher uses it for
// beacon-interval baselining. ok is false when fewer than
// minBaselineSamples samples are available, in which case the caller must
// skip spike detection for this tick.
func spikeBaseline(samples []model.LatencyHistorySample) (median float64, ok bool) {
	if len(samples) < minBaselineSamples {
		return 0, false
	}

	values := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		values[i] = float64(s.LatencyMS)
	}

	median, err := values.Median()
	if err != nil {
		return 0, false
	}
	return median, true
}

// isSpike reports whether latencyMS exceeds the baseline by more than
// thresholdPercent, per §4.5's `primary_latency > baseline * (1 +
// threshold_percent / 100)` rule.
func isSpike(latencyMS int, baseline float64, thresholdPercent float64) bool {
	return float64(latencyMS) > baseline*(1+thresholdPercent/100)
}

// spikePhase attributes a latency spike to the most likely phase using
// the fixed heuristic order from §4.5: DNS, then TLS, then TTFB, then a
// catch-all "overall".
func spikePhase(timing model.TimingMetrics) string {
	switch {
	case timing.DNSLookup > 100:
		return "DNS"
	case timing.TLSHandshake > 200:
		return "TLS"
	case timing.Total > 0 && float64(timing.TTFB) > 0.7*float64(timing.Total):
		return "TTFB"
	default:
		return "overall"
	}
}
