package probe

import (
	"context"
	"net"
	"time"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
)

// TCPProber runs one-shot TCP-connect checks for monitors configured with
// method TCP_PING, per §4.2. It has no state of its own.
type TCPProber struct {
	resolver *net.Resolver
}

// NewTCPProber builds a TCPProber using the system resolver.
func NewTCPProber() *TCPProber {
	return &TCPProber{resolver: net.DefaultResolver}
}

// Check resolves m.Target's host, then dials it, reporting up iff the
// dial succeeds within the monitor's timeout. DNS lookup and connect are
// timed separately so the DNS phase is visible in TimingMetrics even
// though no HTTP request follows.
func (p *TCPProber) Check(ctx context.Context, region string, m config.MonitorTarget) model.CheckResult {
	now := time.Now()
	result := model.CheckResult{
		MonitorID:   m.ID,
		Region:      region,
		TimestampMS: now.UnixMilli(),
	}

	timeout := time.Duration(m.TimeoutMS) * time.Millisecond
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host, port, err := net.SplitHostPort(m.Target)
	if err != nil {
		// Config validation does not check the host:port form, so a
		// target without an explicit port, or otherwise malformed, is
		// reported down here.
		result.Status = model.StatusDown
		result.Error = classify(err)
		return result
	}

	start := time.Now()
	addrs, err := p.resolver.LookupHost(checkCtx, host)
	dnsElapsed := time.Since(start)
	if err != nil || len(addrs) == 0 {
		result.Status = model.StatusDown
		result.Timing = model.TimingMetrics{DNSLookup: int(dnsElapsed.Milliseconds())}
		result.Error = classify(err)
		return result
	}

	dialer := &net.Dialer{}
	connStart := time.Now()
	conn, err := dialer.DialContext(checkCtx, "tcp", net.JoinHostPort(addrs[0], port))
	connElapsed := time.Since(connStart)
	total := time.Since(start)

	timing := model.TimingMetrics{
		DNSLookup:  int(dnsElapsed.Milliseconds()),
		TCPConnect: int(connElapsed.Milliseconds()),
		Total:      int(total.Milliseconds()),
	}
	result.Timing = timing
	result.LatencyMS = timing.Total

	if err != nil {
		result.Status = model.StatusDown
		result.Error = classify(err)
		return result
	}
	defer conn.Close()

	result.Status = model.StatusUp
	return result
}
