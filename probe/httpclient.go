// Package probe implements the region-local checks: one goroutine pool
// per region, each running HTTP or TCP probes against the monitors
// assigned to it and handing results off to the store's write queue.
package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
)

// maxBodyRead caps how much of a response body a keyword check will read,
// so a monitor pointed at a multi-gigabyte endpoint can't stall a probe
// worker reading the whole thing into memory.
const maxBodyRead = 1 << 20 // 1 MiB

// userAgent identifies every outbound probe request with a stable value,
// matching §4.1's "sets User-Agent to a stable identifier" rule.
const userAgent = "sentinel-probe/1.0"

// bodyAllowed reports whether a monitor's configured body is sent, per
// §4.1: only POST/PUT/PATCH carry a body.
func bodyAllowed(method config.HTTPMethod) bool {
	switch method {
	case config.MethodPOST, config.MethodPUT, config.MethodPATCH:
		return true
	default:
		return false
	}
}

// HTTPClient runs one-shot, phase-timed HTTP checks. It holds no
// per-monitor state and is safe for concurrent use across a region's
// worker pool.
type HTTPClient struct {
	transport *http.Transport
}

// NewHTTPClient builds an HTTPClient with a transport tuned for
// short-lived, one-off probe requests: no connection reuse across
// targets, since pooling would make phase timings from Dial onward read
// as zero on the second check of the same host.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		transport: &http.Transport{
			DisableKeepAlives:   true,
			TLSHandshakeTimeout: 30 * time.Second,
		},
	}
}

// Check runs a single HTTP probe against m and returns a CheckResult.
// Phase timings come from an httptrace.ClientTrace attached to the
// request context; when the probe fails before a given phase starts,
// that phase's duration is left at zero rather than approximated.
func (c *HTTPClient) Check(ctx context.Context, region string, m config.MonitorTarget) model.CheckResult {
	now := time.Now()
	result := model.CheckResult{
		MonitorID:   m.ID,
		Region:      region,
		TimestampMS: now.UnixMilli(),
	}

	timeout := time.Duration(m.TimeoutMS) * time.Millisecond
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if m.Body != "" && bodyAllowed(m.Method) {
		body = strings.NewReader(m.Body)
	}

	req, err := http.NewRequestWithContext(reqCtx, string(m.Method), m.Target, body)
	if err != nil {
		result.Status = model.StatusDown
		result.Error = classify(err)
		return result
	}
	for k, v := range m.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", userAgent)

	var timing model.TimingMetrics
	var start, dnsStart, connectStart, tlsStart time.Time

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			timing.DNSLookup = int(time.Since(dnsStart).Milliseconds())
		},
		ConnectStart: func(_, _ string) {
			connectStart = time.Now()
		},
		ConnectDone: func(_, _ string, err error) {
			if err == nil {
				timing.TCPConnect = int(time.Since(connectStart).Milliseconds())
			}
		},
		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err == nil {
				timing.TLSHandshake = int(time.Since(tlsStart).Milliseconds())
			}
		},
		GotFirstResponseByte: func() {
			timing.TTFB = int(time.Since(start).Milliseconds())
		},
	}
	start = time.Now()
	req = req.WithContext(httptrace.WithClientTrace(reqCtx, trace))

	client := &http.Client{
		Transport: c.transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		timing.Total = int(time.Since(start).Milliseconds())
		result.Status = model.StatusDown
		result.Error = classify(err)
		result.Timing = timing
		result.LatencyMS = timing.Total
		return result
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	timing.ContentDownload = int(time.Since(start).Milliseconds()) - timing.TTFB
	if timing.ContentDownload < 0 {
		timing.ContentDownload = 0
	}
	timing.Total = int(time.Since(start).Milliseconds())

	result.Timing = timing
	result.LatencyMS = timing.Total

	if err := validateResponse(resp, bodyBytes, m); err != nil {
		result.Status = model.StatusDown
		result.Error = err.Error()
		return result
	}

	result.Status = model.StatusUp
	return result
}

// validateResponse applies §4.1's fixed check order: status code first,
// then forbidden keyword, then required keyword. The first failing rule
// wins so operators always see the most actionable error.
func validateResponse(resp *http.Response, body []byte, m config.MonitorTarget) error {
	if len(m.ExpectedCodes) > 0 && !containsInt(m.ExpectedCodes, resp.StatusCode) {
		return &unexpectedStatus{Code: resp.StatusCode, Expected: m.ExpectedCodes}
	}

	if m.ResponseForbiddenKeyword != "" && bytes.Contains(body, []byte(m.ResponseForbiddenKeyword)) {
		return &keywordMismatch{Forbidden: true, Keyword: m.ResponseForbiddenKeyword}
	}

	if m.ResponseKeyword != "" && !bytes.Contains(body, []byte(m.ResponseKeyword)) {
		return &keywordMismatch{Forbidden: false, Keyword: m.ResponseKeyword}
	}

	return nil
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
