// Package notifier delivers rendered notification messages to the
// configured webhook, best-effort: per §4.6, delivery errors are logged
// and swallowed rather than surfaced to the aggregator.
package notifier

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/pulsegrid/sentinel/config"

	zlog "github.com/pulsegrid/sentinel/logger"
)

// defaultTimeout is used when the webhook config omits timeout_ms.
const defaultTimeout = 5 * time.Second

// Event is one notification decision the aggregator made for a monitor.
type Event struct {
	MonitorID string
	Kind      string // "down", "up", "slow", "fast", "spike"
	Message   string
}

// Notifier renders and delivers Events to a single configured webhook.
type Notifier struct {
	webhook config.Webhook
	client  *http.Client
}

// New builds a Notifier for the given webhook configuration.
func New(webhook config.Webhook) *Notifier {
	timeout := defaultTimeout
	if webhook.TimeoutMS > 0 {
		timeout = time.Duration(webhook.TimeoutMS) * time.Millisecond
	}
	return &Notifier{
		webhook: webhook,
		client:  &http.Client{Timeout: timeout},
	}
}

// Notify renders ev.Message into the webhook's payload template and
// delivers it. A zero-value webhook URL means notifications are
// disabled; Notify is then a no-op.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	log := zlog.GetLogger()

	if n.webhook.URL == "" {
		return
	}

	method := n.webhook.Method
	if method == "" {
		method = http.MethodPost
	}

	url, body, contentType, err := render(n.webhook, ev.Message)
	if err != nil {
		log.Err(err).Str("monitor_id", ev.MonitorID).Msg("failed to render notification payload")
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, n.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, bytes.NewReader(body))
	if err != nil {
		log.Err(err).Str("monitor_id", ev.MonitorID).Msg("failed to build notification request")
		return
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range n.webhook.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		log.Err(err).Str("monitor_id", ev.MonitorID).Str("kind", ev.Kind).Msg("failed to deliver notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Warn().Str("monitor_id", ev.MonitorID).Int("status", resp.StatusCode).Msg("webhook rejected notification")
	}
}
