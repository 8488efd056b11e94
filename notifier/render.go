package notifier

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/pulsegrid/sentinel/config"
)

// render builds the outbound URL, body, and content type for a webhook
// delivery, per §4.6's three payload_type variants.
func render(webhook config.Webhook, message string) (outURL string, body []byte, contentType string, err error) {
	substituted := substitute(webhook.PayloadTemplate, message)

	switch webhook.PayloadType {
	case "x-www-form-urlencoded":
		body = []byte(flatten(substituted).Encode())
		return webhook.URL, body, "application/x-www-form-urlencoded", nil

	case "param":
		u, err := url.Parse(webhook.URL)
		if err != nil {
			return "", nil, "", fmt.Errorf("parsing webhook url: %w", err)
		}
		q := u.Query()
		for k, v := range flatten(substituted) {
			q[k] = v
		}
		u.RawQuery = q.Encode()
		return u.String(), nil, "", nil

	default: // "json" and unset both serialize as JSON, per the teacher's
		// convention of treating an empty enum value as its most common case.
		body, err = json.Marshal(substituted)
		if err != nil {
			return "", nil, "", fmt.Errorf("marshaling webhook payload: %w", err)
		}
		return webhook.URL, body, "application/json", nil
	}
}

// substitute replaces the literal string "$MSG" wherever it appears in a
// string-valued template entry with message. Non-string values pass
// through unchanged.
func substitute(template map[string]any, message string) map[string]any {
	out := make(map[string]any, len(template))
	for k, v := range template {
		if s, ok := v.(string); ok {
			out[k] = strings.ReplaceAll(s, "$MSG", message)
			continue
		}
		out[k] = v
	}
	if _, hasMessage := out["message"]; !hasMessage && len(template) == 0 {
		out["message"] = message
	}
	return out
}

// flatten renders a substituted payload map to a flat k=v form, used by
// both the x-www-form-urlencoded and param payload types. Keys are
// sorted so the encoded output is deterministic for a given input.
func flatten(m map[string]any) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		values.Set(k, fmt.Sprintf("%v", m[k]))
	}
	return values
}
