// Package config loads and validates the monitor, notification, and
// maintenance configuration consumed by the probe, aggregator, and query
// layer binaries.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pulsegrid/sentinel/logger"
	"github.com/pulsegrid/sentinel/util"

	"github.com/go-playground/validator/v10"
	"github.com/hjson/hjson-go/v4"
	"github.com/spf13/afero"
)

// Version is populated by build flags with the current Git tag.
var Version string

const DefaultConfigPath = "./config.hjson"

var errReadingConfigFile = errors.New("encountered an error while reading the config file")

// HTTPMethod enumerates the methods a MonitorTarget can exercise.
type HTTPMethod string

const (
	MethodGET     HTTPMethod = "GET"
	MethodPOST    HTTPMethod = "POST"
	MethodPUT     HTTPMethod = "PUT"
	MethodPATCH   HTTPMethod = "PATCH"
	MethodDELETE  HTTPMethod = "DELETE"
	MethodHEAD    HTTPMethod = "HEAD"
	MethodOPTIONS HTTPMethod = "OPTIONS"
	MethodTCPPing HTTPMethod = "TCP_PING"
)

const (
	DefaultHTTPTimeoutMS = 10_000
	DefaultTCPTimeoutMS  = 5_000
)

type (
	// Config is the top-level configuration object, built from the
	// MONITORS_CONFIG / NOTIFICATION_CONFIG / MAINTENANCES_CONFIG /
	// PAGE_CONFIG / PASSWORD_PROTECTION / TABLE_NAME / CENTRAL_REGION
	// environment inputs described in the spec.
	Config struct {
		Env                Env            `json:"-" validate:"required"`
		Monitors           []MonitorTarget `json:"monitors" validate:"required,gt=0,dive"`
		Notification       Notification    `json:"notification" validate:"required"`
		Maintenances       []Maintenance   `json:"maintenances" validate:"dive"`
		Page               json.RawMessage `json:"page"`
		PasswordProtection string          `json:"password_protection"`
	}

	// Env holds values sourced from the process environment rather than
	// the JSON/HJSON config document.
	Env struct {
		TableName     string `validate:"required"`
		CentralRegion string `validate:"required"`
		LogLevel      int8   `validate:"min=0,max=6"`
	}

	// MonitorTarget is declarative, immutable-per-deployment config for
	// one checked target.
	MonitorTarget struct {
		ID                        string            `json:"id" validate:"required,ascii"`
		Name                      string            `json:"name" validate:"required"`
		Method                    HTTPMethod        `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS TCP_PING"`
		Target                    string            `json:"target" validate:"required"`
		TimeoutMS                 int               `json:"timeout_ms"`
		ExpectedCodes             []int             `json:"expected_codes"`
		Headers                   map[string]string `json:"headers"`
		Body                      string            `json:"body"`
		ResponseKeyword           string            `json:"response_keyword"`
		ResponseForbiddenKeyword  string            `json:"response_forbidden_keyword"`
		Regions                   []string          `json:"regions" validate:"required,gt=0"`
		PrimaryRegion             string             `json:"primary_region"`
		LatencyThresholdMS        int               `json:"latency_threshold_ms"`
		Alerting                  Alerting          `json:"alerting"`
		Group                    string            `json:"group"`
	}

	// Alerting holds the optional, per-monitor alerting tunables.
	Alerting struct {
		DownVoteThreshold      int     `json:"down_vote_threshold" validate:"gte=0"`
		GraceDownMinutes       int     `json:"grace_down_minutes" validate:"gte=0"`
		GraceSlowMinutes       int     `json:"grace_slow_minutes" validate:"gte=0"`
		SpikeDetectionEnabled  bool    `json:"spike_detection_enabled"`
		BaselineWindowMinutes  int     `json:"baseline_window_minutes" validate:"gte=0"`
		SpikeThresholdPercent  float64 `json:"spike_threshold_percent" validate:"gte=0"`
	}

	// Notification carries the webhook and gating configuration shared
	// across all monitors.
	Notification struct {
		Webhook                       Webhook  `json:"webhook"`
		Timezone                      string   `json:"timezone"`
		GracePeriodMinutes            int      `json:"grace_period"`
		SkipIDs                       []string `json:"skip_ids"`
		SkipErrorChangeNotification   bool     `json:"skip_error_change_notification"`
	}

	// Webhook configures outbound delivery for rendered notification
	// messages.
	Webhook struct {
		URL            string            `json:"url" validate:"omitempty,url"`
		Method         string            `json:"method"`
		PayloadType    string            `json:"payload_type" validate:"omitempty,oneof=json x-www-form-urlencoded param"`
		PayloadTemplate map[string]any   `json:"payload_template"`
		Headers        map[string]string `json:"headers"`
		TimeoutMS      int               `json:"timeout_ms"`
	}

	// Maintenance describes a time window during which a subset of
	// monitors (or all, if Monitors is empty) are suppressed from
	// alerting and reported as "maintenance" by the query layer.
	Maintenance struct {
		Monitors []string   `json:"monitors"`
		Title    string     `json:"title"`
		Body     string     `json:"body" validate:"required"`
		Start    time.Time  `json:"start" validate:"required"`
		End      *time.Time `json:"end"`
		Color    string     `json:"color"`
	}
)

// Matches reports whether the maintenance window covers monitorID at now.
func (m Maintenance) Matches(monitorID string, now time.Time) bool {
	if now.Before(m.Start) {
		return false
	}
	if m.End != nil && now.After(*m.End) {
		return false
	}
	if len(m.Monitors) == 0 {
		return true
	}
	for _, id := range m.Monitors {
		if id == monitorID {
			return true
		}
	}
	return false
}

// ApplyDefaults fills in the optional fields of a MonitorTarget with the
// spec-mandated defaults and ensures the primary region is present in the
// region set.
func (m *MonitorTarget) ApplyDefaults() {
	if m.TimeoutMS == 0 {
		if m.Method == MethodTCPPing {
			m.TimeoutMS = DefaultTCPTimeoutMS
		} else {
			m.TimeoutMS = DefaultHTTPTimeoutMS
		}
	}
	if len(m.ExpectedCodes) == 0 {
		m.ExpectedCodes = []int{200, 201, 202, 203, 204, 205, 206}
	}
	if m.PrimaryRegion == "" {
		m.PrimaryRegion = m.Regions[0]
	}
	found := false
	for _, r := range m.Regions {
		if r == m.PrimaryRegion {
			found = true
			break
		}
	}
	if !found {
		m.Regions = append(m.Regions, m.PrimaryRegion)
	}
	if m.Alerting.GraceDownMinutes == 0 {
		m.Alerting.GraceDownMinutes = 5
	}
	if m.Alerting.GraceSlowMinutes == 0 {
		m.Alerting.GraceSlowMinutes = 3
	}
	if m.Alerting.BaselineWindowMinutes == 0 {
		m.Alerting.BaselineWindowMinutes = 30
	}
	if m.Alerting.SpikeThresholdPercent == 0 {
		m.Alerting.SpikeThresholdPercent = 200
	}
}

// DownVoteThreshold returns the effective majority-vote threshold for the
// monitor: the configured value, or ceil(|regions| / 2) otherwise.
func (m MonitorTarget) DownVoteThreshold() int {
	if m.Alerting.DownVoteThreshold > 0 {
		return m.Alerting.DownVoteThreshold
	}
	return (len(m.Regions) + 1) / 2
}

// ReadFileConfig reads the config file at path, falling back to an error
// describing the failure (this never silently substitutes defaults).
func ReadFileConfig(afs afero.Fs, path string, env Env) (*Config, error) {
	contents, err := afero.ReadFile(afs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errReadingConfigFile, path, err)
	}

	var cfg Config
	if err := hjson.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("%w, located at %q: %w", errReadingConfigFile, path, err)
	}
	cfg.Env = env

	for i := range cfg.Monitors {
		cfg.Monitors[i].ApplyDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct-tag validation plus the cross-field invariants the
// spec calls out (unique monitor IDs, primary region membership).
func (cfg *Config) Validate() error {
	zlog := logger.GetLogger()
	zlog.Debug().Int("monitors", len(cfg.Monitors)).Msg("validating config")

	validate, err := NewValidator()
	if err != nil {
		return err
	}

	if err := validate.Struct(cfg); err != nil {
		return err
	}

	seen := make(map[string]bool, len(cfg.Monitors))
	for _, m := range cfg.Monitors {
		if seen[m.ID] {
			return fmt.Errorf("duplicate monitor id: %s", m.ID)
		}
		seen[m.ID] = true

		primaryFound := false
		for _, r := range m.Regions {
			if r == m.PrimaryRegion {
				primaryFound = true
				break
			}
		}
		if !primaryFound {
			return fmt.Errorf("monitor %s: primary_region %q not in regions", m.ID, m.PrimaryRegion)
		}
	}

	return nil
}

// NewValidator builds a validator.Validate with the custom rules this
// config format needs beyond the stock tag set.
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("ascii", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, r := range s {
			if r > 127 {
				return false
			}
		}
		return len(s) > 0
	}); err != nil {
		return nil, err
	}

	return v, nil
}
