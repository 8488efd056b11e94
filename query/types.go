package query

import (
	"encoding/json"

	"github.com/pulsegrid/sentinel/model"
)

// statusMonitor is one entry of the /api/status monitors map.
type statusMonitor struct {
	Name           string                          `json:"name"`
	Status         model.MonitorStatus             `json:"status"`
	PrimaryRegion  string                          `json:"primaryRegion"`
	Latency        int                             `json:"latency"`
	Timing         model.TimingMetrics             `json:"timing"`
	RegionStatuses map[string]model.RegionStatus   `json:"regionStatuses"`
	LastCheck      int64                           `json:"lastCheck"`
	DownSince      *int64                          `json:"downSince,omitempty"`
	SlowSince      *int64                          `json:"slowSince,omitempty"`
	Maintenance    bool                            `json:"maintenance"`
}

// statusResponse is the /api/status body.
type statusResponse struct {
	Up           int                      `json:"up"`
	Down         int                      `json:"down"`
	Degraded     int                      `json:"degraded"`
	UpdatedAt    int64                    `json:"updatedAt"`
	Maintenances []maintenanceDTO         `json:"maintenances"`
	Monitors     map[string]statusMonitor `json:"monitors"`
}

// dataMonitor is one entry of the compatibility /api/data projection.
type dataMonitor struct {
	Up       bool   `json:"up"`
	Latency  int    `json:"latency"`
	Location string `json:"location"`
	Message  string `json:"message"`
}

// dataResponse is the /api/data body.
type dataResponse struct {
	Up           int                    `json:"up"`
	Down         int                    `json:"down"`
	UpdatedAt    int64                  `json:"updatedAt"`
	Maintenances []maintenanceDTO       `json:"maintenances"`
	Monitors     map[string]dataMonitor `json:"monitors"`
}

// historyPoint is one sample in a /api/history response.
type historyPoint struct {
	Time    int64                `json:"time"`
	Latency int                  `json:"latency"`
	Timing  model.TimingMetrics  `json:"timing"`
}

// historyResponse is the /api/history/{id} body.
type historyResponse struct {
	MonitorID string         `json:"monitorId"`
	Region    string         `json:"region"`
	Data      []historyPoint `json:"data"`
}

// historyAllResponse is the /api/history/{id}/all body.
type historyAllResponse struct {
	MonitorID     string                    `json:"monitorId"`
	PrimaryRegion string                    `json:"primaryRegion"`
	Regions       map[string][]historyPoint `json:"regions"`
}

// incidentDTO is one incident as rendered over the wire.
type incidentDTO struct {
	MonitorID   string   `json:"monitorId"`
	StartMS     int64    `json:"startMs"`
	EndMS       *int64   `json:"endMs,omitempty"`
	Error       string   `json:"error"`
	RegionsDown []string `json:"regionsDown"`
}

// incidentsResponse is the /api/incidents body, grouped by calendar month.
type incidentsResponse struct {
	Incidents []incidentDTO            `json:"incidents"`
	ByMonth   map[string][]incidentDTO `json:"byMonth"`
}

// badgeResponse mirrors shields.io's endpoint badge schema.
type badgeResponse struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// safeMonitor is the non-sensitive subset of MonitorTarget the /api/config
// handler echoes back — no headers, body, or keyword fields.
type safeMonitor struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Group         string `json:"group,omitempty"`
	PrimaryRegion string `json:"primaryRegion"`
	Regions       []string `json:"regions"`
}

// maintenanceDTO is a configured maintenance window as rendered over the
// wire, with Start/End as epoch milliseconds.
type maintenanceDTO struct {
	Monitors []string `json:"monitors,omitempty"`
	Title    string   `json:"title,omitempty"`
	Body     string   `json:"body"`
	StartMS  int64    `json:"startMs"`
	EndMS    *int64   `json:"endMs,omitempty"`
	Color    string   `json:"color,omitempty"`
}

// configResponse is the /api/config body.
type configResponse struct {
	Page         json.RawMessage  `json:"page,omitempty"`
	Monitors     []safeMonitor    `json:"monitors"`
	Maintenances []maintenanceDTO `json:"maintenances"`
}

// errorResponse is the uniform shape of a query-layer 4xx/5xx body.
type errorResponse struct {
	Error string `json:"error"`
}
