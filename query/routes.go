package query

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
	"github.com/pulsegrid/sentinel/store"

	zlog "github.com/pulsegrid/sentinel/logger"
)

// historyWindowMinutes is the fixed 12-hour window §4.7 specifies for the
// /api/history endpoints.
const historyWindowMinutes = 12 * 60

// api bundles the dependencies every route handler needs.
type api struct {
	store *store.Store
	cfg   *config.Config
}

func (a *api) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/data", a.handleData)
	mux.HandleFunc("GET /api/history/{id}/all", a.handleHistoryAll)
	mux.HandleFunc("GET /api/history/{id}", a.handleHistory)
	mux.HandleFunc("GET /api/incidents", a.handleIncidents)
	mux.HandleFunc("GET /api/badge", a.handleBadge)
	mux.HandleFunc("GET /api/config", a.handleConfig)
}

func (a *api) monitorByID(id string) (config.MonitorTarget, bool) {
	for _, m := range a.cfg.Monitors {
		if m.ID == id {
			return m, true
		}
	}
	return config.MonitorTarget{}, false
}

func nowMS() int64 {
	return time.Now().UnixMilli()
}

func (a *api) activeMaintenances(now time.Time) []config.Maintenance {
	var out []config.Maintenance
	for _, win := range a.cfg.Maintenances {
		if anyMonitorMatches(win, now) {
			out = append(out, win)
		}
	}
	return out
}

// anyMonitorMatches reports whether win currently applies to at least one
// configured monitor, used to decide whether to surface a scoped window
// in the global maintenances list.
func anyMonitorMatches(win config.Maintenance, now time.Time) bool {
	if len(win.Monitors) == 0 {
		return win.Matches("", now)
	}
	for _, id := range win.Monitors {
		if win.Matches(id, now) {
			return true
		}
	}
	return false
}

func maintenanceDTOs(wins []config.Maintenance) []maintenanceDTO {
	out := make([]maintenanceDTO, 0, len(wins))
	for _, w := range wins {
		dto := maintenanceDTO{Monitors: w.Monitors, Title: w.Title, Body: w.Body, StartMS: w.Start.UnixMilli(), Color: w.Color}
		if w.End != nil {
			end := w.End.UnixMilli()
			dto.EndMS = &end
		}
		out = append(out, dto)
	}
	return out
}

func monitorInMaintenance(maintenances []config.Maintenance, monitorID string, now time.Time) bool {
	for _, w := range maintenances {
		if w.Matches(monitorID, now) {
			return true
		}
	}
	return false
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	states, err := a.store.AllStates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	summary, _, err := a.store.ReadGlobalSummary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	byID := make(map[string]model.MonitorState, len(states))
	for _, st := range states {
		byID[st.MonitorID] = st
	}

	resp := statusResponse{
		Up: summary.OverallUp, Down: summary.OverallDown, Degraded: summary.OverallDegraded,
		UpdatedAt: summary.LastUpdateMS, Maintenances: maintenanceDTOs(a.activeMaintenances(now)),
		Monitors: make(map[string]statusMonitor, len(a.cfg.Monitors)),
	}

	for _, m := range a.cfg.Monitors {
		st, ok := byID[m.ID]
		status := st.Status
		inMaint := monitorInMaintenance(a.cfg.Maintenances, m.ID, now)
		if inMaint {
			status = model.MonitorMaintenance
		}
		if !ok {
			status = model.MonitorStatus("unknown")
		}
		resp.Monitors[m.ID] = statusMonitor{
			Name: m.Name, Status: status, PrimaryRegion: m.PrimaryRegion,
			Latency: st.PrimaryLatencyMS, Timing: st.PrimaryTiming, RegionStatuses: st.RegionStatuses,
			LastCheck: st.LastCheckMS, DownSince: st.DownSinceMS, SlowSince: st.SlowSinceMS, Maintenance: inMaint,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleData(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	states, err := a.store.AllStates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	summary, _, err := a.store.ReadGlobalSummary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	byID := make(map[string]model.MonitorState, len(states))
	for _, st := range states {
		byID[st.MonitorID] = st
	}

	resp := dataResponse{
		Up: summary.OverallUp, Down: summary.OverallDown, UpdatedAt: summary.LastUpdateMS,
		Maintenances: maintenanceDTOs(a.activeMaintenances(now)),
		Monitors:     make(map[string]dataMonitor, len(a.cfg.Monitors)),
	}

	for _, m := range a.cfg.Monitors {
		st := byID[m.ID]
		message := ""
		if st.Status == model.MonitorDown {
			message = "down"
		}
		resp.Monitors[m.ID] = dataMonitor{
			Up: st.Status == model.MonitorUp || st.Status == model.MonitorDegraded,
			Latency: st.PrimaryLatencyMS, Location: m.PrimaryRegion, Message: message,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, ok := a.monitorByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown monitor: %s", id))
		return
	}

	region := r.URL.Query().Get("region")
	if region == "" {
		region = m.PrimaryRegion
	}

	samples, err := a.store.LatencyWindow(id, region, nowMS(), historyWindowMinutes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{MonitorID: id, Region: region, Data: toHistoryPoints(samples)})
}

func (a *api) handleHistoryAll(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, ok := a.monitorByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown monitor: %s", id))
		return
	}

	regions := make(map[string][]historyPoint, len(m.Regions))
	for _, region := range m.Regions {
		samples, err := a.store.LatencyWindow(id, region, nowMS(), historyWindowMinutes)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		regions[region] = toHistoryPoints(samples)
	}

	writeJSON(w, http.StatusOK, historyAllResponse{MonitorID: id, PrimaryRegion: m.PrimaryRegion, Regions: regions})
}

func toHistoryPoints(samples []model.LatencyHistorySample) []historyPoint {
	out := make([]historyPoint, len(samples))
	for i, s := range samples {
		out[i] = historyPoint{Time: s.TimestampMS, Latency: s.LatencyMS, Timing: s.Timing}
	}
	return out
}

func (a *api) handleIncidents(w http.ResponseWriter, r *http.Request) {
	monitorID := r.URL.Query().Get("monitorId")

	var all []model.Incident
	if monitorID != "" {
		incs, err := a.store.IncidentsSince(monitorID, 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		all = incs
	} else {
		for _, m := range a.cfg.Monitors {
			incs, err := a.store.IncidentsSince(m.ID, 0)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			all = append(all, incs...)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].StartMS > all[j].StartMS })
	}

	resp := incidentsResponse{Incidents: make([]incidentDTO, 0, len(all)), ByMonth: map[string][]incidentDTO{}}
	for _, inc := range all {
		dto := incidentDTO{MonitorID: inc.MonitorID, StartMS: inc.StartMS, EndMS: inc.EndMS, Error: inc.Error, RegionsDown: inc.RegionsDown}
		resp.Incidents = append(resp.Incidents, dto)
		month := model.MSToTime(inc.StartMS).Format("2006-01")
		resp.ByMonth[month] = append(resp.ByMonth[month], dto)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleBadge(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	m, ok := a.monitorByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown monitor: %s", id))
		return
	}

	label := r.URL.Query().Get("label")
	if label == "" {
		label = m.Name
	}
	upMsg := queryOr(r, "up", "up")
	downMsg := queryOr(r, "down", "down")
	colorUp := queryOr(r, "colorUp", "brightgreen")
	colorDown := queryOr(r, "colorDown", "red")

	st, ok, err := a.store.ReadState(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	message, color := downMsg, colorDown
	if ok && (st.Status == model.MonitorUp || st.Status == model.MonitorDegraded) {
		message, color = upMsg, colorUp
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, badgeResponse{SchemaVersion: 1, Label: label, Message: message, Color: color})
}

func queryOr(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func (a *api) handleConfig(w http.ResponseWriter, r *http.Request) {
	monitors := make([]safeMonitor, 0, len(a.cfg.Monitors))
	for _, m := range a.cfg.Monitors {
		monitors = append(monitors, safeMonitor{ID: m.ID, Name: m.Name, Group: m.Group, PrimaryRegion: m.PrimaryRegion, Regions: m.Regions})
	}

	writeJSON(w, http.StatusOK, configResponse{
		Page: a.cfg.Page, Monitors: monitors, Maintenances: maintenanceDTOs(a.cfg.Maintenances),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.GetLogger().Err(err).Msg("failed to encode query response body")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	zlog.GetLogger().Err(err).Int("status", status).Msg("query handler error")
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
