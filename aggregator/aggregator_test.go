package aggregator_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/pulsegrid/sentinel/aggregator"
	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/model"
	"github.com/pulsegrid/sentinel/notifier"
	"github.com/pulsegrid/sentinel/store"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	cl "github.com/testcontainers/testcontainers-go/modules/clickhouse"
)

// TestAggregatorDownIncidentLifecycle exercises §8 scenario 2 end to end
// against a real store: two of three regions down opens an incident, and
// recovery closes it.
func TestAggregatorDownIncidentLifecycle(t *testing.T) {
	version := os.Getenv("CLICKHOUSE_VERSION")
	if version == "" {
		t.Skip("CLICKHOUSE_VERSION not set, skipping container-backed aggregator test")
	}

	ctx := context.Background()
	container, err := cl.RunContainer(ctx,
		testcontainers.WithImage(fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", version)),
		cl.WithUsername("default"), cl.WithPassword(""), cl.WithDatabase("default"))
	require.NoError(t, err)
	defer container.Terminate(ctx)

	host, err := container.ConnectionHost(ctx)
	require.NoError(t, err)

	st, err := store.Connect(ctx, store.Options{Addr: host, Database: "sentinel_agg_test", Username: "default"})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := config.MonitorTarget{
		ID: "web", Name: "Web", Method: config.MethodGET, Target: "https://example.com",
		Regions: []string{"A", "B", "C"}, PrimaryRegion: "A",
	}
	m.ApplyDefaults()
	m.Alerting.GraceDownMinutes = 0

	cfg := &config.Config{
		Monitors:     []config.MonitorTarget{m},
		Notification: config.Notification{Webhook: config.Webhook{URL: srv.URL, PayloadType: "json", PayloadTemplate: map[string]any{"text": "$MSG"}}},
	}

	n := notifier.New(cfg.Notification.Webhook)
	agg := aggregator.New(st, n, cfg)

	writeCheck := func(region string, status model.Status, ts int64) {
		require.NoError(t, st.WriteCheck(model.CheckResult{MonitorID: m.ID, Region: region, TimestampMS: ts, Status: status}))
	}

	writeCheck("A", model.StatusDown, 1_000)
	writeCheck("B", model.StatusDown, 1_000)
	writeCheck("C", model.StatusUp, 1_000)
	require.NoError(t, agg.RunTick(ctx, 2_000))

	state, ok, err := st.ReadState(m.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.MonitorDown, state.Status)
	require.NotNil(t, state.DownSinceMS)

	open, ok, err := st.OpenIncident(m.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"A", "B"}, open.RegionsDown)

	writeCheck("A", model.StatusUp, 10_000)
	writeCheck("B", model.StatusUp, 10_000)
	writeCheck("C", model.StatusUp, 10_000)
	require.NoError(t, agg.RunTick(ctx, 11_000))

	state, ok, err = st.ReadState(m.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.MonitorUp, state.Status)

	_, ok, err = st.OpenIncident(m.ID)
	require.NoError(t, err)
	require.False(t, ok, "incident should be closed after recovery")
}
