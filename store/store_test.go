package store_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/pulsegrid/sentinel/model"
	"github.com/pulsegrid/sentinel/store"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	cl "github.com/testcontainers/testcontainers-go/modules/clickhouse"
)

type StoreTestSuite struct {
	suite.Suite
	container *cl.ClickHouseContainer
	store     *store.Store
}

func TestStore(t *testing.T) {
	if os.Getenv("CLICKHOUSE_VERSION") == "" {
		t.Skip("CLICKHOUSE_VERSION not set, skipping container-backed store tests")
	}
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupSuite() {
	t := s.T()
	ctx := context.Background()

	version := os.Getenv("CLICKHOUSE_VERSION")
	container, err := cl.RunContainer(ctx,
		testcontainers.WithImage(fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", version)),
		cl.WithUsername("default"),
		cl.WithPassword(""),
		cl.WithDatabase("default"),
	)
	require.NoError(t, err, "clickhouse container should start without error")
	s.container = container

	host, err := container.ConnectionHost(ctx)
	require.NoError(t, err, "getting connection host should not produce an error")

	st, err := store.Connect(ctx, store.Options{
		Addr:     host,
		Database: "sentinel_test",
		Username: "default",
		Password: "",
	})
	require.NoError(t, err, "connecting to the store should not produce an error")
	s.store = st
}

func (s *StoreTestSuite) TearDownSuite() {
	if err := s.container.Terminate(context.Background()); err != nil {
		log.Fatalf("failed to terminate clickhouse container: %s", err)
	}
}

func (s *StoreTestSuite) TestWriteAndReadState() {
	t := s.T()

	down := int64(1000)
	st := model.MonitorState{
		MonitorID:        "api-primary",
		Status:           model.MonitorDown,
		PrimaryLatencyMS: 250,
		RegionStatuses: map[string]model.RegionStatus{
			"us-east": {Status: model.StatusDown, LatencyMS: 0},
		},
		LastCheckMS: 2000,
		DownSinceMS: &down,
	}

	require.NoError(t, s.store.WriteState(st), "writing state should not produce an error")

	got, ok, err := s.store.ReadState("api-primary")
	require.NoError(t, err, "reading state should not produce an error")
	require.True(t, ok, "state should exist after write")
	require.Equal(t, model.MonitorDown, got.Status)
	require.NotNil(t, got.DownSinceMS)
	require.Equal(t, down, *got.DownSinceMS)
}

func (s *StoreTestSuite) TestReadStateMissing() {
	t := s.T()

	_, ok, err := s.store.ReadState("does-not-exist")
	require.NoError(t, err, "reading a missing state should not produce an error")
	require.False(t, ok, "missing monitor should report ok=false")
}

func (s *StoreTestSuite) TestLatestCheckByRegionWindow() {
	t := s.T()

	base := int64(1_000_000)
	require.NoError(t, s.store.WriteCheck(model.CheckResult{
		MonitorID: "window-test", Region: "us-east", TimestampMS: base - 200_000, Status: model.StatusUp,
	}))
	require.NoError(t, s.store.WriteCheck(model.CheckResult{
		MonitorID: "window-test", Region: "us-east", TimestampMS: base - 10_000, Status: model.StatusUp, LatencyMS: 42,
	}))

	observations, err := s.store.LatestCheckByRegion("window-test", base, 90_000)
	require.NoError(t, err, "querying the latest check should not produce an error")
	require.Contains(t, observations, "us-east")
	require.Equal(t, 42, observations["us-east"].LatencyMS, "only the record inside the window should be returned")
}

func (s *StoreTestSuite) TestIncidentLifecycle() {
	t := s.T()

	inc := model.Incident{MonitorID: "api-primary", StartMS: 5000, Error: "timeout", RegionsDown: []string{"us-east"}}
	require.NoError(t, s.store.UpsertIncident(inc), "opening an incident should not produce an error")

	open, ok, err := s.store.OpenIncident("api-primary")
	require.NoError(t, err)
	require.True(t, ok, "an open incident should be found")
	require.Nil(t, open.EndMS)

	end := int64(9000)
	open.EndMS = &end
	require.NoError(t, s.store.UpsertIncident(open), "closing an incident should not produce an error")

	_, ok, err = s.store.OpenIncident("api-primary")
	require.NoError(t, err)
	require.False(t, ok, "no incident should remain open once closed")
}

func (s *StoreTestSuite) TestGlobalSummaryRoundTrip() {
	t := s.T()

	g := model.GlobalSummary{OverallUp: 3, OverallDown: 1, OverallDegraded: 0, LastUpdateMS: 42}
	require.NoError(t, s.store.WriteGlobalSummary(g))

	got, ok, err := s.store.ReadGlobalSummary()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, g.OverallUp, got.OverallUp)
	require.Equal(t, g.OverallDown, got.OverallDown)
}
