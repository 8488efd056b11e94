package config_test

import (
	"testing"
	"time"

	"github.com/pulsegrid/sentinel/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const validConfig = `{
	monitors: [
		{
			id: api-primary
			name: "Primary API"
			method: GET
			target: "https://api.example.com/health"
			regions: ["us-east", "us-west", "eu-central"]
			primary_region: us-east
			latency_threshold_ms: 500
		}
	]
	notification: {
		webhook: { url: "https://hooks.example.com/notify", payload_type: "json" }
		grace_period: 5
	}
}`

func testEnv() config.Env {
	return config.Env{TableName: "sentinel", CentralRegion: "us-east", LogLevel: 1}
}

func TestReadFileConfig(t *testing.T) {
	afs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(afs, "/config.hjson", []byte(validConfig), 0644))

	cfg, err := config.ReadFileConfig(afs, "/config.hjson", testEnv())
	require.NoError(t, err)
	require.Len(t, cfg.Monitors, 1)

	m := cfg.Monitors[0]
	require.Equal(t, "us-east", m.PrimaryRegion)
	require.Equal(t, config.DefaultHTTPTimeoutMS, m.TimeoutMS)
	require.Equal(t, []int{200, 201, 202, 203, 204, 205, 206}, m.ExpectedCodes)
	require.Equal(t, 2, m.DownVoteThreshold())
}

func TestReadFileConfigMissingFile(t *testing.T) {
	afs := afero.NewMemMapFs()
	_, err := config.ReadFileConfig(afs, "/missing.hjson", testEnv())
	require.Error(t, err)
}

func TestReadFileConfigDuplicateIDs(t *testing.T) {
	afs := afero.NewMemMapFs()
	dup := `{
		monitors: [
			{ id: "dup", name: "a", method: "GET", target: "https://a.example.com", regions: ["us-east"] }
			{ id: "dup", name: "b", method: "GET", target: "https://b.example.com", regions: ["us-east"] }
		]
		notification: {}
	}`
	require.NoError(t, afero.WriteFile(afs, "/config.hjson", []byte(dup), 0644))

	_, err := config.ReadFileConfig(afs, "/config.hjson", testEnv())
	require.ErrorContains(t, err, "duplicate monitor id")
}

func TestMaintenanceMatches(t *testing.T) {
	start := mustTime("2026-01-01T00:00:00Z")
	end := mustTime("2026-01-01T01:00:00Z")
	m := config.Maintenance{Monitors: []string{"api-primary"}, Body: "planned", Start: start, End: &end}

	require.True(t, m.Matches("api-primary", mustTime("2026-01-01T00:30:00Z")))
	require.False(t, m.Matches("api-primary", mustTime("2026-01-01T02:00:00Z")))
	require.False(t, m.Matches("other", mustTime("2026-01-01T00:30:00Z")))
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
