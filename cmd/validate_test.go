package cmd_test

import (
	"testing"

	"github.com/pulsegrid/sentinel/cmd"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const validConfig = `{
	monitors: [
		{ id: "api", name: "API", method: "GET", target: "https://api.example.com", regions: ["us-east"] }
	]
	notification: { webhook: { url: "https://hooks.example.com/notify", payload_type: "json" }, grace_period: 5 }
}`

func TestRunValidateConfigCommandValid(t *testing.T) {
	t.Setenv("TABLE_NAME", "sentinel")
	t.Setenv("CENTRAL_REGION", "us-east")

	afs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(afs, "/config.hjson", []byte(validConfig), 0644))

	cfg, err := cmd.RunValidateConfigCommand(afs, "/config.hjson")
	require.NoError(t, err)
	require.Len(t, cfg.Monitors, 1)
}

func TestRunValidateConfigCommandMissingPath(t *testing.T) {
	afs := afero.NewMemMapFs()
	_, err := cmd.RunValidateConfigCommand(afs, "")
	require.ErrorIs(t, err, cmd.ErrMissingConfigPath)
}

func TestRunValidateConfigCommandMissingFile(t *testing.T) {
	t.Setenv("TABLE_NAME", "sentinel")
	t.Setenv("CENTRAL_REGION", "us-east")

	afs := afero.NewMemMapFs()
	_, err := cmd.RunValidateConfigCommand(afs, "/does-not-exist.hjson")
	require.Error(t, err)
}
