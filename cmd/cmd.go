// Package cmd wires the sentinel binary's subcommands: probe, aggregate,
// serve, and validate-config.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/store"
	"github.com/pulsegrid/sentinel/util"

	"github.com/google/go-github/github"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ErrMissingConfigPath = errors.New("config path parameter is required")
var ErrMissingRegion = errors.New("--region is required")

// Commands returns every subcommand the sentinel binary exposes.
func Commands() []*cli.Command {
	return []*cli.Command{
		ProbeCommand,
		AggregateCommand,
		ServeCommand,
		ValidateConfigCommand,
	}
}

// ConfigFlag is the shared --config flag every subcommand accepts.
func ConfigFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Load configuration from `FILE`",
		Value:   config.DefaultConfigPath,
	}
}

// envFromProcess builds a config.Env from the TABLE_NAME / CENTRAL_REGION
// environment variables (§6's "pointers to the store"). LOG_LEVEL is not
// read here, so Env.LogLevel stays zero; the logger reads LOG_LEVEL itself.
func envFromProcess() (config.Env, error) {
	tableName := os.Getenv("TABLE_NAME")
	if tableName == "" {
		return config.Env{}, errors.New("environment variable TABLE_NAME is not set")
	}
	centralRegion := os.Getenv("CENTRAL_REGION")
	if centralRegion == "" {
		return config.Env{}, errors.New("environment variable CENTRAL_REGION is not set")
	}
	return config.Env{TableName: tableName, CentralRegion: centralRegion}, nil
}

// loadConfig reads and validates the config file at path against the
// process environment.
func loadConfig(afs afero.Fs, path string) (*config.Config, error) {
	env, err := envFromProcess()
	if err != nil {
		return nil, err
	}
	return config.ReadFileConfig(afs, path, env)
}

// connectStore opens the central store using CLICKHOUSE_ADDR /
// CLICKHOUSE_USERNAME / CLICKHOUSE_PASSWORD, scoped to cfg's table name.
func connectStore(cCtx *cli.Context, cfg *config.Config) (*store.Store, error) {
	addr := os.Getenv("CLICKHOUSE_ADDR")
	if addr == "" {
		return nil, errors.New("environment variable CLICKHOUSE_ADDR is not set")
	}
	return store.Connect(cCtx.Context, store.Options{
		Addr:     addr,
		Database: cfg.Env.TableName,
		Username: os.Getenv("CLICKHOUSE_USERNAME"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
	})
}

// CheckForUpdate prints a courtesy notice when a newer sentinel release
// exists, mirroring the teacher's startup check.
func CheckForUpdate() error {
	currentVersion := config.Version
	if currentVersion == "" {
		return nil
	}

	newer, latestVersion, err := util.CheckForNewerVersion(github.NewClient(nil), currentVersion)
	if err != nil {
		return fmt.Errorf("error checking for newer version of sentinel: %w", err)
	}
	if newer {
		fmt.Printf("\n\t✨ A newer version (%s) of sentinel is available! https://github.com/pulsegrid/sentinel/releases ✨\n\n", latestVersion)
	}
	return nil
}
