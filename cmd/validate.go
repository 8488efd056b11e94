package cmd

import (
	"fmt"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/util"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ValidateConfigCommand = &cli.Command{
	Name:      "validate-config",
	Usage:     "validate a configuration file without making network calls",
	UsageText: "sentinel validate-config [--config FILE]",
	Flags: []cli.Flag{
		ConfigFlag(),
	},
	Action: func(cCtx *cli.Context) error {
		if cCtx.NArg() > 0 {
			return fmt.Errorf("too many arguments provided")
		}

		afs := afero.NewOsFs()
		if _, err := RunValidateConfigCommand(afs, cCtx.String("config")); err != nil {
			fmt.Print("\n\t[!] Configuration file is not valid...\n")
			return err
		}
		return nil
	},
}

// RunValidateConfigCommand validates the config file path and contents,
// printing a success message and returning the parsed config.
func RunValidateConfigCommand(afs afero.Fs, configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, ErrMissingConfigPath
	}
	if _, err := util.ParseRelativePath(configPath); err != nil {
		return nil, err
	}
	if err := util.ValidateFile(afs, configPath); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(afs, configPath)
	if err != nil {
		return nil, err
	}

	fmt.Print("\n\t[✨] Configuration file is valid\n\n")
	return cfg, nil
}
