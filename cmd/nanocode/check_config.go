package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkService string

// checkConfigCmd validates configuration and exits.
var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate configuration and exit",
	Long: `Resolve the configuration of one service from defaults, the optional
YAML file and the environment, validate it and exit.

  nanocode check-config --service api
  nanocode check-config --service model-server --config model.yaml`,
	Args: cobra.NoArgs,
	RunE: runCheckConfig,
}

func init() {
	checkConfigCmd.Flags().StringVarP(&checkService, "service", "s", "api", "service to check: api or model-server")
}

func runCheckConfig(cmd *cobra.Command, _ []string) error {
	switch checkService {
	case "api":
		cfg, err := loadAPIConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (api, listening on %s, model server %s)\n",
			cfg.Server.Addr(), cfg.ModelServerURL)
	case "model-server":
		cfg, err := loadModelServerConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (model-server, listening on %s, backend %s)\n",
			cfg.Server.Addr(), cfg.Backend)
	default:
		return fmt.Errorf("unknown service %q: want api or model-server", checkService)
	}
	return nil
}
