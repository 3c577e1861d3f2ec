package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ull storage",
		Long:  "Create the configuration and data directories, then initialize the durable translation store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The config directory and config.yaml already exist once the
			// root command has loaded configuration.
			_, closeStore, err := e.openStore()
			if err != nil {
				return sysError("initialize storage: %s", err)
			}
			closeStore()

			return e.output(cmd,
				map[string]string{"backend": e.settings.Backend, "data_dir": e.settings.DataDir},
				fmt.Sprintf("ull initialized (%s backend, data dir %s)", e.settings.Backend, e.settings.DataDir))
		},
	}
}
