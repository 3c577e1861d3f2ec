package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the ull release version.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/ull"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ull version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ull v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
