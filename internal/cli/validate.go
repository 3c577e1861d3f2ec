package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ull/pkg/types"
)

func newValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <json|->",
		Short: "Validate a meaning payload",
		Long: `Validate checks a meaning payload against the v1 schema and reports
every violated field. Pass "-" to read the payload from stdin.

Example:
  ull validate '{"version":"v1","type":"TASK","intent":"create","subject":"Ship report"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return sysError("read payload: %s", err)
			}

			m, err := types.ValidateMeaning(data)
			if err != nil {
				var verr *types.ValidationError
				if !errors.As(err, &verr) {
					return sysError("validate: %s", err)
				}
				lines := make([]string, len(verr.Issues))
				for i, is := range verr.Issues {
					lines[i] = fmt.Sprintf("  %s: %s", is.Field, is.Message)
				}
				if oerr := e.output(cmd,
					map[string]any{"valid": false, "issues": verr.Issues},
					"invalid meaning:\n"+strings.Join(lines, "\n")); oerr != nil {
					return oerr
				}
				return userError("meaning payload has %d invalid field(s)", len(verr.Issues))
			}

			return e.output(cmd,
				map[string]any{"valid": true, "meaning": m},
				fmt.Sprintf("valid %s meaning: %s", m.Type, m.Subject))
		},
	}
}
