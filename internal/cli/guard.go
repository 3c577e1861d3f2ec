package cli

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ull/internal/guard"
)

func newGuardCmd(e *env) *cobra.Command {
	var warn bool

	cmd := &cobra.Command{
		Use:   "guard <table> <rows-json|->",
		Short: "Check candidate rows for a meaning reference",
		Long: `Guard checks that every row about to be inserted into a meaning-backed
table carries a meaning reference. Rows are a JSON object or an array of
objects. Pass "-" to read them from stdin.

Example:
  ull guard tasks '[{"title":"Ship report","meaning_object_id":"0193..."}]'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			data, err := readInput(args[1], cmd.InOrStdin())
			if err != nil {
				return sysError("read rows: %s", err)
			}
			rows, err := parseRows(data)
			if err != nil {
				return userError("parse rows: %s", err)
			}

			opts := guard.Options{Mode: guard.Block}
			if warn {
				opts.Mode = guard.Warn
			}
			ok, err := e.newGuard().CheckInsert(table, rows, opts)

			result := map[string]any{"table": table, "rows": len(rows), "ok": ok, "mode": opts.Mode.String()}
			if err != nil {
				result["error"] = err.Error()
			}
			text := "ok"
			switch {
			case err != nil:
				text = "rejected"
			case !ok:
				text = "missing meaning reference (warning only)"
			}
			if oerr := e.output(cmd, result, text); oerr != nil {
				return oerr
			}
			// In warn mode the write may proceed, so only a blocked check fails.
			if err != nil {
				return userError("%s", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&warn, "warn", false, "log violations instead of failing on the first one")
	return cmd
}

// parseRows accepts a single JSON object or an array of objects.
func parseRows(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if strings.HasPrefix(string(trimmed), "{") {
		var row map[string]any
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, err
		}
		return []map[string]any{row}, nil
	}
	var rows []map[string]any
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
