package cli

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

func newCacheCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the translation cache",
		Long: `Cache operates on the two-tier translation cache. Keys have the form
table:row_id:field:locale, or meaning:meaning_id:field:locale.`,
	}
	cmd.AddCommand(newCacheGetCmd(e))
	cmd.AddCommand(newCacheSetCmd(e))
	cmd.AddCommand(newCacheHydrateCmd(e))
	cmd.AddCommand(newCacheClearCmd(e))
	cmd.AddCommand(newCacheStatsCmd(e))
	return cmd
}

func newCacheGetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the fresh translation stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeCache, err := e.openCache(nil)
			if err != nil {
				return sysError("%s", err)
			}
			defer closeCache()

			text, ok := c.Get(args[0])
			if !ok {
				return userError("no fresh translation for %q", args[0])
			}
			return e.output(cmd, map[string]string{"key": args[0], "text": text}, text)
		},
	}
}

func newCacheSetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <text>",
		Short: "Store a translation under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeCache, err := e.openCache(nil)
			if err != nil {
				return sysError("%s", err)
			}
			c.Set(args[0], args[1])
			closeCache()
			return e.output(cmd, map[string]string{"key": args[0], "text": args[1]}, "stored "+args[0])
		},
	}
}

func newCacheHydrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "hydrate",
		Short: "Load every fresh durable entry and list the keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeCache, err := e.openCache(nil)
			if err != nil {
				return sysError("%s", err)
			}
			defer closeCache()

			loaded := c.HydrateAll()
			keys := make([]string, 0, len(loaded))
			for k := range loaded {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			if e.flags.jsonMode {
				return e.output(cmd, loaded, "")
			}
			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s\t%s\n", k, loaded[k])
			}
			fmt.Fprintf(out, "%d entries\n", len(keys))
			return nil
		},
	}
}

func newCacheClearCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeCache, err := e.openCache(nil)
			if err != nil {
				return sysError("%s", err)
			}
			defer closeCache()

			if err := c.Clear(); err != nil {
				return sysError("clear durable tier: %s", err)
			}
			return e.output(cmd, map[string]bool{"cleared": true}, "cache cleared")
		},
	}
}

func newCacheStatsCmd(e *env) *cobra.Command {
	var metrics bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache sizes and counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			c, closeCache, err := e.openCache(reg)
			if err != nil {
				return sysError("%s", err)
			}
			defer closeCache()

			c.HydrateAll()

			if metrics {
				families, err := reg.Gather()
				if err != nil {
					return sysError("gather metrics: %s", err)
				}
				for _, mf := range families {
					if _, err := expfmt.MetricFamilyToText(cmd.OutOrStdout(), mf); err != nil {
						return sysError("write metrics: %s", err)
					}
				}
				return nil
			}

			s := c.Stats()
			return e.output(cmd, s, fmt.Sprintf(
				"memory entries:  %d\ndurable entries: %d\ncapacity:        %d\nttl:             %s",
				s.MemoryEntries, s.DurableEntries, e.settings.storeConfig().Capacity(), e.settings.storeConfig().TTL()))
		},
	}
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print the Prometheus metrics in text exposition format")
	return cmd
}
