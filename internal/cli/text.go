package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ull/internal/projection"
	"github.com/mesh-intelligence/ull/pkg/types"
)

func newTextCmd(e *env) *cobra.Command {
	var (
		source    string
		target    string
		wait      bool
		byMeaning bool
	)

	cmd := &cobra.Command{
		Use:   "text <table> <id> <field> <fallback>",
		Short: "Print the text a reader sees for a field",
		Long: `Text prints what the projection reader returns for one field: the cached
translation into the target locale, or the original text. Without --wait the
answer is immediate and a translation fetch may be left unfinished; with
--wait the command waits for the fetch and prints the refreshed text.

With --meaning the arguments are <meaning-id> <field> <fallback>.

Example:
  ull text tasks task-1 title "Ship report" --target fr --wait`,
		Args: func(cmd *cobra.Command, args []string) error {
			if byMeaning {
				return cobra.ExactArgs(3)(cmd, args)
			}
			return cobra.ExactArgs(4)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				source = e.settings.SourceLocale
			}
			if target == "" {
				target = e.settings.TargetLocale
			}

			c, closeCache, err := e.openCache(nil)
			if err != nil {
				return sysError("%s", err)
			}
			defer closeCache()
			c.HydrateAll()

			r := projection.New(c, e.newProducer(), projection.Options{
				TargetLocale: target,
				FetchTimeout: e.settings.ProducerTimeout,
				Logger:       e.logger.Named("projection"),
			})
			r.Start()
			defer r.Stop()

			var (
				key      types.TranslationKey
				fallback string
			)
			if byMeaning {
				key = types.TranslationKey{MeaningID: args[0], Field: args[1], Locale: target}
				fallback = args[2]
			} else {
				key = types.TranslationKey{Table: args[0], RowID: args[1], Field: args[2], Locale: target}
				fallback = args[3]
			}
			read := func() string {
				if byMeaning {
					return r.GetMeaningText(key.MeaningID, key.Field, fallback, source)
				}
				return r.GetText(key.Table, key.RowID, key.Field, fallback, source)
			}

			text := read()
			if wait {
				r.Wait()
				text = read()
			}

			return e.output(cmd, map[string]any{
				"key":        key.String(),
				"text":       text,
				"translated": text != fallback,
			}, text)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "locale of the fallback text (default: locale.source)")
	cmd.Flags().StringVar(&target, "target", "", "locale to project into (default: locale.target)")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for a background translation fetch to finish")
	cmd.Flags().BoolVar(&byMeaning, "meaning", false, "address the text by meaning object id")
	return cmd
}
