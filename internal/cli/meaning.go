package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ull/pkg/types"
)

func newMeaningCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meaning",
		Short: "Create, update and read meaning objects",
		Long:  "Meaning talks to the meaning-object database configured by database.dsn.",
	}
	cmd.AddCommand(newMeaningCreateCmd(e))
	cmd.AddCommand(newMeaningUpdateCmd(e))
	cmd.AddCommand(newMeaningGetCmd(e))
	return cmd
}

func newMeaningCreateCmd(e *env) *cobra.Command {
	var (
		workspace    string
		createdBy    string
		entityType   string
		sourceLocale string
	)

	cmd := &cobra.Command{
		Use:   "create <json|->",
		Short: "Create a meaning object and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return sysError("read payload: %s", err)
			}
			m, err := types.ValidateMeaning(data)
			if err != nil {
				return userError("%s", err)
			}
			if entityType == "" {
				entityType = string(m.Type)
			}
			if sourceLocale == "" {
				sourceLocale = e.settings.SourceLocale
			}

			client, closeClient, err := e.openMeaningClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			id, ok := client.Create(cmd.Context(), workspace, createdBy, types.MeaningType(entityType), sourceLocale, m)
			if !ok {
				return userError("meaning object was not created")
			}
			return e.output(cmd, map[string]string{"id": id}, id)
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "owning workspace id (required)")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "creator id")
	cmd.Flags().StringVar(&entityType, "type", "", "entity type (default: the payload's type)")
	cmd.Flags().StringVar(&sourceLocale, "source-locale", "", "locale the content was authored in (default: locale.source)")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newMeaningUpdateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <json|->",
		Short: "Replace the payload of a meaning object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[1], cmd.InOrStdin())
			if err != nil {
				return sysError("read payload: %s", err)
			}
			if _, err := types.ValidateMeaning(data); err != nil {
				return userError("%s", err)
			}

			client, closeClient, err := e.openMeaningClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			if !client.Update(cmd.Context(), args[0], data) {
				return userError("meaning object %s was not updated", args[0])
			}
			return e.output(cmd, map[string]any{"id": args[0], "updated": true}, "updated "+args[0])
		},
	}
}

func newMeaningGetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a meaning object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeClient, err := e.openMeaningClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			rec, err := client.Get(cmd.Context(), args[0])
			switch {
			case errors.Is(err, types.ErrInvalidID):
				return userError("invalid meaning id %q", args[0])
			case errors.Is(err, types.ErrNotFound):
				return userError("meaning object %q not found", args[0])
			case err != nil:
				return sysError("get meaning: %s", err)
			}
			return e.output(cmd, rec, fmt.Sprintf("%s %s (%s, %s)\n  intent:  %s\n  subject: %s",
				rec.EntityType, rec.ID, rec.WorkspaceID, rec.SourceLocale,
				rec.Meaning.Intent, rec.Meaning.Subject))
		},
	}
}
