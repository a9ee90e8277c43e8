package admin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mwantia/alder/cmd/alder/cli"
	"github.com/mwantia/alder/internal/app"
	"github.com/mwantia/alder/pkg/db/migrations"
	"github.com/mwantia/alder/pkg/db/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewDatabaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the record store schema",
		Long:  "Apply, inspect or roll back the versioned migrations of the record store.",
	}

	cmd.AddCommand(newDatabaseMigrateCommand())
	cmd.AddCommand(newDatabaseStatusCommand())
	cmd.AddCommand(newDatabaseRollbackCommand())
	cmd.AddCommand(newDatabaseShowCommand())

	return cmd
}

func newDatabaseMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, false, func(ctx context.Context, a *app.App) error {
				applied, err := migrations.NewMigrator(a.Store().DB()).Migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations\n", applied)
				return nil
			})
		},
	}
}

func newDatabaseStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, false, func(ctx context.Context, a *app.App) error {
				statuses, err := migrations.NewMigrator(a.Store().DB()).Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-8s %s\n", s.Version, state, s.Description)
				}
				return nil
			})
		},
	}
}

func newDatabaseRollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, false, func(ctx context.Context, a *app.App) error {
				status, err := migrations.NewMigrator(a.Store().DB()).Rollback(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d (%s)\n", status.Version, status.Description)
				return nil
			})
		},
	}
}

func newDatabaseShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <table> <id>",
		Short: "Print the stored columns of one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := models.KindOf(args[0])
			if !ok {
				return fmt.Errorf("unknown table '%s'", args[0])
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id '%s': %w", args[1], err)
			}

			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				e, err := a.Repository().ByID(ctx, kind, id)
				if err != nil {
					return err
				}

				columns := e.Columns()
				columns["id"] = e.GetID()
				data, err := yaml.Marshal(columns)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}
