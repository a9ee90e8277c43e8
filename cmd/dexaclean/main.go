// Command dexaclean re-runs de-identification over every downloaded DEXA
// exam. It requires the credentials of an existing administrator account.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mwantia/alder/cmd/alder/cli"
	"github.com/mwantia/alder/internal/app"
	"github.com/mwantia/alder/pkg/records"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func newRootCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:           "dexaclean",
		Short:         "Re-clean DEXA images",
		Long:          "Re-derive the laterality of DEXA exams from their DICOM headers and redact every image that still carries a patient name.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       fmt.Sprintf("%s.%s", version, commit),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.InitConfig(path)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				admin := a.Config().Admin
				if _, err := a.Repository().Authenticate(ctx, admin.Username, admin.Password); err != nil {
					if errors.Is(err, records.ErrInvalidCredentials) {
						return fmt.Errorf("administrator '%s': %w", admin.Username, err)
					}
					return err
				}

				result, err := a.Pipeline().CleanDexa(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dexaclean: %s\n", result)
				return nil
			})
		},
	}

	cmd.PersistentFlags().StringVar(&path, "config", "", "config file (default is ./config.yaml)")
	cmd.Flags().String("user", "", "administrator name (default admin.username)")
	cmd.Flags().String("password", "", "administrator password (default admin.password)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("admin.username", cmd.Flags().Lookup("user"))
	viper.BindPFlag("admin.password", cmd.Flags().Lookup("password"))
	viper.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
