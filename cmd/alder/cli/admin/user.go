package admin

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/alder/cmd/alder/cli"
	"github.com/mwantia/alder/internal/app"
	"github.com/spf13/cobra"
)

func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage reviewers",
		Long:  "Add, list and remove reviewers, change their password and the modalities they may rate.",
	}

	cmd.AddCommand(newUserAddCommand())
	cmd.AddCommand(newUserListCommand())
	cmd.AddCommand(newUserRemoveCommand())
	cmd.AddCommand(newUserPasswordCommand())
	cmd.AddCommand(newUserAssignCommand())
	cmd.AddCommand(newUserExpertCommand())

	return cmd
}

// password returns the --password flag, falling back to ALDER_USER_PASSWORD.
func password(cmd *cobra.Command) (string, error) {
	pw, _ := cmd.Flags().GetString("password")
	if pw == "" {
		pw = os.Getenv("ALDER_USER_PASSWORD")
	}
	if pw == "" {
		return "", fmt.Errorf("a password is required (--password or ALDER_USER_PASSWORD)")
	}
	return pw, nil
}

func newUserAddCommand() *cobra.Command {
	var expert bool

	cmd := &cobra.Command{
		Use:   "add <name> [modality...]",
		Short: "Add a reviewer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(cmd)
			if err != nil {
				return err
			}

			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				u, err := repo.AddUser(ctx, args[0], pw, expert)
				if err != nil {
					return err
				}
				for _, name := range args[1:] {
					m, err := repo.ModalityByName(ctx, name)
					if err != nil {
						return err
					}
					if err := repo.AssignModality(ctx, u.ID, m.ID); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added user '%s' (%d)\n", u.Name, u.ID)
				return nil
			})
		},
	}

	cmd.Flags().String("password", "", "initial password")
	cmd.Flags().BoolVar(&expert, "expert", false, "mark the user as expert rater")

	return cmd
}

func newUserListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reviewers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				users, err := repo.Users(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEXPERT\tMODALITIES\tLAST LOGIN")
				for _, u := range users {
					modalities, err := repo.UserModalities(ctx, u.ID)
					if err != nil {
						return err
					}
					names := make([]string, 0, len(modalities))
					for _, m := range modalities {
						names = append(names, m.Name)
					}

					login := "never"
					if !u.LoginTimestamp.IsZero() {
						login = humanize.Time(u.LoginTimestamp)
					}
					fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n", u.ID, u.Name, u.Expert, strings.Join(names, ","), login)
				}
				return w.Flush()
			})
		},
	}
}

func newUserRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a reviewer together with their ratings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				u, err := repo.UserByName(ctx, args[0])
				if err != nil {
					return err
				}
				if err := repo.RemoveUser(ctx, u); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed user '%s'\n", args[0])
				return nil
			})
		},
	}
}

func newUserPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd <name>",
		Short: "Change a reviewer's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(cmd)
			if err != nil {
				return err
			}

			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				u, err := repo.UserByName(ctx, args[0])
				if err != nil {
					return err
				}
				if err := u.SetPassword(pw); err != nil {
					return err
				}
				return repo.Save(ctx, u)
			})
		},
	}

	cmd.Flags().String("password", "", "new password")

	return cmd
}

func newUserAssignCommand() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "assign <name> <modality>",
		Short: "Grant or revoke access to a modality",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				u, err := repo.UserByName(ctx, args[0])
				if err != nil {
					return err
				}
				m, err := repo.ModalityByName(ctx, args[1])
				if err != nil {
					return err
				}
				if revoke {
					return repo.RevokeModality(ctx, u.ID, m.ID)
				}
				return repo.AssignModality(ctx, u.ID, m.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke instead of grant")

	return cmd
}

func newUserExpertCommand() *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "expert <name>",
		Short: "Mark a reviewer as expert rater",
		Long:  "Mark a reviewer as expert rater. Expert ratings make up the reference atlas.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				u, err := repo.UserByName(ctx, args[0])
				if err != nil {
					return err
				}
				u.Expert = !off
				return repo.Save(ctx, u)
			})
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "clear the expert flag")

	return cmd
}
