package review

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/alder/cmd/alder/cli"
	"github.com/mwantia/alder/internal/app"
	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/ingest"
	"github.com/mwantia/alder/pkg/opal"
	"github.com/mwantia/alder/pkg/records"
	"github.com/spf13/cobra"
)

func NewInterviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Synchronize and browse interviews",
		Long:  "Synchronize interviews with Opal, download their images and walk through them the way a reviewer does.",
	}

	cmd.AddCommand(newInterviewSyncCommand())
	cmd.AddCommand(newInterviewDownloadCommand())
	cmd.AddCommand(newInterviewNextCommand())

	return cmd
}

func newInterviewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Create an interview for every participant visit known to Opal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				result, err := a.Pipeline().UpdateInterviewData(ctx)
				if err != nil {
					return err
				}
				printResult(cmd, "sync", result)
				return nil
			})
		},
	}
}

func newInterviewDownloadCommand() *cobra.Command {
	var visit string
	var all bool
	var progress bool

	cmd := &cobra.Command{
		Use:   "download [uid]",
		Short: "Download the exams and images of interviews",
		Long: `Download the exams and images of one participant's interviews, or of
every interview with --all. Exams already on disk are skipped, so an
interrupted download can simply be restarted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("either a participant uid or --all is required")
			}

			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				if progress {
					a.Opal().OnProgress = func(p opal.Progress) {
						if p.Total > 0 {
							fmt.Fprintf(cmd.ErrOrStderr(), "\r%s / %s", humanize.Bytes(uint64(p.Received)), humanize.Bytes(uint64(p.Total)))
						} else {
							fmt.Fprintf(cmd.ErrOrStderr(), "\r%s", humanize.Bytes(uint64(p.Received)))
						}
					}
				}

				uid := ""
				if len(args) > 0 {
					uid = args[0]
				}
				interviews, err := a.Repository().Interviews(ctx, uid)
				if err != nil {
					return err
				}

				var total ingest.Result
				for _, interview := range interviews {
					if visit != "" && interview.VisitDate != visit {
						continue
					}

					result, err := a.Pipeline().UpdateInterviewImageData(ctx, interview)
					total.Add(result)
					if err != nil {
						return err
					}
					if result.Aborted {
						break
					}
				}

				printResult(cmd, "download", total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&visit, "visit", "", "only the interview of this visit date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "download every interview")
	cmd.Flags().BoolVar(&progress, "progress", false, "report transfer progress on stderr")

	return cmd
}

func newInterviewNextCommand() *cobra.Command {
	var user string
	var back bool
	var filter records.InterviewFilter

	cmd := &cobra.Command{
		Use:   "next <uid> <visit-date>",
		Short: "Show the interview a reviewer moves to next",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				u, err := repo.UserByName(ctx, user)
				if err != nil {
					return err
				}
				current, err := repo.InterviewByVisit(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				next, err := repo.InterviewNeighbour(ctx, current, u.ID, !back, filter)
				if err != nil {
					return err
				}
				if next.ID == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No other interview matches")
					return nil
				}

				u.SetLastInterview(next)
				if err := repo.Save(ctx, u); err != nil {
					return err
				}
				printInterview(cmd, next)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "reviewer name")
	cmd.Flags().BoolVar(&back, "back", false, "move backwards")
	cmd.Flags().BoolVar(&filter.Loaded, "loaded", false, "only interviews with all images downloaded")
	cmd.Flags().BoolVar(&filter.Unrated, "unrated", false, "only interviews not fully rated by the reviewer")
	cmd.MarkFlagRequired("user")

	return cmd
}

func printInterview(cmd *cobra.Command, i *models.Interview) {
	fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", i.ID, i.UID, i.VisitDate, i.Site)
}

func printResult(cmd *cobra.Command, what string, r ingest.Result) {
	state := "finished"
	if r.Aborted {
		state = "aborted"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", what, state, r)
}
