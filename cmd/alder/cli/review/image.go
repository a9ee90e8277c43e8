package review

import (
	"context"
	"fmt"

	"github.com/mwantia/alder/cmd/alder/cli"
	"github.com/mwantia/alder/internal/app"
	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/ingest"
	"github.com/mwantia/alder/pkg/records"
	"github.com/spf13/cobra"
)

func NewImageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Look up reference and comparison images",
		Long:  "Find expert-rated atlas images and the matching image of another interview.",
	}

	cmd.AddCommand(newImageAtlasCommand())
	cmd.AddCommand(newImageSimilarCommand())

	return cmd
}

func newImageAtlasCommand() *cobra.Command {
	var rating int64
	var from int64
	var back bool

	cmd := &cobra.Command{
		Use:   "atlas <image-id>",
		Short: "Show an expert-rated image of the same exam type",
		Long: `Show an expert-rated image of the same exam type and rating as a
reference for the given image. With --from the atlas steps on from the
atlas image currently shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				active, err := imageArg(ctx, repo, args[0])
				if err != nil {
					return err
				}

				var atlas *models.Image
				if from > 0 {
					current, err := repo.Image(ctx, from)
					if err != nil {
						return err
					}
					atlas, err = repo.NeighbourAtlasImage(ctx, active, current, rating, !back)
					if err != nil {
						return err
					}
				} else {
					atlas, err = repo.AtlasImage(ctx, active, rating)
					if err != nil {
						return err
					}
				}

				return printImage(ctx, cmd, repo, atlas)
			})
		},
	}

	cmd.Flags().Int64Var(&rating, "rating", 3, "rating of the reference images (1-5)")
	cmd.Flags().Int64Var(&from, "from", 0, "atlas image id currently shown")
	cmd.Flags().BoolVar(&back, "back", false, "step backwards")

	return cmd
}

func newImageSimilarCommand() *cobra.Command {
	var interviewID int64

	cmd := &cobra.Command{
		Use:   "similar <image-id>",
		Short: "Show the matching image of another interview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunApp(cmd, true, func(ctx context.Context, a *app.App) error {
				repo := a.Repository()
				image, err := imageArg(ctx, repo, args[0])
				if err != nil {
					return err
				}

				similar, err := repo.SimilarImage(ctx, image, interviewID)
				if err != nil {
					return err
				}
				return printImage(ctx, cmd, repo, similar)
			})
		},
	}

	cmd.Flags().Int64Var(&interviewID, "interview", 0, "interview id to search")
	cmd.MarkFlagRequired("interview")

	return cmd
}

func imageArg(ctx context.Context, repo *records.Repository, arg string) (*models.Image, error) {
	var id int64
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
		return nil, fmt.Errorf("invalid image id '%s'", arg)
	}
	return repo.Image(ctx, id)
}

func printImage(ctx context.Context, cmd *cobra.Command, repo *records.Repository, image *models.Image) error {
	if image.ID == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching image")
		return nil
	}

	code, err := repo.ImageCode(ctx, image)
	if err != nil {
		return err
	}
	exam, err := repo.Exam(ctx, image.ExamID)
	if err != nil {
		return err
	}
	path, err := repo.ImagePath(ctx, image, ingest.FileSuffix(exam.Type))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", code, path)
	return nil
}
