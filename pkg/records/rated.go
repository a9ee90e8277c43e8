package records

import (
	"context"

	"github.com/mwantia/alder/pkg/db/store"
)

// ImageIsRatedBy reports whether the user gave the image a non-null
// rating.
func (r *Repository) ImageIsRatedBy(ctx context.Context, imageID, userID int64) (bool, error) {
	n, err := r.store.SelectValue(ctx,
		"SELECT COUNT(*) FROM ratings WHERE image_id = ? AND user_id = ? AND rating IS NOT NULL",
		imageID, userID)
	if err != nil {
		return false, err
	}
	return store.AsInt64(n) > 0, nil
}

// ExamIsRatedBy is true when the exam has images and the user rated all
// of them.
func (r *Repository) ExamIsRatedBy(ctx context.Context, examID, userID int64) (bool, error) {
	images, err := r.ImagesOf(ctx, examID)
	if err != nil || len(images) == 0 {
		return false, err
	}

	for _, image := range images {
		rated, err := r.ImageIsRatedBy(ctx, image.ID, userID)
		if err != nil || !rated {
			return false, err
		}
	}
	return true, nil
}

// InterviewIsRatedBy is true when the interview has exams and every one
// of them is rated by the user.
func (r *Repository) InterviewIsRatedBy(ctx context.Context, interviewID, userID int64) (bool, error) {
	exams, err := r.ExamsOf(ctx, interviewID)
	if err != nil || len(exams) == 0 {
		return false, err
	}

	for _, exam := range exams {
		rated, err := r.ExamIsRatedBy(ctx, exam.ID, userID)
		if err != nil || !rated {
			return false, err
		}
	}
	return true, nil
}
