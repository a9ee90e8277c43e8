package records

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/db/store"
)

// ExamCode is "InterviewId/ExamId".
func ExamCode(exam *models.Exam) string {
	return fmt.Sprintf("%d/%d", exam.InterviewID, exam.ID)
}

// ImageCode is "InterviewId/ExamId/ImageId".
func (r *Repository) ImageCode(ctx context.Context, image *models.Image) (string, error) {
	if image.ID == 0 {
		return "", fmt.Errorf("%w: image has not been saved", store.ErrMissingPrimaryKey)
	}
	exam, err := r.Exam(ctx, image.ExamID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d", ExamCode(exam), image.ID), nil
}

// ExamDir is the directory holding every file of an exam:
// Root/UId/VisitDate/Modality/ExamId/Type/Laterality/ExamId.
func (r *Repository) ExamDir(ctx context.Context, exam *models.Exam) (string, error) {
	if exam.ID == 0 {
		return "", fmt.Errorf("%w: exam has not been saved", store.ErrMissingPrimaryKey)
	}

	interview, err := r.Interview(ctx, exam.InterviewID)
	if err != nil {
		return "", err
	}
	modality, err := r.Modality(ctx, exam.ModalityID)
	if err != nil {
		return "", err
	}

	examID := strconv.FormatInt(exam.ID, 10)
	laterality := exam.Laterality
	if laterality == "" {
		laterality = models.LateralityNone
	}

	return filepath.Join(r.root,
		interview.UID,
		interview.VisitDate,
		modality.Name,
		examID,
		exam.Type,
		laterality,
		examID,
	), nil
}

// ImagePath is the deterministic location of an image file: the exam
// directory, then the image id followed by suffix (".dcm", ".dcm.gz",
// ".jpg"). The image must have been saved.
func (r *Repository) ImagePath(ctx context.Context, image *models.Image, suffix string) (string, error) {
	if image.ID == 0 {
		return "", fmt.Errorf("%w: image has not been saved", store.ErrMissingPrimaryKey)
	}

	exam, err := r.Exam(ctx, image.ExamID)
	if err != nil {
		return "", err
	}
	dir, err := r.ExamDir(ctx, exam)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strconv.FormatInt(image.ID, 10)+suffix), nil
}
