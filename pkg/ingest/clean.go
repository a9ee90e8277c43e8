package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/dicom"
	"github.com/mwantia/alder/pkg/opal"
)

// CleanImages removes identifying data from every DICOM file of an exam.
// Hologic reports whose layout is unknown still get their header blanked.
func (p *Pipeline) CleanImages(ctx context.Context, exam *models.Exam, policy Policy) error {
	if policy.Clean == CleanNone {
		return nil
	}

	images, err := p.repo.ImagesOf(ctx, exam.ID)
	if err != nil {
		return err
	}

	var errs []error
	for _, image := range images {
		path, err := p.repo.ImagePath(ctx, image, ".dcm")
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}

		if err := p.cleanFile(path, policy); err != nil {
			errs = append(errs, fmt.Errorf("image %d: %w", image.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) cleanFile(path string, policy Policy) error {
	if policy.Clean == CleanHologic {
		changed, err := dicom.CleanHologic(path, policy.HologicSubtype)
		if err != nil {
			return err
		}
		if changed {
			p.log.Debug("Redacted report '%s'", path)
			return nil
		}
		p.log.Warn("No %s layout matches '%s', blanking header only", policy.HologicSubtype, path)
	}

	_, err := dicom.Anonymize(path)
	return err
}

// deriveLaterality sets the exam side from the DICOM header and moves the
// exam directory to match. info may be nil, in which case the first image
// of the exam is inspected.
func (p *Pipeline) deriveLaterality(ctx context.Context, exam *models.Exam, info *dicom.Info) error {
	if info == nil {
		images, err := p.repo.ImagesOf(ctx, exam.ID)
		if err != nil || len(images) == 0 {
			return err
		}
		path, err := p.repo.ImagePath(ctx, images[0], ".dcm")
		if err != nil {
			return err
		}
		if info, err = dicom.Inspect(path); err != nil {
			return err
		}
	}

	if info.Laterality == "" || info.Laterality == exam.Laterality {
		return nil
	}

	oldDir, err := p.repo.ExamDir(ctx, exam)
	if err != nil {
		return err
	}

	previous := exam.Laterality
	exam.Laterality = info.Laterality
	if err := p.repo.Save(ctx, exam); err != nil {
		exam.Laterality = previous
		return err
	}

	newDir, err := p.repo.ExamDir(ctx, exam)
	if err != nil {
		return err
	}
	if err := moveDir(oldDir, newDir); err != nil {
		return err
	}

	p.log.Info("Exam %d laterality %s -> %s", exam.ID, previous, exam.Laterality)
	return nil
}

// moveDir renames src to dst and drops the emptied laterality directory.
func moveDir(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	_ = os.Remove(filepath.Dir(src))
	return nil
}

// CleanDexa re-runs de-identification over every downloaded DEXA exam:
// laterality is re-derived where the policy asks for it and every file
// still carrying a patient name is cleaned again.
func (p *Pipeline) CleanDexa(ctx context.Context) (Result, error) {
	var result Result

	exams, err := p.repo.ExamsByType(ctx, DexaTypes()...)
	if err != nil {
		return result, err
	}
	p.log.Info("Checking %d DEXA exams", len(exams))

	for _, exam := range exams {
		if ctx.Err() != nil {
			result.Aborted = true
			return result, fmt.Errorf("%w: %w", opal.ErrAborted, ctx.Err())
		}
		if !exam.Downloaded {
			continue
		}

		policy, ok := PolicyFor(exam.Type)
		if !ok {
			continue
		}

		if policy.DeriveLaterality {
			if err := p.deriveLaterality(ctx, exam, nil); err != nil {
				p.log.Warn("Exam %d: deriving laterality failed: %v", exam.ID, err)
			}
		}

		images, err := p.repo.ImagesOf(ctx, exam.ID)
		if err != nil {
			return result, err
		}
		for _, image := range images {
			path, err := p.repo.ImagePath(ctx, image, ".dcm")
			if err != nil {
				return result, err
			}
			info, err := dicom.Inspect(path)
			if err != nil {
				result.Skipped++
				continue
			}
			if !info.HasPatientName() {
				continue
			}

			result.Attempted++
			if err := p.cleanFile(path, policy); err != nil {
				p.log.Error("Cleaning '%s' failed: %v", path, err)
				result.Failed++
				continue
			}
			result.Succeeded++
		}
	}

	p.log.Info("DEXA clean finished: %s", result)
	return result, nil
}
