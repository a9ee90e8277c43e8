// Package records answers entity-level questions over the record store:
// typed lookups, rating state, on-disk locations and navigation.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/db/store"
	"github.com/mwantia/alder/pkg/log"
)

var ErrNotFound = errors.New("record not found")

// Repository owns no state besides its collaborators; every relation is
// re-queried on demand.
type Repository struct {
	store *store.Store
	root  string
	log   log.LoggerService
}

func NewRepository(s *store.Store, imagesRoot string, logger log.LoggerService) *Repository {
	if logger == nil {
		logger = log.NewDiscardLogger()
	}
	return &Repository{
		store: s,
		root:  imagesRoot,
		log:   logger,
	}
}

func (r *Repository) Store() *store.Store {
	return r.store
}

// Save inserts or updates any entity.
func (r *Repository) Save(ctx context.Context, e store.Entity) error {
	return r.store.SaveEntity(ctx, e)
}

func (r *Repository) load(ctx context.Context, e store.Entity, criteria map[string]any) error {
	found, err := r.store.LoadEntity(ctx, e, criteria)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s %v", ErrNotFound, e.TableName(), criteria)
	}
	return nil
}

// ByID loads any record kind by primary key.
func (r *Repository) ByID(ctx context.Context, kind models.Kind, id int64) (store.Entity, error) {
	e, err := models.New(kind)
	if err != nil {
		return nil, err
	}
	return e, r.load(ctx, e, map[string]any{"id": id})
}

// Interview

func (r *Repository) Interview(ctx context.Context, id int64) (*models.Interview, error) {
	i := &models.Interview{}
	return i, r.load(ctx, i, map[string]any{"id": id})
}

func (r *Repository) InterviewByVisit(ctx context.Context, uid, visitDate string) (*models.Interview, error) {
	i := &models.Interview{}
	return i, r.load(ctx, i, map[string]any{"uid": uid, "visit_date": visitDate})
}

// EnsureInterview returns the interview of (uid, visitDate), creating it
// when missing. created reports whether a row was inserted.
func (r *Repository) EnsureInterview(ctx context.Context, uid, visitDate, site string) (i *models.Interview, created bool, err error) {
	i, err = r.InterviewByVisit(ctx, uid, visitDate)
	if err == nil {
		if site != "" && i.Site != site {
			i.Site = site
			err = r.Save(ctx, i)
		}
		return i, false, err
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	i = &models.Interview{UID: uid, VisitDate: visitDate, Site: site}
	if err := r.Save(ctx, i); err != nil {
		return nil, false, err
	}
	return i, true, nil
}

// Interviews lists every interview, or those of one participant when uid
// is set.
func (r *Repository) Interviews(ctx context.Context, uid string) ([]*models.Interview, error) {
	stmt := "SELECT * FROM interviews"
	var args []any
	if uid != "" {
		stmt += " WHERE uid = ?"
		args = append(args, uid)
	}
	stmt += " ORDER BY uid, visit_date, id"

	return store.SelectEntities(ctx, r.store, stmt, args, func() *models.Interview { return &models.Interview{} })
}

// Exam

func (r *Repository) Exam(ctx context.Context, id int64) (*models.Exam, error) {
	e := &models.Exam{}
	return e, r.load(ctx, e, map[string]any{"id": id})
}

func (r *Repository) FindExam(ctx context.Context, interviewID int64, examType, laterality string) (*models.Exam, error) {
	e := &models.Exam{}
	return e, r.load(ctx, e, map[string]any{
		"interview_id": interviewID,
		"type":         examType,
		"laterality":   laterality,
	})
}

// ExamOfType returns the oldest exam of a type within an interview,
// whatever its laterality. Exams whose side is derived after download
// are found this way.
func (r *Repository) ExamOfType(ctx context.Context, interviewID int64, examType string) (*models.Exam, error) {
	exams, err := store.SelectEntities(ctx, r.store,
		"SELECT * FROM exams WHERE interview_id = ? AND type = ? ORDER BY id LIMIT 1",
		[]any{interviewID, examType},
		func() *models.Exam { return &models.Exam{} })
	if err != nil {
		return nil, err
	}
	if len(exams) == 0 {
		return nil, fmt.Errorf("%w: exams interview_id=%d type=%s", ErrNotFound, interviewID, examType)
	}
	return exams[0], nil
}

func (r *Repository) ExamsOf(ctx context.Context, interviewID int64) ([]*models.Exam, error) {
	return store.SelectEntities(ctx, r.store,
		"SELECT * FROM exams WHERE interview_id = ? ORDER BY type, laterality, id",
		[]any{interviewID},
		func() *models.Exam { return &models.Exam{} })
}

// ExamsByType lists the exams of the given types across all interviews.
func (r *Repository) ExamsByType(ctx context.Context, types ...string) ([]*models.Exam, error) {
	if len(types) == 0 {
		return nil, nil
	}

	marks := make([]string, len(types))
	args := make([]any, len(types))
	for i, t := range types {
		marks[i] = "?"
		args[i] = t
	}

	stmt := fmt.Sprintf("SELECT * FROM exams WHERE type IN (%s) ORDER BY interview_id, id", strings.Join(marks, ", "))
	return store.SelectEntities(ctx, r.store, stmt, args, func() *models.Exam { return &models.Exam{} })
}

// Image

func (r *Repository) Image(ctx context.Context, id int64) (*models.Image, error) {
	i := &models.Image{}
	return i, r.load(ctx, i, map[string]any{"id": id})
}

func (r *Repository) ImageByAcquisition(ctx context.Context, examID, acquisition int64) (*models.Image, error) {
	i := &models.Image{}
	return i, r.load(ctx, i, map[string]any{"exam_id": examID, "acquisition": acquisition})
}

func (r *Repository) ImagesOf(ctx context.Context, examID int64) ([]*models.Image, error) {
	return store.SelectEntities(ctx, r.store,
		"SELECT * FROM images WHERE exam_id = ? ORDER BY acquisition, id",
		[]any{examID},
		func() *models.Image { return &models.Image{} })
}

// ChildrenOf lists the images parented to imageID.
func (r *Repository) ChildrenOf(ctx context.Context, imageID int64) ([]*models.Image, error) {
	return store.SelectEntities(ctx, r.store,
		"SELECT * FROM images WHERE parent_image_id = ? ORDER BY acquisition, id",
		[]any{imageID},
		func() *models.Image { return &models.Image{} })
}

// RemoveImage deletes an image row together with its ratings and detaches
// its children.
func (r *Repository) RemoveImage(ctx context.Context, image *models.Image) error {
	if _, err := r.store.Exec(ctx, "DELETE FROM ratings WHERE image_id = ?", image.ID); err != nil {
		return err
	}
	if _, err := r.store.Exec(ctx, "UPDATE images SET parent_image_id = NULL WHERE parent_image_id = ?", image.ID); err != nil {
		return err
	}
	return r.store.RemoveEntity(ctx, image)
}

// Modality

func (r *Repository) Modality(ctx context.Context, id int64) (*models.Modality, error) {
	m := &models.Modality{}
	return m, r.load(ctx, m, map[string]any{"id": id})
}

func (r *Repository) ModalityByName(ctx context.Context, name string) (*models.Modality, error) {
	m := &models.Modality{}
	return m, r.load(ctx, m, map[string]any{"name": name})
}

func (r *Repository) Modalities(ctx context.Context) ([]*models.Modality, error) {
	return store.SelectEntities(ctx, r.store, "SELECT * FROM modalities ORDER BY name", nil,
		func() *models.Modality { return &models.Modality{} })
}
