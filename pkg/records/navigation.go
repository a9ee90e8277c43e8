package records

import (
	"context"
	"fmt"

	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/db/query"
	"github.com/mwantia/alder/pkg/db/store"
)

// InterviewFilter narrows the interviews visited by InterviewNeighbour.
type InterviewFilter struct {
	// Loaded keeps interviews whose exams of the user's modalities all
	// have their image data.
	Loaded bool
	// Unrated keeps interviews the user has not fully rated.
	Unrated bool
}

// InterviewNeighbour returns the interview following (or preceding) current
// in uid order among those matching filter, wrapping around at either end.
// The current interview always belongs to the scanned set. An interview
// with a zero id is returned when there is no other candidate.
func (r *Repository) InterviewNeighbour(ctx context.Context, current *models.Interview, userID int64, forward bool, filter InterviewFilter) (*models.Interview, error) {
	m := interviewFilter(userID, filter)
	where, args := m.SQL(false)

	stmt := "SELECT i.* FROM interviews i" + where +
		" UNION SELECT * FROM interviews WHERE id = ?" +
		" ORDER BY uid, visit_date, id"
	args = append(args, current.GetID())

	candidates, err := store.SelectEntities(ctx, r.store, stmt, args, func() *models.Interview { return &models.Interview{} })
	if err != nil {
		return nil, err
	}

	next := neighbour(len(candidates), func(i int) bool { return candidates[i].ID == current.GetID() }, forward)
	if next < 0 {
		return &models.Interview{}, nil
	}
	return candidates[next], nil
}

// interviewFilter expresses the filter as set differences over correlated
// sub-selects. The user id is an integer and is inlined.
func interviewFilter(userID int64, filter InterviewFilter) *query.Modifier {
	modalities := fmt.Sprintf("SELECT modality_id FROM user_modalities WHERE user_id = %d", userID)
	m := query.New()

	if filter.Loaded {
		m.Where("i.id", "IN", fmt.Sprintf(
			"(SELECT interview_id FROM exams WHERE modality_id IN (%s))", modalities), false, false)
		m.Where("i.id", "NOT IN", fmt.Sprintf(
			"(SELECT interview_id FROM exams WHERE modality_id IN (%s) AND downloaded = 0 AND stage = '%s')",
			modalities, models.StageCompleted), false, false)
	}

	if filter.Unrated {
		// An exam without images leaves a NULL image row, so COUNT(*)
		// exceeds the rated count and the interview stays unrated.
		m.Where("i.id", "NOT IN", fmt.Sprintf(`(SELECT e.interview_id FROM exams e
			LEFT JOIN images im ON im.exam_id = e.id
			LEFT JOIN ratings r ON r.image_id = im.id AND r.user_id = %d AND r.rating IS NOT NULL
			WHERE e.modality_id IN (%s)
			GROUP BY e.interview_id
			HAVING COUNT(im.id) > 0 AND COUNT(r.id) = COUNT(*))`, userID, modalities), false, false)
	}

	return m
}

// neighbour returns the index after (or before) the one matching isCurrent,
// wrapping around. When nothing matches the first (or last) index is used.
// It returns -1 when no index other than the current one exists.
func neighbour(n int, isCurrent func(int) bool, forward bool) int {
	current := -1
	for i := 0; i < n; i++ {
		if isCurrent(i) {
			current = i
			break
		}
	}

	switch {
	case current < 0 && n == 0:
		return -1
	case current < 0 && forward:
		return 0
	case current < 0:
		return n - 1
	case n == 1:
		return -1
	case forward:
		return (current + 1) % n
	default:
		return (current - 1 + n) % n
	}
}

// atlasImages lists the images an expert rated with the given value among
// exams of the active image's type, excluding the active image itself.
func (r *Repository) atlasImages(ctx context.Context, active *models.Image, rating int64) ([]*models.Image, error) {
	exam, err := r.Exam(ctx, active.ExamID)
	if err != nil {
		return nil, err
	}

	m := query.New().
		Where("u.expert", "=", 1, true, false).
		Where("r.rating", "=", rating, true, false).
		Where("e.type", "=", exam.Type, true, false).
		Where("im.id", "!=", active.ID, true, false).
		Order("i.uid", false).
		Order("i.visit_date", false).
		Order("im.id", false)
	fragment, args := m.SQL(false)

	stmt := `SELECT DISTINCT im.*, i.uid, i.visit_date FROM images im
		JOIN exams e ON e.id = im.exam_id
		JOIN interviews i ON i.id = e.interview_id
		JOIN ratings r ON r.image_id = im.id
		JOIN users u ON u.id = r.user_id` + fragment

	return store.SelectEntities(ctx, r.store, stmt, args, func() *models.Image { return &models.Image{} })
}

// AtlasImage returns the first expert-rated reference image for the active
// image, or an image with a zero id when none exists.
func (r *Repository) AtlasImage(ctx context.Context, active *models.Image, rating int64) (*models.Image, error) {
	images, err := r.atlasImages(ctx, active, rating)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return &models.Image{}, nil
	}
	return images[0], nil
}

// NeighbourAtlasImage steps from the atlas image currently shown to the
// next (or previous) one, wrapping around.
func (r *Repository) NeighbourAtlasImage(ctx context.Context, active, current *models.Image, rating int64, forward bool) (*models.Image, error) {
	images, err := r.atlasImages(ctx, active, rating)
	if err != nil {
		return nil, err
	}

	next := neighbour(len(images), func(i int) bool { return images[i].ID == current.GetID() }, forward)
	if next < 0 {
		return &models.Image{}, nil
	}
	return images[next], nil
}

// SimilarImage finds the image with the same exam type, laterality and
// acquisition in another interview, or an image with a zero id.
func (r *Repository) SimilarImage(ctx context.Context, image *models.Image, interviewID int64) (*models.Image, error) {
	exam, err := r.Exam(ctx, image.ExamID)
	if err != nil {
		return nil, err
	}

	m := query.New().
		Where("e.interview_id", "=", interviewID, true, false).
		Where("e.type", "=", exam.Type, true, false).
		Where("e.laterality", "=", exam.Laterality, true, false).
		Where("im.acquisition", "=", image.Acquisition, true, false).
		Order("im.id", false).
		Limit(1, 0)
	fragment, args := m.SQL(false)

	images, err := store.SelectEntities(ctx, r.store,
		"SELECT im.* FROM images im JOIN exams e ON e.id = im.exam_id"+fragment,
		args, func() *models.Image { return &models.Image{} })
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return &models.Image{}, nil
	}
	return images[0], nil
}
