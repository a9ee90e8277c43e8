package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwantia/alder/pkg/db/models"
	"github.com/mwantia/alder/pkg/db/store"
)

var ErrInvalidCredentials = errors.New("invalid user name or password")

func (r *Repository) User(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	return u, r.load(ctx, u, map[string]any{"id": id})
}

func (r *Repository) UserByName(ctx context.Context, name string) (*models.User, error) {
	u := &models.User{}
	return u, r.load(ctx, u, map[string]any{"name": name})
}

func (r *Repository) Users(ctx context.Context) ([]*models.User, error) {
	return store.SelectEntities(ctx, r.store, "SELECT * FROM users ORDER BY name", nil,
		func() *models.User { return &models.User{} })
}

// AddUser creates a reviewer with a hashed password.
func (r *Repository) AddUser(ctx context.Context, name, password string, expert bool) (*models.User, error) {
	u := &models.User{Expert: expert}
	if err := u.SetName(name); err != nil {
		return nil, err
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks a password and stamps the login time.
func (r *Repository) Authenticate(ctx context.Context, name, password string) (*models.User, error) {
	u, err := r.UserByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	u.LoginTimestamp = time.Now().UTC()
	if err := r.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RemoveUser deletes a user after its ratings and modality assignments;
// the store itself never cascades.
func (r *Repository) RemoveUser(ctx context.Context, u *models.User) error {
	if u.ID == 0 {
		return fmt.Errorf("%w: user '%s'", store.ErrMissingPrimaryKey, u.Name)
	}
	if _, err := r.store.Exec(ctx, "DELETE FROM ratings WHERE user_id = ?", u.ID); err != nil {
		return err
	}
	if _, err := r.store.Exec(ctx, "DELETE FROM user_modalities WHERE user_id = ?", u.ID); err != nil {
		return err
	}
	return r.store.RemoveEntity(ctx, u)
}

// AssignModality grants a user access to a modality. Assigning twice is a
// no-op.
func (r *Repository) AssignModality(ctx context.Context, userID, modalityID int64) error {
	_, err := r.store.Exec(ctx,
		"INSERT OR IGNORE INTO user_modalities (user_id, modality_id) VALUES (?, ?)",
		userID, modalityID)
	return err
}

func (r *Repository) RevokeModality(ctx context.Context, userID, modalityID int64) error {
	_, err := r.store.Exec(ctx,
		"DELETE FROM user_modalities WHERE user_id = ? AND modality_id = ?",
		userID, modalityID)
	return err
}

func (r *Repository) UserModalities(ctx context.Context, userID int64) ([]*models.Modality, error) {
	return store.SelectEntities(ctx, r.store,
		`SELECT m.* FROM modalities m
		JOIN user_modalities um ON um.modality_id = m.id
		WHERE um.user_id = ?
		ORDER BY m.name`,
		[]any{userID},
		func() *models.Modality { return &models.Modality{} })
}

// RatingFor returns the user's rating of an image, or nil when the image
// was never opened by that user.
func (r *Repository) RatingFor(ctx context.Context, userID, imageID int64) (*models.Rating, error) {
	rating := &models.Rating{}
	err := r.load(ctx, rating, map[string]any{"user_id": userID, "image_id": imageID})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rating, nil
}

// SetRating records a score, nil clearing it while keeping the row.
func (r *Repository) SetRating(ctx context.Context, userID, imageID int64, value *int64) (*models.Rating, error) {
	rating, err := r.RatingFor(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		rating = &models.Rating{UserID: userID, ImageID: imageID}
	}

	rating.Rating = value
	if err := r.Save(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}
