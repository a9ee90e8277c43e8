package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/mwantia/alder/pkg/db/store"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is one reviewer's quality score for an image. A nil Rating means
// the image was opened but not scored.
type Rating struct {
	ID              int64     `gorm:"primaryKey;column:id"`
	UserID          int64     `gorm:"column:user_id;not null;uniqueIndex:idx_rating_user_image"`
	ImageID         int64     `gorm:"column:image_id;not null;uniqueIndex:idx_rating_user_image"`
	Rating          *int64    `gorm:"column:rating"`
	CreateTimestamp time.Time `gorm:"column:create_timestamp"`
	UpdateTimestamp time.Time `gorm:"column:update_timestamp"`

	User  *User  `gorm:"foreignKey:UserID;references:ID"`
	Image *Image `gorm:"foreignKey:ImageID;references:ID"`
}

func (Rating) TableName() string {
	return "ratings"
}

func (r *Rating) GetID() int64   { return r.ID }
func (r *Rating) SetID(id int64) { r.ID = id }

func (r *Rating) Columns() map[string]any {
	return map[string]any{
		"user_id":  r.UserID,
		"image_id": r.ImageID,
		"rating":   store.NullInt64(r.Rating),
	}
}

func (r *Rating) Assign(values map[string]any) {
	r.ID = store.AsInt64(values["id"])
	r.UserID = store.AsInt64(values["user_id"])
	r.ImageID = store.AsInt64(values["image_id"])
	r.Rating = store.AsNullInt64(values["rating"])
	r.CreateTimestamp = store.AsTime(values["create_timestamp"])
	r.UpdateTimestamp = store.AsTime(values["update_timestamp"])
}

func (r *Rating) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.ImageID, validation.Required),
		validation.Field(&r.Rating, validation.By(ratingInRange)),
	)
}

// ratingInRange also rejects zero, which ozzo's Min treats as empty.
func ratingInRange(value interface{}) error {
	v, _ := value.(*int64)
	if v == nil {
		return nil
	}
	if *v < MinRating || *v > MaxRating {
		return fmt.Errorf("must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

func (r *Rating) IsRated() bool {
	return r.Rating != nil
}
