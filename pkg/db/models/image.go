package models

import (
	"time"

	"github.com/mwantia/alder/pkg/db/store"
)

// Image is one binary file (DICOM or JPEG) of an exam. ParentImageID
// groups related acquisitions, e.g. a still frame under its cineloop.
type Image struct {
	ID              int64     `gorm:"primaryKey;column:id"`
	ExamID          int64     `gorm:"column:exam_id;not null;uniqueIndex:idx_image_exam_acquisition"`
	Acquisition     int64     `gorm:"column:acquisition;not null;uniqueIndex:idx_image_exam_acquisition"`
	ParentImageID   *int64    `gorm:"column:parent_image_id;index"`
	Dimensionality  *int64    `gorm:"column:dimensionality"`
	Note            string    `gorm:"column:note;type:text"`
	CreateTimestamp time.Time `gorm:"column:create_timestamp"`
	UpdateTimestamp time.Time `gorm:"column:update_timestamp"`

	Exam   *Exam  `gorm:"foreignKey:ExamID;references:ID"`
	Parent *Image `gorm:"foreignKey:ParentImageID;references:ID;constraint:OnDelete:SET NULL"`
}

func (Image) TableName() string {
	return "images"
}

func (i *Image) GetID() int64   { return i.ID }
func (i *Image) SetID(id int64) { i.ID = id }

func (i *Image) Columns() map[string]any {
	return map[string]any{
		"exam_id":         i.ExamID,
		"acquisition":     i.Acquisition,
		"parent_image_id": store.NullInt64(i.ParentImageID),
		"dimensionality":  store.NullInt64(i.Dimensionality),
		"note":            store.NullString(i.Note),
	}
}

func (i *Image) Assign(values map[string]any) {
	i.ID = store.AsInt64(values["id"])
	i.ExamID = store.AsInt64(values["exam_id"])
	i.Acquisition = store.AsInt64(values["acquisition"])
	i.ParentImageID = store.AsNullInt64(values["parent_image_id"])
	i.Dimensionality = store.AsNullInt64(values["dimensionality"])
	i.Note = store.AsString(values["note"])
	i.CreateTimestamp = store.AsTime(values["create_timestamp"])
	i.UpdateTimestamp = store.AsTime(values["update_timestamp"])
}

func (i *Image) HasParent() bool {
	return i.ParentImageID != nil && *i.ParentImageID > 0
}

func (i *Image) SetParent(parent *Image) {
	if parent == nil || parent.ID == 0 {
		i.ParentImageID = nil
		return
	}
	id := parent.ID
	i.ParentImageID = &id
}

func (i *Image) SetDimensionality(n int) {
	d := int64(n)
	i.Dimensionality = &d
}
