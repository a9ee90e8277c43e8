package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/mwantia/alder/pkg/db/store"
)

const (
	LateralityLeft  = "left"
	LateralityRight = "right"
	LateralityNone  = "none"

	StageCompleted     = "Completed"
	StageNotApplicable = "NotApplicable"
)

// Exam is one acquisition session of a modality within an interview.
type Exam struct {
	ID               int64     `gorm:"primaryKey;column:id"`
	InterviewID      int64     `gorm:"column:interview_id;not null;uniqueIndex:idx_exam_interview_type_side"`
	ModalityID       int64     `gorm:"column:modality_id;not null;index"`
	Type             string    `gorm:"column:type;type:text;not null;uniqueIndex:idx_exam_interview_type_side"`
	Laterality       string    `gorm:"column:laterality;type:text;not null;default:'none';uniqueIndex:idx_exam_interview_type_side"`
	Stage            string    `gorm:"column:stage;type:text"`
	Downloaded       bool      `gorm:"column:downloaded;not null;default:0"`
	Interviewer      string    `gorm:"column:interviewer;type:text"`
	DatetimeAcquired string    `gorm:"column:datetime_acquired;type:text"`
	CreateTimestamp  time.Time `gorm:"column:create_timestamp"`
	UpdateTimestamp  time.Time `gorm:"column:update_timestamp"`

	Interview *Interview `gorm:"foreignKey:InterviewID;references:ID"`
	Modality  *Modality  `gorm:"foreignKey:ModalityID;references:ID"`
	Images    []Image    `gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

func (e *Exam) GetID() int64   { return e.ID }
func (e *Exam) SetID(id int64) { e.ID = id }

func (e *Exam) Columns() map[string]any {
	return map[string]any{
		"interview_id":      e.InterviewID,
		"modality_id":       e.ModalityID,
		"type":              e.Type,
		"laterality":        e.lateralityOrNone(),
		"stage":             store.NullString(e.Stage),
		"downloaded":        e.Downloaded,
		"interviewer":       store.NullString(e.Interviewer),
		"datetime_acquired": store.NullString(e.DatetimeAcquired),
	}
}

func (e *Exam) Assign(values map[string]any) {
	e.ID = store.AsInt64(values["id"])
	e.InterviewID = store.AsInt64(values["interview_id"])
	e.ModalityID = store.AsInt64(values["modality_id"])
	e.Type = store.AsString(values["type"])
	e.Laterality = store.AsString(values["laterality"])
	e.Stage = store.AsString(values["stage"])
	e.Downloaded = store.AsBool(values["downloaded"])
	e.Interviewer = store.AsString(values["interviewer"])
	e.DatetimeAcquired = store.AsString(values["datetime_acquired"])
	e.CreateTimestamp = store.AsTime(values["create_timestamp"])
	e.UpdateTimestamp = store.AsTime(values["update_timestamp"])
}

func (e *Exam) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.InterviewID, validation.Required),
		validation.Field(&e.ModalityID, validation.Required),
		validation.Field(&e.Type, validation.Required),
		validation.Field(&e.Laterality, validation.In(LateralityLeft, LateralityRight, LateralityNone)),
	)
}

// HasLaterality reports whether the exam is tied to one side.
func (e *Exam) HasLaterality() bool {
	return e.lateralityOrNone() != LateralityNone
}

// HasImageData reports whether there is nothing left to download: either
// the files are already on disk or the exam was never completed, which
// makes it vacuously complete.
func (e *Exam) HasImageData() bool {
	return e.Downloaded || e.Stage != StageCompleted
}

func (e *Exam) lateralityOrNone() string {
	l := strings.ToLower(strings.TrimSpace(e.Laterality))
	if l == "" {
		return LateralityNone
	}
	return l
}
