package models

import (
	"time"

	"github.com/mwantia/alder/pkg/db/store"
)

const dateLayout = "2006-01-02"

// Interview is one study visit of a participant.
type Interview struct {
	ID              int64     `gorm:"primaryKey;column:id"`
	UID             string    `gorm:"column:uid;type:text;not null;uniqueIndex:idx_interview_uid_visit"`
	VisitDate       string    `gorm:"column:visit_date;type:text;not null;uniqueIndex:idx_interview_uid_visit"`
	Site            string    `gorm:"column:site;type:text"`
	CreateTimestamp time.Time `gorm:"column:create_timestamp"`
	UpdateTimestamp time.Time `gorm:"column:update_timestamp"`

	Exams []Exam `gorm:"foreignKey:InterviewID"`
}

func (Interview) TableName() string {
	return "interviews"
}

func (i *Interview) GetID() int64   { return i.ID }
func (i *Interview) SetID(id int64) { i.ID = id }

func (i *Interview) Columns() map[string]any {
	return map[string]any{
		"uid":        i.UID,
		"visit_date": i.VisitDate,
		"site":       store.NullString(i.Site),
	}
}

func (i *Interview) Assign(values map[string]any) {
	i.ID = store.AsInt64(values["id"])
	i.UID = store.AsString(values["uid"])
	i.VisitDate = normalizeDate(values["visit_date"])
	i.Site = store.AsString(values["site"])
	i.CreateTimestamp = store.AsTime(values["create_timestamp"])
	i.UpdateTimestamp = store.AsTime(values["update_timestamp"])
}

// IsLoaded reports whether the interview refers to a stored row. A
// navigation query that finds no neighbour returns an unloaded Interview.
func (i *Interview) IsLoaded() bool {
	return i != nil && i.ID > 0
}

// Visit parses VisitDate.
func (i *Interview) Visit() (time.Time, error) {
	return time.Parse(dateLayout, i.VisitDate)
}

// FormatVisitDate renders a visit date the way interviews store it.
func FormatVisitDate(t time.Time) string {
	return t.Format(dateLayout)
}

func normalizeDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(dateLayout)
	default:
		s := store.AsString(v)
		if len(s) > len(dateLayout) {
			if parsed := store.AsTime(s); !parsed.IsZero() {
				return parsed.Format(dateLayout)
			}
		}
		return s
	}
}
