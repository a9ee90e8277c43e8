package models

import "github.com/mwantia/alder/pkg/db/store"

const (
	ModalityUltrasound = "Ultrasound"
	ModalityDexa       = "Dexa"
	ModalityRetinal    = "Retinal"
)

// Modality enumerates an image domain.
type Modality struct {
	ID   int64  `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;type:text;not null;uniqueIndex"`
	Help string `gorm:"column:help;type:text"`
}

func (Modality) TableName() string {
	return "modalities"
}

func (m *Modality) GetID() int64   { return m.ID }
func (m *Modality) SetID(id int64) { m.ID = id }

func (m *Modality) Columns() map[string]any {
	return map[string]any{
		"name": m.Name,
		"help": store.NullString(m.Help),
	}
}

func (m *Modality) Assign(values map[string]any) {
	m.ID = store.AsInt64(values["id"])
	m.Name = store.AsString(values["name"])
	m.Help = store.AsString(values["help"])
}

// UserModality assigns a modality to a reviewer.
type UserModality struct {
	UserID     int64 `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	ModalityID int64 `gorm:"primaryKey;column:modality_id;autoIncrement:false"`

	User     *User     `gorm:"foreignKey:UserID;references:ID"`
	Modality *Modality `gorm:"foreignKey:ModalityID;references:ID"`
}

func (UserModality) TableName() string {
	return "user_modalities"
}
