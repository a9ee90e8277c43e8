package models

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/mwantia/alder/pkg/db/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyName         = errors.New("user name must not be empty")
	ErrPasswordNotHashed = errors.New("password is not a bcrypt hash")
)

func init() {
	store.RegisterRowValidator(User{}.TableName(), func(values map[string]any) error {
		return validation.Validate(store.AsString(values["password"]),
			validation.Required,
			validation.By(isPasswordHash),
		)
	})
}

// User is a reviewer. Password always holds a bcrypt hash.
type User struct {
	ID              int64     `gorm:"primaryKey;column:id"`
	Name            string    `gorm:"column:name;type:text;not null;uniqueIndex"`
	Password        string    `gorm:"column:password;type:text;not null"`
	Expert          bool      `gorm:"column:expert;not null;default:0"`
	InterviewID     *int64    `gorm:"column:interview_id"`
	LoginTimestamp  time.Time `gorm:"column:login_timestamp"`
	CreateTimestamp time.Time `gorm:"column:create_timestamp"`
	UpdateTimestamp time.Time `gorm:"column:update_timestamp"`

	Interview *Interview `gorm:"foreignKey:InterviewID;references:ID;constraint:OnDelete:SET NULL"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) GetID() int64   { return u.ID }
func (u *User) SetID(id int64) { u.ID = id }

func (u *User) Columns() map[string]any {
	columns := map[string]any{
		"name":         u.Name,
		"password":     u.Password,
		"expert":       u.Expert,
		"interview_id": store.NullInt64(u.InterviewID),
	}
	if !u.LoginTimestamp.IsZero() {
		columns["login_timestamp"] = u.LoginTimestamp.UTC()
	}
	return columns
}

func (u *User) Assign(values map[string]any) {
	u.ID = store.AsInt64(values["id"])
	u.Name = store.AsString(values["name"])
	u.Password = store.AsString(values["password"])
	u.Expert = store.AsBool(values["expert"])
	u.InterviewID = store.AsNullInt64(values["interview_id"])
	u.LoginTimestamp = store.AsTime(values["login_timestamp"])
	u.CreateTimestamp = store.AsTime(values["create_timestamp"])
	u.UpdateTimestamp = store.AsTime(values["update_timestamp"])
}

func (u *User) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Name, validation.Required),
		validation.Field(&u.Password, validation.Required, validation.By(isPasswordHash)),
	)
}

func isPasswordHash(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(s)); err != nil {
		return ErrPasswordNotHashed
	}
	return nil
}

// SetName rejects blank names.
func (u *User) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	u.Name = name
	return nil
}

// SetPassword stores the bcrypt hash of plain.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

func (u *User) SetLastInterview(interview *Interview) {
	if !interview.IsLoaded() {
		u.InterviewID = nil
		return
	}
	id := interview.ID
	u.InterviewID = &id
}
