package models

import (
	"fmt"

	"github.com/mwantia/alder/pkg/db/store"
)

// Kind enumerates the typed record kinds.
type Kind int

const (
	KindInterview Kind = iota + 1
	KindExam
	KindImage
	KindModality
	KindRating
	KindUser
)

var constructors = map[Kind]func() store.Entity{
	KindInterview: func() store.Entity { return &Interview{} },
	KindExam:      func() store.Entity { return &Exam{} },
	KindImage:     func() store.Entity { return &Image{} },
	KindModality:  func() store.Entity { return &Modality{} },
	KindRating:    func() store.Entity { return &Rating{} },
	KindUser:      func() store.Entity { return &User{} },
}

// New returns an empty record of kind.
func New(kind Kind) (store.Entity, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown record kind %d", int(kind))
	}
	return ctor(), nil
}

// KindOf maps a table name back to its record kind.
func KindOf(table string) (Kind, bool) {
	for kind, ctor := range constructors {
		if ctor().TableName() == table {
			return kind, true
		}
	}
	return 0, false
}

func (k Kind) String() string {
	if ctor, ok := constructors[k]; ok {
		return ctor().TableName()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}
