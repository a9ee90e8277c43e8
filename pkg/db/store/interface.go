package store

import (
	"context"

	"gorm.io/gorm"
)

// RecordStore is the surface other packages depend on.
type RecordStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Health(ctx context.Context) error
	DB() *gorm.DB

	// Generic records
	NewRecord(table string) *Record
	Record(ctx context.Context, table string) (*Record, error)
	Catalog() *Catalog

	// Raw statements
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)
	Select(ctx context.Context, stmt string, args []any, fn func(row map[string]any) error) error
	SelectValues(ctx context.Context, stmt string, args ...any) ([]any, error)
	SelectValue(ctx context.Context, stmt string, args ...any) (any, error)

	// Typed entities
	LoadEntity(ctx context.Context, e Entity, criteria map[string]any) (bool, error)
	LoadEntityByID(ctx context.Context, e Entity, id int64) (bool, error)
	SaveEntity(ctx context.Context, e Entity) error
	RemoveEntity(ctx context.Context, e Entity) error
}

var _ RecordStore = (*Store)(nil)
