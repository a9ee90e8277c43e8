package store

import (
	"context"
	"fmt"
)

// Entity is a typed row. Implementations map their fields onto column
// values; the Record keeps owning the generic, schema-checked path.
type Entity interface {
	TableName() string
	GetID() int64
	SetID(id int64)
	Columns() map[string]any
	Assign(values map[string]any)
}

type validator interface {
	Validate() error
}

// LoadEntity fills e from the single row matching criteria.
func (s *Store) LoadEntity(ctx context.Context, e Entity, criteria map[string]any) (bool, error) {
	r, err := s.Record(ctx, e.TableName())
	if err != nil {
		return false, err
	}

	found, err := r.Load(ctx, criteria)
	if err != nil || !found {
		return found, err
	}

	e.Assign(r.Values())
	return true, nil
}

// LoadEntityByID is LoadEntity keyed by primary key.
func (s *Store) LoadEntityByID(ctx context.Context, e Entity, id int64) (bool, error) {
	return s.LoadEntity(ctx, e, map[string]any{primaryKey: id})
}

// SaveEntity validates e when it knows how, then inserts or updates it.
func (s *Store) SaveEntity(ctx context.Context, e Entity) error {
	if v, ok := e.(validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid %s: %w", e.TableName(), err)
		}
	}

	r, err := s.Record(ctx, e.TableName())
	if err != nil {
		return err
	}

	r.setPrimaryKey(e.GetID())
	for column, value := range e.Columns() {
		if err := r.Set(column, value); err != nil {
			return err
		}
	}

	if err := r.Save(ctx); err != nil {
		return err
	}

	e.SetID(r.ID())
	return nil
}

// RemoveEntity deletes the row behind e and clears its primary key.
func (s *Store) RemoveEntity(ctx context.Context, e Entity) error {
	r, err := s.Record(ctx, e.TableName())
	if err != nil {
		return err
	}

	r.setPrimaryKey(e.GetID())
	if err := r.Remove(ctx); err != nil {
		return err
	}

	e.SetID(0)
	return nil
}

// SelectEntities runs stmt and assigns every row to a new entity.
// newEntity must return a distinct value on each call.
func SelectEntities[T Entity](ctx context.Context, s *Store, stmt string, args []any, newEntity func() T) ([]T, error) {
	var out []T
	err := s.Select(ctx, stmt, args, func(row map[string]any) error {
		e := newEntity()
		e.Assign(row)
		out = append(out, e)
		return nil
	})
	return out, err
}
