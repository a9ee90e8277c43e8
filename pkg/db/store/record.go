package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mwantia/alder/pkg/db/query"
)

const (
	primaryKey      = "id"
	createTimestamp = "create_timestamp"
	updateTimestamp = "update_timestamp"
)

// Record is a single row of any table. Its column set, defaults and
// nullability come from the schema catalog, never from hard-coded DDL.
type Record struct {
	store  *Store
	table  string
	schema *Table
	values map[string]any
	dirty  map[string]bool
}

// NewRecord returns an uninitialized record for table. Initialize runs on
// first Load or Save, or explicitly.
func (s *Store) NewRecord(table string) *Record {
	return &Record{
		store: s,
		table: table,
	}
}

// Record returns an initialized record for table.
func (s *Store) Record(ctx context.Context, table string) (*Record, error) {
	r := s.NewRecord(table)
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Initialize reflects the table's columns and resets every value to its
// schema default.
func (r *Record) Initialize(ctx context.Context) error {
	if r.schema != nil {
		return nil
	}

	schema, err := r.store.catalog.Table(ctx, r.table)
	if err != nil {
		return err
	}

	r.schema = schema
	r.reset()
	return nil
}

func (r *Record) reset() {
	r.values = make(map[string]any, len(r.schema.Columns))
	r.dirty = make(map[string]bool)
	for _, column := range r.schema.Columns {
		r.values[column.Name] = column.Default
	}
}

func (r *Record) Table() string {
	return r.table
}

// Load replaces the record's values with the single row matching every
// criterion. It reports false when no row matches and fails with
// ErrMultipleRows when more than one does.
func (r *Record) Load(ctx context.Context, criteria map[string]any) (bool, error) {
	if err := r.Initialize(ctx); err != nil {
		return false, err
	}

	keys := make([]string, 0, len(criteria))
	for column := range criteria {
		if !r.schema.Has(column) {
			return false, unknownColumn(r.table, column)
		}
		keys = append(keys, column)
	}
	sort.Strings(keys)

	m := query.New()
	for _, column := range keys {
		m.Where(column, "=", criteria[column], true, false)
	}

	fragment, args := m.SQL(false)
	stmt := fmt.Sprintf("SELECT * FROM %s%s", r.table, fragment)

	var rows []map[string]any
	err := r.store.Select(ctx, stmt, args, func(row map[string]any) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return false, err
	}

	switch len(rows) {
	case 0:
		return false, nil
	case 1:
	default:
		return false, fmt.Errorf("%w: %d rows of %s for %v", ErrMultipleRows, len(rows), r.table, criteria)
	}

	r.reset()
	for column, value := range rows[0] {
		if r.schema.Has(column) {
			r.values[column] = value
		}
	}
	return true, nil
}

// Get returns the value of column, nil meaning NULL.
func (r *Record) Get(column string) (any, error) {
	if r.schema == nil {
		return nil, &SchemaError{Table: r.table, Err: ErrNotInitialized}
	}
	if !r.schema.Has(column) {
		return nil, unknownColumn(r.table, column)
	}
	return r.values[column], nil
}

// Set changes the value of column and marks it for the next Save.
func (r *Record) Set(column string, value any) error {
	if r.schema == nil {
		return &SchemaError{Table: r.table, Err: ErrNotInitialized}
	}
	if !r.schema.Has(column) {
		return unknownColumn(r.table, column)
	}

	r.values[column] = normalize(value)
	r.dirty[column] = true
	return nil
}

// ID returns the primary key, zero when the record has not been saved.
func (r *Record) ID() int64 {
	if r.values == nil {
		return 0
	}
	return AsInt64(r.values[primaryKey])
}

// IsLoaded reports whether the record refers to a stored row.
func (r *Record) IsLoaded() bool {
	return r.ID() > 0
}

// Values returns a copy of every column value.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Save inserts the record when it has no primary key and updates the
// changed columns otherwise. After an insert the new key is read back
// with SELECT MAX(id), which assumes no other session inserts into the
// same table between the two statements.
func (r *Record) Save(ctx context.Context) error {
	if err := r.Initialize(ctx); err != nil {
		return err
	}

	if validate := rowValidator(r.table); validate != nil {
		if err := validate(r.Values()); err != nil {
			return fmt.Errorf("invalid %s: %w", r.table, err)
		}
	}

	now := time.Now().UTC()
	if r.schema.Has(updateTimestamp) {
		r.values[updateTimestamp] = now
		r.dirty[updateTimestamp] = true
	}

	if r.IsLoaded() {
		return r.update(ctx)
	}

	if r.schema.Has(createTimestamp) && r.values[createTimestamp] == nil {
		r.values[createTimestamp] = now
	}
	return r.insert(ctx)
}

func (r *Record) insert(ctx context.Context) error {
	var columns, marks []string
	var args []any

	for _, column := range r.schema.Columns {
		if column.Name == primaryKey {
			continue
		}
		value := r.values[column.Name]
		if value == nil && !r.dirty[column.Name] {
			continue
		}
		columns = append(columns, column.Name)
		marks = append(marks, "?")
		args = append(args, value)
	}

	var stmt string
	if len(columns) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", r.table)
	} else {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			r.table, strings.Join(columns, ", "), strings.Join(marks, ", "))
	}

	if _, err := r.store.Exec(ctx, stmt, args...); err != nil {
		return err
	}

	id, err := r.store.SelectValue(ctx, fmt.Sprintf("SELECT MAX(%s) FROM %s", primaryKey, r.table))
	if err != nil {
		return err
	}

	r.values[primaryKey] = AsInt64(id)
	r.dirty = make(map[string]bool)
	return nil
}

func (r *Record) update(ctx context.Context) error {
	var sets []string
	var args []any

	for _, column := range r.schema.Columns {
		if column.Name == primaryKey || !r.dirty[column.Name] {
			continue
		}
		sets = append(sets, column.Name+" = ?")
		args = append(args, r.values[column.Name])
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, r.ID())
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", r.table, strings.Join(sets, ", "), primaryKey)
	if _, err := r.store.Exec(ctx, stmt, args...); err != nil {
		return err
	}

	r.dirty = make(map[string]bool)
	return nil
}

// Remove deletes the row. Dependent rows are not touched; callers cascade
// themselves.
func (r *Record) Remove(ctx context.Context) error {
	if !r.IsLoaded() {
		return fmt.Errorf("%w: cannot remove from %s", ErrMissingPrimaryKey, r.table)
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.table, primaryKey)
	if _, err := r.store.Exec(ctx, stmt, r.ID()); err != nil {
		return err
	}

	r.reset()
	return nil
}

// setPrimaryKey marks the record as referring to an existing row without
// scheduling the key itself for update.
func (r *Record) setPrimaryKey(id int64) {
	if id > 0 {
		r.values[primaryKey] = id
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case *int64:
		if t == nil {
			return nil
		}
		return *t
	case *string:
		if t == nil {
			return nil
		}
		return *t
	default:
		return v
	}
}
