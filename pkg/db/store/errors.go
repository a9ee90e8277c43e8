package store

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTable      = errors.New("unknown table")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrNotInitialized    = errors.New("record not initialized")
	ErrMissingPrimaryKey = errors.New("missing primary key")
	ErrMultipleRows      = errors.New("multiple rows match")
)

// DatabaseError carries a driver failure together with the statement
// that caused it.
type DatabaseError struct {
	Statement string
	Err       error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error executing '%s': %v", e.Statement, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// SchemaError reports use of a table or column unknown to the schema
// catalog. It always indicates a programming error.
type SchemaError struct {
	Table  string
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%v: %s.%s", e.Err, e.Table, e.Column)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Table)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func unknownColumn(table, column string) error {
	return &SchemaError{Table: table, Column: column, Err: ErrUnknownColumn}
}
