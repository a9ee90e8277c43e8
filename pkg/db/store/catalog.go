package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Column is one column as reported by the schema catalog.
type Column struct {
	Name       string
	Type       string
	Default    any
	Nullable   bool
	PrimaryKey bool
}

// Table is the reflected column set of one table.
type Table struct {
	Name    string
	Columns []Column

	index map[string]int
}

// Column returns the named column, if the table has it.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Catalog reflects table layouts from the database once per table and
// caches them for the lifetime of the process.
type Catalog struct {
	db     *gorm.DB
	tables map[string]*Table
}

func newCatalog(db *gorm.DB) *Catalog {
	return &Catalog{
		db:     db,
		tables: make(map[string]*Table),
	}
}

// Table returns the cached layout of name, reflecting it on first use.
func (c *Catalog) Table(ctx context.Context, name string) (*Table, error) {
	if t, ok := c.tables[name]; ok {
		return t, nil
	}

	migrator := c.db.WithContext(ctx).Migrator()
	if !migrator.HasTable(name) {
		return nil, &SchemaError{Table: name, Err: ErrUnknownTable}
	}

	// PRAGMA table_info reports defaults and key flags for any DDL, not only
	// for tables gorm created itself.
	rows, err := c.db.WithContext(ctx).Raw(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name))).Rows()
	if err != nil {
		return nil, &DatabaseError{Statement: fmt.Sprintf("reflect columns of %s", name), Err: err}
	}
	defer rows.Close()

	t := &Table{
		Name:  name,
		index: make(map[string]int),
	}
	for rows.Next() {
		var (
			cid, notNull, pk int
			colName, ctype   string
			def              sql.NullString
		)
		if err := rows.Scan(&cid, &colName, &ctype, &notNull, &def, &pk); err != nil {
			return nil, &DatabaseError{Statement: fmt.Sprintf("reflect columns of %s", name), Err: err}
		}

		column := Column{
			Name:       colName,
			Type:       strings.ToLower(ctype),
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
		}
		if def.Valid {
			column.Default = parseDefault(def.String)
		}

		t.index[column.Name] = len(t.Columns)
		t.Columns = append(t.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Statement: fmt.Sprintf("reflect columns of %s", name), Err: err}
	}

	c.tables[name] = t
	return t, nil
}

// Forget drops the cached layout of a table, used after migrations.
func (c *Catalog) Forget(name string) {
	delete(c.tables, name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// parseDefault turns a catalog default expression into a literal value.
// Expressions evaluated by the database (CURRENT_TIMESTAMP, function
// calls) yield nil so the database applies them itself.
func parseDefault(raw string) any {
	def := strings.TrimSpace(raw)
	for len(def) >= 2 && def[0] == '(' && def[len(def)-1] == ')' {
		def = strings.TrimSpace(def[1 : len(def)-1])
	}

	if def == "" || strings.EqualFold(def, "null") {
		return nil
	}

	if len(def) >= 2 && (def[0] == '\'' || def[0] == '"') && def[len(def)-1] == def[0] {
		return strings.ReplaceAll(def[1:len(def)-1], "''", "'")
	}

	switch strings.ToLower(def) {
	case "true":
		return int64(1)
	case "false":
		return int64(0)
	case "current_timestamp", "current_date", "current_time":
		return nil
	}

	if strings.Contains(def, "(") {
		return nil
	}

	if i, err := strconv.ParseInt(def, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(def, 64); err == nil {
		return f
	}

	// Some drivers report string defaults with their quotes already removed.
	return def
}
