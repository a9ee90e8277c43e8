// Package query composes WHERE, GROUP BY, ORDER BY and LIMIT fragments that
// can be appended to a caller-built "SELECT ... FROM ..." statement.
package query

import (
	"fmt"
	"strings"
)

type where struct {
	column   string
	operator string
	value    any
	escape   bool
	or       bool
	bracket  string // "(" or ")" for grouping entries
}

type order struct {
	column string
	desc   bool
}

// Modifier accumulates clauses in insertion order. A zero Modifier is
// ready to use.
type Modifier struct {
	wheres []where
	groups []string
	orders []order

	limit  int
	offset int
}

func New() *Modifier {
	return &Modifier{}
}

// Where adds a condition. A nil value renders IS NULL or IS NOT NULL
// depending on the operator. Escaped values are passed as bound
// arguments; unescaped values are inlined verbatim, which allows column
// references and sub-selects.
func (m *Modifier) Where(column, operator string, value any, escape, useOr bool) *Modifier {
	m.wheres = append(m.wheres, where{
		column:   column,
		operator: strings.TrimSpace(operator),
		value:    value,
		escape:   escape,
		or:       useOr,
	})
	return m
}

// WhereBracket opens or closes a parenthesised group. The join to the
// preceding clause follows the same AND/OR rule as Where.
func (m *Modifier) WhereBracket(open, useOr bool) *Modifier {
	b := ")"
	if open {
		b = "("
	}
	m.wheres = append(m.wheres, where{bracket: b, or: useOr})
	return m
}

func (m *Modifier) Group(column string) *Modifier {
	m.groups = append(m.groups, column)
	return m
}

func (m *Modifier) Order(column string, desc bool) *Modifier {
	m.orders = append(m.orders, order{column: column, desc: desc})
	return m
}

// Limit sets the row limit; a count of zero or less removes it.
func (m *Modifier) Limit(count, offset int) *Modifier {
	m.limit = count
	m.offset = offset
	return m
}

// Merge appends the where, group and order entries of other. The limit of
// m is kept unless it has none.
func (m *Modifier) Merge(other *Modifier) *Modifier {
	if other == nil {
		return m
	}
	m.wheres = append(m.wheres, other.wheres...)
	m.groups = append(m.groups, other.groups...)
	m.orders = append(m.orders, other.orders...)
	if m.limit <= 0 && other.limit > 0 {
		m.limit = other.limit
		m.offset = other.offset
	}
	return m
}

// HasWhere reports whether any condition has been added.
func (m *Modifier) HasWhere() bool {
	for _, w := range m.wheres {
		if w.bracket == "" {
			return true
		}
	}
	return false
}

// SQL renders the fragment and its bound arguments. With appending set the
// WHERE keyword is replaced by "AND (...)" so the result can follow an
// existing WHERE clause; without conditions the keyword is omitted.
func (m *Modifier) SQL(appending bool) (string, []any) {
	var sb strings.Builder
	var args []any

	if conditions, condArgs := m.whereSQL(); conditions != "" {
		if appending {
			fmt.Fprintf(&sb, " AND ( %s )", conditions)
		} else {
			fmt.Fprintf(&sb, " WHERE %s", conditions)
		}
		args = append(args, condArgs...)
	}

	if len(m.groups) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(m.groups, ", "))
	}

	if len(m.orders) > 0 {
		parts := make([]string, len(m.orders))
		for i, o := range m.orders {
			parts[i] = o.column
			if o.desc {
				parts[i] += " DESC"
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if m.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", m.limit)
		if m.offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", m.offset)
		}
	}

	return sb.String(), args
}

func (m *Modifier) whereSQL() (string, []any) {
	if !m.HasWhere() {
		return "", nil
	}

	var sb strings.Builder
	var args []any
	// true while the next entry is the first of its group
	first := true

	for _, w := range m.wheres {
		if w.bracket == ")" {
			sb.WriteString(" )")
			first = false
			continue
		}

		if !first {
			if w.or {
				sb.WriteString(" OR ")
			} else {
				sb.WriteString(" AND ")
			}
		}

		if w.bracket == "(" {
			sb.WriteString("(")
			first = true
			continue
		}

		clause, arg, bound := w.render()
		sb.WriteString(clause)
		if bound {
			args = append(args, arg)
		}
		first = false
	}

	return strings.TrimSpace(sb.String()), args
}

func (w where) render() (string, any, bool) {
	if w.value == nil {
		switch w.operator {
		case "!=", "<>", "IS NOT":
			return w.column + " IS NOT NULL", nil, false
		default:
			return w.column + " IS NULL", nil, false
		}
	}

	if !w.escape {
		return fmt.Sprintf("%s %s %v", w.column, w.operator, w.value), nil, false
	}

	return fmt.Sprintf("%s %s ?", w.column, w.operator), w.value, true
}
