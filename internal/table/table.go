// Package table holds the explicitly typed tabular model shared by every
// pipeline stage. Each column carries a semantic Role decided once during
// normalization; downstream code never re-infers types from raw text.
package table

import (
	"errors"
	"fmt"
	"strconv"
)

// Role is the semantic role of a column.
type Role int

const (
	RoleText Role = iota
	RoleIdentifier
	RoleNumeric
	RoleDate
	RolePercent
	RoleCode
)

func (r Role) String() string {
	switch r {
	case RoleIdentifier:
		return "identifier"
	case RoleNumeric:
		return "numeric"
	case RoleDate:
		return "date"
	case RolePercent:
		return "percentage"
	case RoleCode:
		return "composite-code"
	default:
		return "text"
	}
}

// ErrDuplicateColumn is returned when a column name is already taken.
var ErrDuplicateColumn = errors.New("duplicate column")

// ErrRowCount is returned when a column's length differs from the table's.
var ErrRowCount = errors.New("column row count mismatch")

// Column is a named, role-tagged sequence of values.
type Column struct {
	Name   string
	Role   Role
	Values []Value
}

// Table is an ordered set of uniquely named columns of equal length.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// New builds a text table from a header and records. Duplicate header names
// are disambiguated with ".1", ".2" suffixes; records shorter than the header
// are padded with empty text.
func New(header []string, records [][]string) *Table {
	t := &Table{index: make(map[string]int, len(header)), rows: len(records)}
	for j, name := range UniqueNames(header) {
		vals := make([]Value, len(records))
		for i, rec := range records {
			if j < len(rec) {
				vals[i] = Text(rec[j])
			} else {
				vals[i] = Text("")
			}
		}
		t.index[name] = len(t.cols)
		t.cols = append(t.cols, &Column{Name: name, Role: RoleText, Values: vals})
	}
	return t
}

// UniqueNames returns names with repeats renamed "name.1", "name.2", ...
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	next := map[string]int{}
	for i, n := range names {
		name := n
		for taken[name] {
			next[n]++
			name = n + "." + strconv.Itoa(next[n])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

func (t *Table) Len() int   { return t.rows }
func (t *Table) Width() int { return len(t.cols) }

// Names returns the column names in display order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Columns returns the columns in display order. The slice is a copy; the
// columns are shared.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.cols...)
}

// AddColumn appends c. The first column of an empty table fixes the row count.
func (t *Table) AddColumn(c *Column) error {
	if _, ok := t.index[c.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
	}
	if len(t.cols) == 0 && t.rows == 0 {
		t.rows = len(c.Values)
	} else if len(c.Values) != t.rows {
		return fmt.Errorf("%w: %q has %d rows, table has %d", ErrRowCount, c.Name, len(c.Values), t.rows)
	}
	if t.index == nil {
		t.index = map[string]int{}
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: t.rows}
	for i, c := range t.cols {
		out.cols = append(out.cols, &Column{Name: c.Name, Role: c.Role, Values: append([]Value(nil), c.Values...)})
		out.index[c.Name] = i
	}
	return out
}

// Take returns a new table holding the given rows of t, in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: len(rows)}
	for i, c := range t.cols {
		vals := make([]Value, len(rows))
		for k, r := range rows {
			vals[k] = c.Values[r]
		}
		out.cols = append(out.cols, &Column{Name: c.Name, Role: c.Role, Values: vals})
		out.index[c.Name] = i
	}
	return out
}

// Distinct returns the distinct display values of a column in first-seen order.
func (t *Table) Distinct(name string) []string {
	c, ok := t.Column(name)
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, v := range c.Values {
		s := v.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Equal reports whether both tables have the same columns, roles and values.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for i, c := range t.cols {
		oc := o.cols[i]
		if c.Name != oc.Name || c.Role != oc.Role {
			return false
		}
		for r := range c.Values {
			if !c.Values[r].Equal(oc.Values[r]) {
				return false
			}
		}
	}
	return true
}

// Records renders the table as a header plus string records.
func (t *Table) Records() (header []string, records [][]string) {
	header = t.Names()
	records = make([][]string, t.rows)
	for i := 0; i < t.rows; i++ {
		rec := make([]string, len(t.cols))
		for j, c := range t.cols {
			rec[j] = c.Values[i].String()
		}
		records[i] = rec
	}
	return header, records
}
