package metadata

import (
	"fmt"
	"strings"
)

// Schema is an ordered sequence of (name, type) pairs: a physical node's
// output schema, or a table's column list.
// 表示数据库中的模式（schema）
type Schema []Column

// ColumnNames returns the ordered column names, used by index-key matching
// and by Explain.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Contains reports whether name appears in the schema (case-sensitive;
// the upstream planner is expected to have already resolved case).
func (s Schema) Contains(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = fmt.Sprintf("%s:%s", c.Name, c.DataType)
	}
	return strings.Join(parts, ", ")
}

// Table represents a database table: its fully-qualified name, its ordered
// schema, and its declared secondary indexes.
// 表示数据库中的表
type Table struct {
	Db      string
	Name    string
	Columns Schema
	Indexes IndexHint
}

// NewTable creates an empty table definition.
func NewTable(db, name string) *Table {
	return &Table{
		Db:      db,
		Name:    name,
		Indexes: make(IndexHint),
	}
}

// FQN is the fully-qualified table name used in log lines and Explain.
func (t *Table) FQN() string {
	return t.Db + "." + t.Name
}

// Schema returns the table's ordered column schema.
func (t *Table) Schema() Schema {
	return t.Columns
}

// Index returns the table's declared secondary indexes.
func (t *Table) Index() IndexHint {
	return t.Indexes
}

// AddColumn appends a column to the table's schema.
func (t *Table) AddColumn(col Column) *Table {
	t.Columns = append(t.Columns, col)
	return t
}

// AddIndex registers a secondary index on the table.
func (t *Table) AddIndex(idx IndexSt) *Table {
	if t.Indexes == nil {
		t.Indexes = make(IndexHint)
	}
	t.Indexes[idx.Name] = idx
	return t
}

// Validate checks the table definition is internally consistent: no
// duplicate column names, and every index key references a real column.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if seen[col.Name] {
			return fmt.Errorf("duplicate column name: %s", col.Name)
		}
		seen[col.Name] = true
		if err := col.Validate(); err != nil {
			return fmt.Errorf("invalid column %s: %w", col.Name, err)
		}
	}
	for _, idx := range t.Indexes {
		for _, key := range idx.Keys {
			if !t.Columns.Contains(key) {
				return fmt.Errorf("index %s references unknown column %s", idx.Name, key)
			}
		}
		if idx.TsPos < 0 || idx.TsPos >= len(t.Columns) {
			return fmt.Errorf("index %s: ts_pos %d out of range", idx.Name, idx.TsPos)
		}
	}
	return nil
}
