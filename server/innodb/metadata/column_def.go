package metadata

import (
	"fmt"
	"strings"
)

// DataType is the SQL data type of a column.
type DataType string

// Supported SQL data types. The planner only needs to distinguish these
// for schema bookkeeping; value coercion is the codegen/runtime module's
// job.
const (
	TypeTinyInt   DataType = "TINYINT"
	TypeSmallInt  DataType = "SMALLINT"
	TypeInt       DataType = "INT"
	TypeBigInt    DataType = "BIGINT"
	TypeFloat     DataType = "FLOAT"
	TypeDouble    DataType = "DOUBLE"
	TypeBool      DataType = "BOOL"
	TypeDate      DataType = "DATE"
	TypeTimestamp DataType = "TIMESTAMP"
	TypeString    DataType = "STRING"
)

// Column is a single column definition: a name plus its declared type.
// 表示数据库中的列
type Column struct {
	Name     string
	DataType DataType
}

// Validate checks that the column definition is well-formed.
func (c *Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	switch c.DataType {
	case TypeTinyInt, TypeSmallInt, TypeInt, TypeBigInt, TypeFloat,
		TypeDouble, TypeBool, TypeDate, TypeTimestamp, TypeString:
	default:
		return fmt.Errorf("column %s: unknown data type %s", c.Name, c.DataType)
	}
	return nil
}

// IsNumeric returns true if the column holds a numeric data type.
func (c *Column) IsNumeric() bool {
	switch c.DataType {
	case TypeTinyInt, TypeSmallInt, TypeInt, TypeBigInt, TypeFloat, TypeDouble:
		return true
	default:
		return false
	}
}

// IndexSt is a declared secondary index on a table: an ordered key column
// list plus the position of the time-sort column within the table schema.
// 表示数据库中的索引
type IndexSt struct {
	Name   string
	Keys   []string
	TsPos  int
	Unique bool
}

// String renders the index the way an EXPLAIN dump wants to see it.
func (idx IndexSt) String() string {
	return fmt.Sprintf("%s(%s)", idx.Name, strings.Join(idx.Keys, ","))
}

// IndexHint maps an index name to its declared structure. It is the
// catalog's read-only view of a table's secondary indexes.
type IndexHint map[string]IndexSt
