package metadata

// TableBuilder builds Table objects for tests and for small in-process
// catalogs, without requiring a full DDL round-trip.
// 用于构建 Table 对象的构建器
type TableBuilder struct {
	table *Table
}

// NewTableBuilder creates a new TableBuilder for db.name.
func NewTableBuilder(db, name string) *TableBuilder {
	return &TableBuilder{table: NewTable(db, name)}
}

// Column adds a column to the table under construction.
func (b *TableBuilder) Column(name string, dataType DataType) *TableBuilder {
	b.table.AddColumn(Column{Name: name, DataType: dataType})
	return b
}

// Index adds a secondary index: keys is the ordered key column list,
// tsPos is the index of the time-sort column within the table schema.
func (b *TableBuilder) Index(name string, tsPos int, keys ...string) *TableBuilder {
	b.table.AddIndex(IndexSt{Name: name, Keys: keys, TsPos: tsPos})
	return b
}

// Build validates and returns the constructed table.
func (b *TableBuilder) Build() (*Table, error) {
	if err := b.table.Validate(); err != nil {
		return nil, err
	}
	return b.table, nil
}

// MustBuild is Build but panics on error; convenient for table-driven
// tests that construct fixtures inline.
func (b *TableBuilder) MustBuild() *Table {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
