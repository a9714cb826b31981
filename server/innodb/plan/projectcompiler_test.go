package plan

import (
	"testing"

	"github.com/fesql/planner/server/innodb/metadata"
	"github.com/stretchr/testify/require"
)

func TestDefaultProjectListCompilerAcceptsResolvableColumns(t *testing.T) {
	compiler := NewDefaultProjectListCompiler()
	schema := metadata.Schema{{Name: "a", DataType: metadata.TypeInt}, {Name: "b", DataType: metadata.TypeInt}}

	fn, out, err := compiler.Compile([]ProjectListItem{{Expr: ColumnRef{Column: "a"}, Alias: "a"}}, []metadata.Schema{schema}, true)
	require.NoError(t, err)
	require.NotEmpty(t, fn)
	require.Equal(t, []string{"a"}, out.ColumnNames())
}

func TestDefaultProjectListCompilerMintsDistinctNamesPerCall(t *testing.T) {
	compiler := NewDefaultProjectListCompiler()
	schema := metadata.Schema{{Name: "a", DataType: metadata.TypeInt}}

	fn1, _, err := compiler.Compile([]ProjectListItem{{Expr: ColumnRef{Column: "a"}}}, []metadata.Schema{schema}, true)
	require.NoError(t, err)
	fn2, _, err := compiler.Compile([]ProjectListItem{{Expr: ColumnRef{Column: "a"}}}, []metadata.Schema{schema}, true)
	require.NoError(t, err)
	require.NotEqual(t, fn1, fn2)
}

func TestDefaultProjectListCompilerRejectsUnknownColumn(t *testing.T) {
	compiler := NewDefaultProjectListCompiler()
	schema := metadata.Schema{{Name: "a", DataType: metadata.TypeInt}}

	_, _, err := compiler.Compile([]ProjectListItem{{Expr: ColumnRef{Column: "missing"}}}, []metadata.Schema{schema}, true)
	require.Error(t, err)
	require.Equal(t, CodeCodegenError, StatusCode(err))
}

func TestDefaultProjectListCompilerRejectsAmbiguousColumn(t *testing.T) {
	compiler := NewDefaultProjectListCompiler()
	left := metadata.Schema{{Name: "id", DataType: metadata.TypeInt}}
	right := metadata.Schema{{Name: "id", DataType: metadata.TypeInt}}

	_, _, err := compiler.Compile([]ProjectListItem{{Expr: ColumnRef{Column: "id"}}}, []metadata.Schema{left, right}, true)
	require.Error(t, err)
}

func TestDefaultProjectListCompilerAcceptsCallOverColumn(t *testing.T) {
	compiler := NewDefaultProjectListCompiler()
	schema := metadata.Schema{{Name: "amount", DataType: metadata.TypeDouble}}

	_, _, err := compiler.Compile([]ProjectListItem{{Expr: Call{Name: "sum", Args: []Expr{ColumnRef{Column: "amount"}}}}}, []metadata.Schema{schema}, false)
	require.NoError(t, err)
}
