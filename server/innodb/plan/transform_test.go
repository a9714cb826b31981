package plan

import (
	"testing"

	"github.com/fesql/planner/server/innodb/metadata"
	"github.com/stretchr/testify/require"
)

func testCatalog() metadata.Catalog {
	orders := metadata.NewTableBuilder("db1", "orders").
		Column("order_id", metadata.TypeBigInt).
		Column("user_id", metadata.TypeBigInt).
		Column("amount", metadata.TypeDouble).
		Column("ts", metadata.TypeTimestamp).
		Index("idx_user_ts", 3, "user_id").
		MustBuild()
	users := metadata.NewTableBuilder("db1", "users").
		Column("user_id", metadata.TypeBigInt).
		Column("name", metadata.TypeString).
		MustBuild()
	return metadata.NewMemCatalog(orders, users)
}

func TestTransformBatchScanFilterLimit(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	root := NewLimitNode(
		NewFilterNode(NewTableNode("db1", "orders"), ColumnRef{Column: "amount"}),
		10,
	)
	phys, arena, err := tr.TransformBatch(root)
	require.NoError(t, err)
	require.Equal(t, PhysicalLimit, phys.Kind())
	require.Equal(t, PhysicalFilter, phys.Children()[0].Kind())
	require.Equal(t, PhysicalScanTable, phys.Children()[0].Children()[0].Kind())
	require.True(t, arena.Size() >= 3)
}

func TestTransformRequestModeUsesFetchRequest(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	phys, _, err := tr.TransformRequest(NewTableNode("db1", "orders"))
	require.NoError(t, err)
	require.Equal(t, PhysicalFetchRequest, phys.Kind())
}

func TestTransformRequestModeRejectsJoinOfDistinctTables(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	root := NewJoinNode(
		NewTableNode("db1", "orders"),
		NewTableNode("db1", "users"),
		[]JoinKey{{Left: ColumnRef{Column: "user_id"}, Right: ColumnRef{Column: "user_id"}}},
	)
	_, _, err := tr.TransformRequest(root)
	require.Error(t, err)
	require.Equal(t, CodePlanError, StatusCode(err))
}

func TestTransformRequestModeSharedTableFetchesOnce(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	shared := NewTableNode("db1", "orders")
	root := NewJoinNode(shared, NewFilterNode(shared, ColumnRef{Column: "amount"}), nil)

	phys, _, err := tr.TransformRequest(root)
	require.NoError(t, err)
	require.Equal(t, PhysicalFetchRequest, phys.Children()[0].Kind())
	require.Same(t, phys.Children()[0], phys.Children()[1].Children()[0])
}

func TestTransformProjectBareStarSkipsProjection(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	root := NewProjectNode(NewTableNode("db1", "orders"), []ProjectListItem{{Expr: Star{}}})
	phys, _, err := tr.TransformBatch(root)
	require.NoError(t, err)
	require.Equal(t, PhysicalScanTable, phys.Kind())
}

func TestTransformProjectSingleSourceBuildsSimpleProject(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	root := NewProjectNode(NewTableNode("db1", "orders"), []ProjectListItem{
		{Expr: ColumnRef{Column: "user_id"}, Alias: "user_id"},
		{Expr: ColumnRef{Column: "amount"}, Alias: "amount"},
	})
	phys, _, err := tr.TransformBatch(root)
	require.NoError(t, err)
	require.Equal(t, PhysicalSimpleProject, phys.Kind())
	require.Equal(t, []string{"user_id", "amount"}, phys.OutputSchema().ColumnNames())
}

func TestTransformProjectOverJoinBuildsSimpleProject(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	join := NewJoinNode(
		NewTableNode("db1", "orders"),
		NewTableNode("db1", "users"),
		[]JoinKey{{Left: ColumnRef{Column: "user_id"}, Right: ColumnRef{Column: "user_id"}}},
	)
	root := NewProjectNode(join, []ProjectListItem{
		{Expr: ColumnRef{Column: "order_id"}, Alias: "order_id"},
		{Expr: ColumnRef{Column: "name"}, Alias: "name"},
	})
	phys, _, err := tr.TransformBatch(root)
	require.NoError(t, err)
	require.Equal(t, PhysicalSimpleProject, phys.Kind())
	require.Equal(t, PhysicalJoin, phys.Children()[0].Kind())
}

func TestTransformMultiListProjectBuildsConcatJoinAndRowProject(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	table := NewTableNode("db1", "orders")
	lists := []ProjectList{
		{Items: []ProjectListItem{{Expr: ColumnRef{Column: "user_id"}, Alias: "user_id"}}},
		{Items: []ProjectListItem{{Expr: ColumnRef{Column: "amount"}, Alias: "amount"}}},
	}
	root := NewReorderedMultiListProjectNode(table, lists, []PosRef{
		{ListIndex: 1, Position: 0},
		{ListIndex: 0, Position: 0},
	})
	phys, _, err := tr.TransformBatch(root)
	require.NoError(t, err)
	require.Equal(t, PhysicalRowProject, phys.Kind())

	rowProj := phys.(*RowProjectOp)
	require.Equal(t, "amount", rowProj.PosMapping[0].SourceColumn)
	require.Equal(t, "user_id", rowProj.PosMapping[1].SourceColumn)
	require.Equal(t, PhysicalConcatJoin, phys.Children()[0].Kind())
}

func TestTransformWindowInsertsGroupThenSort(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	root := NewWindowNode(
		NewTableNode("db1", "orders"),
		[]Expr{ColumnRef{Column: "user_id"}},
		[]OrderKey{{Expr: ColumnRef{Column: "ts"}, Ascending: true}},
		-100, 0,
		[]ProjectListItem{{Expr: Call{Name: "sum", Args: []Expr{ColumnRef{Column: "amount"}}}, Alias: "total"}},
	)
	phys, _, err := tr.TransformBatch(root)
	require.NoError(t, err)
	require.Equal(t, PhysicalWindowAggregation, phys.Kind())
	sort := phys.Children()[0]
	require.Equal(t, PhysicalSort, sort.Kind())
	require.Equal(t, PhysicalGroup, sort.Children()[0].Kind())
	require.Equal(t, PhysicalScanTable, sort.Children()[0].Children()[0].Kind())
}

func TestTransformUnknownTableIsPlanError(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	_, _, err := tr.TransformBatch(NewTableNode("db1", "missing"))
	require.Error(t, err)
	require.Equal(t, CodePlanError, StatusCode(err))
}

func TestTransformSharedSubtreeIsMemoized(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	shared := NewTableNode("db1", "orders")
	root := NewJoinNode(shared, NewFilterNode(shared, ColumnRef{Column: "amount"}), nil)

	phys, arena, err := tr.TransformBatch(root)
	require.NoError(t, err)
	require.Same(t, phys.Children()[0], phys.Children()[1].Children()[0])
	require.Equal(t, 3, arena.Size())
}
