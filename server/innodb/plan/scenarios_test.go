package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// countKind walks the DAG once per distinct node and counts how many
// distinct nodes have the given kind.
func countKind(root PhysicalPlan, kind PhysicalKind) int {
	seen := make(map[PhysicalPlan]bool)
	var walk func(n PhysicalPlan) int
	walk = func(n PhysicalPlan) int {
		if seen[n] {
			return 0
		}
		seen[n] = true
		total := 0
		if n.Kind() == kind {
			total++
		}
		for _, c := range n.Children() {
			total += walk(c)
		}
		return total
	}
	return walk(root)
}

func windowOverOrders() *ProjectNode {
	return NewWindowNode(
		NewTableNode("db1", "orders"),
		[]Expr{ColumnRef{Column: "user_id"}},
		[]OrderKey{{Expr: ColumnRef{Column: "ts"}, Ascending: true}},
		-3, 0,
		[]ProjectListItem{{Expr: Call{Name: "sum", Args: []Expr{ColumnRef{Column: "amount"}}}, Alias: "total"}},
	)
}

func TestWindowAggregationFoldsIntoIndexScan(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	phys, arena, err := tr.TransformBatch(windowOverOrders())
	require.NoError(t, err)

	agg, ok := phys.(*WindowAggregationOp)
	require.True(t, ok)
	require.Equal(t, int64(-3), agg.StartOffset)
	require.Equal(t, int64(0), agg.EndOffset)
	require.Equal(t, PhysicalSort, phys.Children()[0].Kind())
	require.Equal(t, PhysicalGroup, phys.Children()[0].Children()[0].Kind())

	pipe := NewPipeline()
	require.NoError(t, pipe.AddDefaultPasses(cat))
	optimized, changed, err := pipe.Run(arena, phys)
	require.NoError(t, err)
	require.True(t, changed)

	require.Equal(t, PhysicalWindowAggregation, optimized.Kind())
	idxScan, ok := optimized.Children()[0].(*ScanIndexOp)
	require.True(t, ok)
	require.Equal(t, "idx_user_ts", idxScan.Index)
	require.Zero(t, countKind(optimized, PhysicalGroup))
	require.Zero(t, countKind(optimized, PhysicalSort))
}

func TestRequestModeWindowHasExactlyOneFetchRequest(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	phys, _, err := tr.TransformRequest(windowOverOrders())
	require.NoError(t, err)
	require.Equal(t, 1, countKind(phys, PhysicalFetchRequest))
	require.Zero(t, countKind(phys, PhysicalScanTable))
}

func TestGroupedLeftJoinPushesDownAndFoldsIntoIndexScan(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	leftJoin := NewLeftJoinNode(
		NewTableNode("db1", "orders"),
		NewTableNode("db1", "users"),
		[]JoinKey{{Left: ColumnRef{Column: "user_id"}, Right: ColumnRef{Column: "user_id"}}},
	)
	root := NewProjectNode(
		NewGroupNode(leftJoin, []Expr{ColumnRef{Column: "user_id"}}),
		[]ProjectListItem{{Expr: Call{Name: "sum", Args: []Expr{ColumnRef{Column: "amount"}}}, Alias: "total"}},
	)
	phys, arena, err := tr.TransformBatch(root)
	require.NoError(t, err)
	require.Equal(t, PhysicalAggregation, phys.Kind())
	require.Equal(t, PhysicalGroup, phys.Children()[0].Kind())
	require.Equal(t, PhysicalLeftJoin, phys.Children()[0].Children()[0].Kind())

	pipe := NewPipeline()
	require.NoError(t, pipe.AddDefaultPasses(cat))
	optimized, changed, err := pipe.Run(arena, phys)
	require.NoError(t, err)
	require.True(t, changed)

	require.Equal(t, PhysicalAggregation, optimized.Kind())
	lj, ok := optimized.Children()[0].(*LeftJoinOp)
	require.True(t, ok)
	require.Len(t, lj.Condition, 1)
	require.Equal(t, PhysicalScanIndex, lj.Children()[0].Kind())
	require.Equal(t, PhysicalScanTable, lj.Children()[1].Kind())
}

func TestThreeListProjectChainsTwoConcatJoins(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	table := NewTableNode("db1", "orders")
	lists := []ProjectList{
		{Items: []ProjectListItem{{Expr: ColumnRef{Column: "order_id"}, Alias: "order_id"}}},
		{Items: []ProjectListItem{{Expr: ColumnRef{Column: "user_id"}, Alias: "user_id"}}},
		{Items: []ProjectListItem{{Expr: ColumnRef{Column: "amount"}, Alias: "amount"}}},
	}
	root := NewReorderedMultiListProjectNode(table, lists, []PosRef{
		{ListIndex: 2, Position: 0},
		{ListIndex: 0, Position: 0},
		{ListIndex: 1, Position: 0},
	})
	phys, _, err := tr.TransformBatch(root)
	require.NoError(t, err)

	require.Equal(t, PhysicalRowProject, phys.Kind())
	require.Equal(t, []string{"amount", "order_id", "user_id"}, phys.OutputSchema().ColumnNames())
	require.Equal(t, 2, countKind(phys, PhysicalConcatJoin))
	require.Equal(t, 1, countKind(phys, PhysicalScanTable))
}

func TestMultiListProjectExpandsBareStarAgainstConcatSchema(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	table := NewTableNode("db1", "orders")
	lists := []ProjectList{
		{Items: []ProjectListItem{{Expr: Star{}}}},
		{Items: []ProjectListItem{{Expr: ColumnRef{Column: "amount"}, Alias: "total"}}},
	}
	phys, _, err := tr.TransformBatch(NewMultiListProjectNode(table, lists))
	require.NoError(t, err)

	rowProj, ok := phys.(*RowProjectOp)
	require.True(t, ok)
	require.Equal(t, PhysicalConcatJoin, phys.Children()[0].Kind())

	// The bare `*` entry expands against the concat-joined chain's full
	// schema (the four orders columns plus list 1's "total"), followed by
	// the mapping's own entry for "total".
	require.Equal(t,
		[]string{"order_id", "user_id", "amount", "ts", "total", "total"},
		phys.OutputSchema().ColumnNames())
	require.Len(t, rowProj.PosMapping, 6)
	for i := 0; i < 4; i++ {
		require.Equal(t, 0, rowProj.PosMapping[i].SourceIdx)
	}
	require.Equal(t, 1, rowProj.PosMapping[4].SourceIdx)
	require.Equal(t, PosMapping{SourceIdx: 1, SourceColumn: "total"}, rowProj.PosMapping[5])
}

func TestDefaultPassesAreIdempotent(t *testing.T) {
	cat := testCatalog()
	tr := NewTransformer(cat, "db1", nil)

	phys, arena, err := tr.TransformBatch(windowOverOrders())
	require.NoError(t, err)

	pipe := NewPipeline()
	require.NoError(t, pipe.AddDefaultPasses(cat))
	once, _, err := pipe.Run(arena, phys)
	require.NoError(t, err)
	twice, changed, err := pipe.Run(arena, once)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, Explain(once), Explain(twice))
}

func TestExplainIsStableAcrossCompilations(t *testing.T) {
	cat := testCatalog()

	first, _, err := NewTransformer(cat, "db1", nil).TransformBatch(windowOverOrders())
	require.NoError(t, err)
	second, _, err := NewTransformer(cat, "db1", nil).TransformBatch(windowOverOrders())
	require.NoError(t, err)
	require.Equal(t, Explain(first), Explain(second))
}
