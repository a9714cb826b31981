package plan

import (
	"github.com/juju/errors"

	"github.com/fesql/planner/logger"
	"github.com/fesql/planner/server/innodb/metadata"
)

// Transformer lowers a logical plan tree into a physical operator DAG.
// One Transformer is good for one TransformBatch/TransformRequest call;
// its Arena accumulates every physical node the call produces.
type Transformer struct {
	cat      metadata.Catalog
	db       string
	compiler ProjectListCompiler
	arena    *Arena
	request  bool
}

// NewTransformer builds a Transformer resolving unqualified table names
// against db by default, compiling project lists with compiler. Pass nil
// for compiler to use NewDefaultProjectListCompiler.
func NewTransformer(cat metadata.Catalog, db string, compiler ProjectListCompiler) *Transformer {
	if compiler == nil {
		compiler = NewDefaultProjectListCompiler()
	}
	return &Transformer{cat: cat, db: db, compiler: compiler}
}

// TransformBatch lowers root in batch mode: no primary-path validation
// runs and every table leaf becomes a ScanTable. The returned Arena owns
// every physical node the call produced.
func (t *Transformer) TransformBatch(root LogicalPlan) (PhysicalPlan, *Arena, error) {
	phys, err := t.run(root, false)
	if err != nil {
		return nil, nil, err
	}
	return phys, t.arena, nil
}

// TransformRequest lowers root in request mode: ValidatePrimaryPath first
// resolves and marks the unique base table carrying the request row, and
// that table lowers to a FetchRequest instead of a ScanTable. Every other
// leaf remains a ScanTable.
func (t *Transformer) TransformRequest(root LogicalPlan) (PhysicalPlan, *Arena, error) {
	primary, err := ValidatePrimaryPath(root)
	if err != nil {
		logger.Warnf("transform: primary path validation failed: %v", err)
		return nil, nil, err
	}
	if primary == nil {
		return nil, nil, NewPlanError("request mode requires a base table on the primary path, found none")
	}
	phys, err := t.run(root, true)
	if err != nil {
		return nil, nil, err
	}
	return phys, t.arena, nil
}

// Arena returns the Arena that owns every physical node produced by the
// most recent TransformBatch/TransformRequest call.
func (t *Transformer) Arena() *Arena {
	return t.arena
}

func (t *Transformer) run(root LogicalPlan, request bool) (PhysicalPlan, error) {
	if root == nil {
		return nil, NewPlanError("logical plan root is nil")
	}
	logger.Debugf("transform: request=%v root=%s", request, root.String())
	if _, err := BuildLogicalGraph(root); err != nil {
		logger.Warnf("transform: logical graph build failed: %v", err)
		return nil, err
	}
	t.arena = NewArena()
	t.request = request
	phys, err := t.transform(root)
	if err != nil {
		logger.Warnf("transform: lowering failed: %v", err)
		return nil, err
	}
	logger.Debugf("transform: produced %d physical nodes", t.arena.Size())
	return phys, nil
}

// transform lowers a single logical node, memoizing by logical identity so
// a node shared by two parents is only lowered once.
func (t *Transformer) transform(n LogicalPlan) (PhysicalPlan, error) {
	if phys, ok := t.arena.Lookup(n); ok {
		return phys, nil
	}
	var (
		phys PhysicalPlan
		err  error
	)
	switch node := n.(type) {
	case *QueryNode:
		phys, err = t.transform(node.Children()[0])
	case *TableNode:
		phys, err = t.transformTable(node)
	case *RequestNode:
		phys, err = t.transformRequestNode(node)
	case *ProjectNode:
		phys, err = t.transformProject(node)
	case *RenameNode:
		phys, err = t.transformRename(node)
	case *JoinNode:
		phys, err = t.transformJoin(node)
	case *LeftJoinNode:
		phys, err = t.transformLeftJoin(node)
	case *UnionNode:
		phys, err = t.transformUnion(node)
	case *GroupNode:
		phys, err = t.transformGroup(node)
	case *SortNode:
		phys, err = t.transformSort(node)
	case *FilterNode:
		phys, err = t.transformFilter(node)
	case *LimitNode:
		phys, err = t.transformLimit(node)
	case *DistinctNode:
		phys, err = t.transformDistinct(node)
	default:
		return nil, NewPlanError("unrecognized logical node kind %T", n)
	}
	if err != nil {
		return nil, err
	}
	t.arena.Memoize(n, phys)
	return phys, nil
}

func (t *Transformer) transformTable(node *TableNode) (PhysicalPlan, error) {
	db := node.Db
	if db == "" {
		db = t.db
	}
	tbl, ok := t.cat.GetTable(db, node.Table)
	if !ok {
		return nil, NewPlanError("unknown table %s.%s", db, node.Table)
	}
	if t.request && node.IsPrimary {
		return t.arena.Register(newFetchRequestOp(db, node.Table, tbl.Schema())), nil
	}
	return t.arena.Register(newScanTableOp(db, node.Table, tbl.Schema())), nil
}

func (t *Transformer) transformRequestNode(node *RequestNode) (PhysicalPlan, error) {
	return t.arena.Register(newFetchRequestOp(node.Db, node.Table, node.Schema)), nil
}

func (t *Transformer) transformRename(node *RenameNode) (PhysicalPlan, error) {
	child, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newRenameOp(child, node.Alias, child.OutputSchema())), nil
}

func (t *Transformer) transformUnion(node *UnionNode) (PhysicalPlan, error) {
	left, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	right, err := t.transform(node.Children()[1])
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newUnionOp(left, right, node.IsAll, left.OutputSchema())), nil
}

func (t *Transformer) transformJoin(node *JoinNode) (PhysicalPlan, error) {
	left, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	right, err := t.transform(node.Children()[1])
	if err != nil {
		return nil, err
	}
	schema := concatSchema(left.OutputSchema(), right.OutputSchema())
	return t.arena.Register(newJoinOp(left, right, node.Condition, schema)), nil
}

func (t *Transformer) transformLeftJoin(node *LeftJoinNode) (PhysicalPlan, error) {
	left, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	right, err := t.transform(node.Children()[1])
	if err != nil {
		return nil, err
	}
	schema := concatSchema(left.OutputSchema(), right.OutputSchema())
	return t.arena.Register(newLeftJoinOp(left, right, node.Condition, schema)), nil
}

func (t *Transformer) transformGroup(node *GroupNode) (PhysicalPlan, error) {
	child, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newGroupOp(child, node.Keys, child.OutputSchema())), nil
}

func (t *Transformer) transformSort(node *SortNode) (PhysicalPlan, error) {
	child, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newSortOp(child, node.Order, child.OutputSchema())), nil
}

func (t *Transformer) transformFilter(node *FilterNode) (PhysicalPlan, error) {
	child, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newFilterOp(child, node.Condition, child.OutputSchema())), nil
}

func (t *Transformer) transformLimit(node *LimitNode) (PhysicalPlan, error) {
	child, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newLimitOp(child, node.Count, child.OutputSchema())), nil
}

func (t *Transformer) transformDistinct(node *DistinctNode) (PhysicalPlan, error) {
	child, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newDistinctOp(child, child.OutputSchema())), nil
}

// transformProject lowers a ProjectNode's k project-lists into a physical
// operator, the project-list fan-out / concat-join construction. Each
// project-list builds one physical operator over the shared child. With
// k==1 that single operator is the result; otherwise the per-list
// operators are chained through Concat Joins and a final RowProject on
// top reassembles the public output order from pos_mapping.
func (t *Transformer) transformProject(node *ProjectNode) (PhysicalPlan, error) {
	child, err := t.transform(node.Children()[0])
	if err != nil {
		return nil, errors.Annotatef(err, "lowering project over %s", node.Children()[0].String())
	}

	if len(node.Lists) == 1 && node.Lists[0].Window == nil && isBarePassthroughStar(node.Lists[0].Items) {
		return child, nil
	}

	listOps := make([]PhysicalPlan, len(node.Lists))
	for i, list := range node.Lists {
		op, err := t.buildProjectListOp(child, list)
		if err != nil {
			return nil, err
		}
		listOps[i] = op
	}

	if len(listOps) == 1 {
		return listOps[0], nil
	}

	chain := listOps[0]
	for i := 1; i < len(listOps); i++ {
		chain = t.arena.Register(newConcatJoinOp(chain, listOps[i], concatSchema(chain.OutputSchema(), listOps[i].OutputSchema())))
	}
	return t.buildFinalRowProject(chain, listOps, node)
}

// buildProjectListOp lowers a single project-list over the shared child:
//   - a windowed list inserts Group(child, w.keys) and Sort(., w.orders)
//     ahead of a WindowAggregation, each only when the corresponding key
//     list is non-empty;
//   - a list over an already-grouped child emits a plain Aggregation;
//   - otherwise it is a row projection.
func (t *Transformer) buildProjectListOp(child PhysicalPlan, list ProjectList) (PhysicalPlan, error) {
	if list.IsWindowAgg && list.Window != nil {
		cur := child
		if len(list.Window.PartitionBy) > 0 {
			cur = t.arena.Register(newGroupOp(cur, list.Window.PartitionBy, cur.OutputSchema()))
		}
		if len(list.Window.OrderBy) > 0 {
			cur = t.arena.Register(newSortOp(cur, list.Window.OrderBy, cur.OutputSchema()))
		}
		sources := []metadata.Schema{cur.OutputSchema()}
		items, err := t.resolveItems(list.Items, sources)
		if err != nil {
			return nil, err
		}
		_, schema, err := t.compiler.Compile(items, sources, false)
		if err != nil {
			return nil, err
		}
		return t.arena.Register(newWindowAggregationOp(cur, list.Window.PartitionBy, list.Window.OrderBy, list.Window.StartOffset, list.Window.EndOffset, items, schema)), nil
	}

	if _, ok := child.(*GroupOp); ok {
		sources := []metadata.Schema{child.OutputSchema()}
		items, err := t.resolveItems(list.Items, sources)
		if err != nil {
			return nil, err
		}
		_, schema, err := t.compiler.Compile(items, sources, false)
		if err != nil {
			return nil, err
		}
		return t.arena.Register(newAggregationOp(child, items, schema)), nil
	}

	return t.buildRowProjection(child, list.Items)
}

// buildRowProjection builds a row-mode projection: a bare single `*` over
// child is skipped entirely; otherwise any `*` is expanded against the
// child's output schema and a SimpleProject is built.
func (t *Transformer) buildRowProjection(child PhysicalPlan, rawItems []ProjectListItem) (PhysicalPlan, error) {
	if isBarePassthroughStar(rawItems) {
		return child, nil
	}
	sources := []metadata.Schema{child.OutputSchema()}
	items, err := t.resolveItems(rawItems, sources)
	if err != nil {
		return nil, err
	}
	_, schema, err := t.compiler.Compile(items, sources, true)
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newSimpleProjectOp(child, items, schema)), nil
}

// buildFinalRowProject materializes the public output order of a
// multi-project-list Project according to pos_mapping: for each
// (list_index, position) pair it emits a column reference into the
// concat-joined chain's corresponding source column. A pair whose
// underlying project is a `*` expression with empty children instead
// expands against the chain's full output schema, one explicit column
// reference per column.
func (t *Transformer) buildFinalRowProject(chain PhysicalPlan, listOps []PhysicalPlan, node *ProjectNode) (PhysicalPlan, error) {
	var items []ProjectListItem
	var mapping []PosMapping
	for _, ref := range node.PosMapping {
		if ref.ListIndex < 0 || ref.ListIndex >= len(listOps) {
			return nil, NewPlanError("pos_mapping references unknown list %d", ref.ListIndex)
		}
		if isBareStarAt(node.Lists[ref.ListIndex], ref.Position) {
			for pos, col := range chain.OutputSchema() {
				items = append(items, ProjectListItem{Expr: ColumnRef{Column: col.Name}, Alias: col.Name})
				mapping = append(mapping, chainSource(listOps, pos))
			}
			continue
		}
		srcSchema := listOps[ref.ListIndex].OutputSchema()
		if ref.Position < 0 || ref.Position >= len(srcSchema) {
			return nil, NewPlanError("pos_mapping references out-of-range position %d in list %d", ref.Position, ref.ListIndex)
		}
		col := srcSchema[ref.Position]
		items = append(items, ProjectListItem{Expr: ColumnRef{Column: col.Name}, Alias: col.Name})
		mapping = append(mapping, PosMapping{SourceIdx: ref.ListIndex, SourceColumn: col.Name})
	}
	_, schema, err := t.compiler.Compile(items, []metadata.Schema{chain.OutputSchema()}, true)
	if err != nil {
		return nil, err
	}
	return t.arena.Register(newRowProjectOp(chain, mapping, schema)), nil
}

// isBareStarAt reports whether the raw project item at pos in list is an
// un-expanded `*` (a Star whose Children are still empty).
func isBareStarAt(list ProjectList, pos int) bool {
	if pos < 0 || pos >= len(list.Items) {
		return false
	}
	star, ok := list.Items[pos].Expr.(Star)
	return ok && len(star.Children) == 0
}

// chainSource maps a column position of the concat-joined chain back to
// the per-list operator that produced it.
func chainSource(listOps []PhysicalPlan, pos int) PosMapping {
	for i, op := range listOps {
		schema := op.OutputSchema()
		if pos < len(schema) {
			return PosMapping{SourceIdx: i, SourceColumn: schema[pos].Name}
		}
		pos -= len(schema)
	}
	return PosMapping{}
}

func isBarePassthroughStar(items []ProjectListItem) bool {
	if len(items) != 1 {
		return false
	}
	star, ok := items[0].Expr.(Star)
	return ok && star.Relation == "" && items[0].Alias == ""
}

// resolveItems expands any Star expressions against the given source
// schemas, concatenated in order, producing one ColumnRef item per column.
func (t *Transformer) resolveItems(items []ProjectListItem, sources []metadata.Schema) ([]ProjectListItem, error) {
	var resolved []ProjectListItem
	for _, item := range items {
		star, ok := item.Expr.(Star)
		if !ok {
			resolved = append(resolved, item)
			continue
		}
		expanded, err := expandStar(star, sources)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, expanded...)
	}
	return resolved, nil
}

func expandStar(star Star, sources []metadata.Schema) ([]ProjectListItem, error) {
	var items []ProjectListItem
	for _, schema := range sources {
		for _, col := range schema {
			items = append(items, ProjectListItem{Expr: ColumnRef{Column: col.Name}, Alias: col.Name})
		}
	}
	if len(items) == 0 {
		return nil, NewPlanError("star expansion produced no columns")
	}
	return items, nil
}

func concatSchema(left, right metadata.Schema) metadata.Schema {
	schema := make(metadata.Schema, 0, len(left)+len(right))
	schema = append(schema, left...)
	schema = append(schema, right...)
	return schema
}
