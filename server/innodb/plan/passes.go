package plan

import "github.com/fesql/planner/server/innodb/metadata"

// Pass is a single bottom-up, cost-free rewrite over a physical plan DAG.
// Passes never consult statistics or a cost model; each one matches a
// structural shape and rewrites it. Failure to match is not an error —
// the pass simply reports no change.
type Pass interface {
	Name() string
	Apply(arena *Arena, root PhysicalPlan) (PhysicalPlan, bool, error)
}

// bottomUpRewrite walks node's children first, then calls rewrite on node
// with its (possibly already-rewritten) children spliced in. It is the
// shared walker every Pass below is built on.
func bottomUpRewrite(arena *Arena, node PhysicalPlan, rewrite func(PhysicalPlan) (PhysicalPlan, bool, error)) (PhysicalPlan, bool, error) {
	changed := false
	children := node.Children()
	if len(children) > 0 {
		newChildren := make([]PhysicalPlan, len(children))
		for i, c := range children {
			nc, ch, err := bottomUpRewrite(arena, c, rewrite)
			if err != nil {
				return nil, false, err
			}
			newChildren[i] = nc
			changed = changed || ch
		}
		if changed {
			node = withChildren(arena, node, newChildren)
		}
	}
	rewritten, ch, err := rewrite(node)
	if err != nil {
		return nil, false, err
	}
	return rewritten, changed || ch, nil
}

// withChildren returns a copy of node with its children replaced, keeping
// every other field, registering the copy in arena as a new node. Only
// node kinds that appear as internal (non-leaf) nodes need an entry here.
func withChildren(arena *Arena, node PhysicalPlan, children []PhysicalPlan) PhysicalPlan {
	switch n := node.(type) {
	case *GroupOp:
		return arena.Register(newGroupOp(children[0], n.Keys, children[0].OutputSchema()))
	case *SortOp:
		return arena.Register(newSortOp(children[0], n.Order, children[0].OutputSchema()))
	case *FilterOp:
		return arena.Register(newFilterOp(children[0], n.Condition, children[0].OutputSchema()))
	case *LimitOp:
		return arena.Register(newLimitOp(children[0], n.Count, children[0].OutputSchema()))
	case *DistinctOp:
		return arena.Register(newDistinctOp(children[0], children[0].OutputSchema()))
	case *SimpleProjectOp:
		return arena.Register(newSimpleProjectOp(children[0], n.Items, n.OutputSchema()))
	case *RowProjectOp:
		return arena.Register(newRowProjectOp(children[0], n.PosMapping, n.OutputSchema()))
	case *WindowAggregationOp:
		return arena.Register(newWindowAggregationOp(children[0], n.PartitionBy, n.OrderBy, n.StartOffset, n.EndOffset, n.Items, n.OutputSchema()))
	case *RenameOp:
		return arena.Register(newRenameOp(children[0], n.Alias, children[0].OutputSchema()))
	case *AggregationOp:
		return arena.Register(newAggregationOp(children[0], n.Items, n.OutputSchema()))
	case *JoinOp:
		return arena.Register(newJoinOp(children[0], children[1], n.Condition, concatSchema(children[0].OutputSchema(), children[1].OutputSchema())))
	case *LeftJoinOp:
		return arena.Register(newLeftJoinOp(children[0], children[1], n.Condition, concatSchema(children[0].OutputSchema(), children[1].OutputSchema())))
	case *ConcatJoinOp:
		return arena.Register(newConcatJoinOp(children[0], children[1], concatSchema(children[0].OutputSchema(), children[1].OutputSchema())))
	case *UnionOp:
		return arena.Register(newUnionOp(children[0], children[1], n.IsAll, children[0].OutputSchema()))
	default:
		return node
	}
}

// GroupByOptimized rewrites Group(ScanTable) into Group(ScanIndex) when
// the table has a secondary index whose key set equals some subset of the
// group keys. The matched keys are dropped from the residual Group; if no
// keys remain, the Group is dropped entirely and the ScanIndex stands
// alone.
type GroupByOptimized struct {
	Catalog metadata.Catalog
}

func (GroupByOptimized) Name() string { return "GroupByOptimized" }

func (p GroupByOptimized) Apply(arena *Arena, root PhysicalPlan) (PhysicalPlan, bool, error) {
	return bottomUpRewrite(arena, root, func(node PhysicalPlan) (PhysicalPlan, bool, error) {
		group, ok := node.(*GroupOp)
		if !ok {
			return node, false, nil
		}
		scan, ok := group.Children()[0].(*ScanTableOp)
		if !ok {
			return node, false, nil
		}
		// Non-column keys (functions, literals) never match an index and
		// always survive into the residual Group verbatim.
		var columnKeys []string
		for _, k := range group.Keys {
			if name, ok := exprColumnName(k); ok {
				columnKeys = append(columnKeys, name)
			}
		}
		if len(columnKeys) == 0 {
			return node, false, nil
		}
		tbl, ok := p.Catalog.GetTable(scan.Db, scan.Table)
		if !ok {
			return node, false, nil
		}
		best, ok := matchBestIndex(columnKeys, tbl.Index())
		if !ok {
			return node, false, nil
		}
		matched := make(map[string]bool, len(best.Keys))
		for _, k := range best.Keys {
			matched[k] = true
		}
		var residual []Expr
		for _, k := range group.Keys {
			if name, ok := exprColumnName(k); ok && matched[name] {
				continue
			}
			residual = append(residual, k)
		}
		tsColumn := ""
		if best.TsPos >= 0 && best.TsPos < len(tbl.Schema()) {
			tsColumn = tbl.Schema()[best.TsPos].Name
		}
		indexScan := arena.Register(newScanIndexOp(scan.Db, scan.Table, best.Name, best.Keys, tsColumn, scan.OutputSchema()))
		if len(residual) == 0 {
			return indexScan, true, nil
		}
		newGroup := arena.Register(newGroupOp(indexScan, residual, indexScan.OutputSchema()))
		return newGroup, true, nil
	})
}

// matchBestIndex selects among indexes whose key set is a subset of
// keyNames (the index's keys equal some subset of the remaining group
// keys) the one with the most keys — the widest match wins, since it
// drops the most columns from the residual Group. Ties break on index
// name for determinism.
func matchBestIndex(keyNames []string, hint metadata.IndexHint) (metadata.IndexSt, bool) {
	set := make(map[string]bool, len(keyNames))
	for _, k := range keyNames {
		set[k] = true
	}
	var (
		best    metadata.IndexSt
		bestSet bool
	)
	for _, idx := range hint {
		if len(idx.Keys) == 0 || !keysSubsetOf(idx.Keys, set) {
			continue
		}
		if !bestSet || len(idx.Keys) > len(best.Keys) || (len(idx.Keys) == len(best.Keys) && idx.Name < best.Name) {
			best = idx
			bestSet = true
		}
	}
	return best, bestSet
}

func keysSubsetOf(keys []string, set map[string]bool) bool {
	for _, k := range keys {
		if !set[k] {
			return false
		}
	}
	return true
}

// SortByOptimized drops the ts-column entry from a Sort's order-by list
// when its child is a ScanIndex already providing that order. If that
// empties the order list entirely, the Sort node is dropped.
type SortByOptimized struct{}

func (SortByOptimized) Name() string { return "SortByOptimized" }

func (SortByOptimized) Apply(arena *Arena, root PhysicalPlan) (PhysicalPlan, bool, error) {
	return bottomUpRewrite(arena, root, func(node PhysicalPlan) (PhysicalPlan, bool, error) {
		sort, ok := node.(*SortOp)
		if !ok {
			return node, false, nil
		}
		idxScan, ok := sort.Children()[0].(*ScanIndexOp)
		if !ok || idxScan.TsColumn == "" {
			return node, false, nil
		}
		tsCol := idxScan.TsColumn
		var remaining []OrderKey
		dropped := false
		for _, o := range sort.Order {
			name, ok := exprColumnName(o.Expr)
			if ok && name == tsCol && !dropped {
				dropped = true
				continue
			}
			remaining = append(remaining, o)
		}
		if !dropped {
			return node, false, nil
		}
		if len(remaining) == 0 {
			return sort.Children()[0], true, nil
		}
		return arena.Register(newSortOp(sort.Children()[0], remaining, sort.Children()[0].OutputSchema())), true, nil
	})
}

// LeftJoinOptimized pushes a Group or Sort down through a LeftJoin when
// every key it references resolves against the join's left side only: a
// left join preserves every left row, so a grouping/ordering that never
// looks at the right side commutes with it. The join type and condition
// are preserved unchanged.
type LeftJoinOptimized struct{}

func (LeftJoinOptimized) Name() string { return "LeftJoinOptimized" }

func (LeftJoinOptimized) Apply(arena *Arena, root PhysicalPlan) (PhysicalPlan, bool, error) {
	return bottomUpRewrite(arena, root, func(node PhysicalPlan) (PhysicalPlan, bool, error) {
		switch n := node.(type) {
		case *GroupOp:
			lj, ok := n.Children()[0].(*LeftJoinOp)
			if !ok || !allColumnsIn(n.Keys, lj.Children()[0].OutputSchema()) {
				return node, false, nil
			}
			left := lj.Children()[0]
			pushed := arena.Register(newGroupOp(left, n.Keys, left.OutputSchema()))
			newLJ := arena.Register(newLeftJoinOp(pushed, lj.Children()[1], lj.Condition, concatSchema(pushed.OutputSchema(), lj.Children()[1].OutputSchema())))
			return newLJ, true, nil
		case *SortOp:
			lj, ok := n.Children()[0].(*LeftJoinOp)
			if !ok {
				return node, false, nil
			}
			keys := make([]Expr, len(n.Order))
			for i, o := range n.Order {
				keys[i] = o.Expr
			}
			if !allColumnsIn(keys, lj.Children()[0].OutputSchema()) {
				return node, false, nil
			}
			left := lj.Children()[0]
			pushed := arena.Register(newSortOp(left, n.Order, left.OutputSchema()))
			newLJ := arena.Register(newLeftJoinOp(pushed, lj.Children()[1], lj.Condition, concatSchema(pushed.OutputSchema(), lj.Children()[1].OutputSchema())))
			return newLJ, true, nil
		default:
			return node, false, nil
		}
	})
}

func allColumnsIn(exprs []Expr, schema metadata.Schema) bool {
	if len(exprs) == 0 {
		return false
	}
	for _, e := range exprs {
		name, ok := exprColumnName(e)
		if !ok || !schema.Contains(name) {
			return false
		}
	}
	return true
}
