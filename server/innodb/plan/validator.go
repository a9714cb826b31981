package plan

// ValidatePrimaryPath resolves the unique base table that carries the
// request row through the plan in request mode. It walks down from root,
// marks the table it finds as primary, and returns it.
//
// A Table leaf resolves to itself. Unary kinds (Filter, Project, Group,
// Sort, Rename, Limit, Distinct, Query) are transparent: they adopt
// whatever their sole child resolves to. Join, LeftJoin and Union recurse
// into both children; when both sides resolve to a source, the two must be
// the identical node — the same table handle, whether shared directly
// through the DAG or reached via two independent paths — otherwise
// validation fails with a PlanError. A WindowClauseNode is rejected on
// sight: a raw window-clause definition is never itself a valid step on a
// result-producing path.
//
// Only request-mode compilation runs this; batch mode scans every table
// leaf in full and has no primary path to resolve.
func ValidatePrimaryPath(root LogicalPlan) (LogicalPlan, error) {
	if root == nil {
		return nil, NewPlanError("logical plan root is nil")
	}
	if _, err := BuildLogicalGraph(root); err != nil {
		return nil, err
	}
	primary, err := checkPrimaryPath(root)
	if err != nil {
		return nil, err
	}
	if table, ok := primary.(*TableNode); ok {
		table.IsPrimary = true
	}
	return primary, nil
}

// checkPrimaryPath walks down from n and returns the primary source
// reachable from it: a *TableNode, a *RequestNode (already a single-row
// source by construction), or nil when the subtree has no table leaf at
// all.
func checkPrimaryPath(n LogicalPlan) (LogicalPlan, error) {
	switch node := n.(type) {
	case *TableNode:
		return node, nil
	case *RequestNode:
		return node, nil
	case *QueryNode:
		return checkPrimaryPath(node.Children()[0])
	case *RenameNode:
		return checkPrimaryPath(node.Children()[0])
	case *ProjectNode:
		return checkPrimaryPath(node.Children()[0])
	case *FilterNode:
		return checkPrimaryPath(node.Children()[0])
	case *LimitNode:
		return checkPrimaryPath(node.Children()[0])
	case *SortNode:
		return checkPrimaryPath(node.Children()[0])
	case *GroupNode:
		return checkPrimaryPath(node.Children()[0])
	case *DistinctNode:
		return checkPrimaryPath(node.Children()[0])
	case *JoinNode:
		return checkPrimaryPathBinary(node.Children()[0], node.Children()[1])
	case *LeftJoinNode:
		return checkPrimaryPathBinary(node.Children()[0], node.Children()[1])
	case *UnionNode:
		return checkPrimaryPathBinary(node.Children()[0], node.Children()[1])
	default:
		return nil, NewPlanError("primary path validate fail: invalid node of primary path: %s", n.Kind())
	}
}

// checkPrimaryPathBinary resolves the primary source on each side of a
// Join/LeftJoin/Union. When both sides resolve, they must be the identical
// node: a join of two distinct base tables has no single path for the
// request row to follow.
func checkPrimaryPathBinary(left, right LogicalPlan) (LogicalPlan, error) {
	leftSource, err := checkPrimaryPath(left)
	if err != nil {
		return nil, err
	}
	rightSource, err := checkPrimaryPath(right)
	if err != nil {
		return nil, err
	}
	switch {
	case leftSource == nil:
		return rightSource, nil
	case rightSource == nil:
		return leftSource, nil
	case leftSource != rightSource:
		return nil, NewPlanError("primary path validate fail: left path and right path has different source")
	default:
		return leftSource, nil
	}
}
