package plan

import (
	"fmt"

	"github.com/fesql/planner/server/innodb/metadata"
)

// LogicalKind discriminates the LogicalPlan node variants.
type LogicalKind int

const (
	LogicalTable LogicalKind = iota
	LogicalProject
	LogicalJoin
	LogicalLeftJoin
	LogicalUnion
	LogicalGroup
	LogicalSort
	LogicalFilter
	LogicalLimit
	LogicalRename
	LogicalQuery
	LogicalWindow
	LogicalDistinct
	LogicalRequest
)

func (k LogicalKind) String() string {
	switch k {
	case LogicalTable:
		return "Table"
	case LogicalProject:
		return "Project"
	case LogicalJoin:
		return "Join"
	case LogicalLeftJoin:
		return "LeftJoin"
	case LogicalUnion:
		return "Union"
	case LogicalGroup:
		return "Group"
	case LogicalSort:
		return "Sort"
	case LogicalFilter:
		return "Filter"
	case LogicalLimit:
		return "Limit"
	case LogicalRename:
		return "Rename"
	case LogicalQuery:
		return "Query"
	case LogicalWindow:
		return "Window"
	case LogicalDistinct:
		return "Distinct"
	case LogicalRequest:
		return "Request"
	default:
		return "Unknown"
	}
}

// LogicalPlan is a node in the logical plan tree produced upstream of this
// module: the SQL parser/binder builds these trees, this module only
// consumes them.
type LogicalPlan interface {
	Kind() LogicalKind
	Children() []LogicalPlan
	String() string
}

type baseLogical struct {
	kind     LogicalKind
	children []LogicalPlan
}

func (b *baseLogical) Kind() LogicalKind       { return b.kind }
func (b *baseLogical) Children() []LogicalPlan { return b.children }

// TableNode is a leaf referencing a catalog table, optionally marked as
// the primary (request-mode) source.
type TableNode struct {
	baseLogical
	Db        string
	Table     string
	IsPrimary bool
}

// NewTableNode builds a scan-leaf logical node.
func NewTableNode(db, table string) *TableNode {
	return &TableNode{baseLogical: baseLogical{kind: LogicalTable}, Db: db, Table: table}
}

func (t *TableNode) String() string {
	if t.IsPrimary {
		return fmt.Sprintf("TABLE(%s.%s, primary)", t.Db, t.Table)
	}
	return fmt.Sprintf("TABLE(%s.%s)", t.Db, t.Table)
}

// RequestNode is a leaf representing the single incoming request row in
// request mode; it carries its own schema since there is no catalog table
// backing it directly.
type RequestNode struct {
	baseLogical
	Db     string
	Table  string
	Schema metadata.Schema
}

// NewRequestNode builds a request-row leaf.
func NewRequestNode(db, table string, schema metadata.Schema) *RequestNode {
	return &RequestNode{baseLogical: baseLogical{kind: LogicalRequest}, Db: db, Table: table, Schema: schema}
}

func (r *RequestNode) String() string {
	return fmt.Sprintf("REQUEST(%s.%s)", r.Db, r.Table)
}

// PosMapping describes, for a single output column, where its value comes
// from among the concat-joined child sources.
type PosMapping struct {
	// SourceIdx is the index of the per-list operator in the fan-out's
	// list order.
	SourceIdx int
	// SourceColumn is the column name within that source's schema.
	SourceColumn string
}

// ProjectListItem is one projection output: an expression plus the name it
// is bound to in the output schema.
type ProjectListItem struct {
	Expr  Expr
	Alias string
}

// WindowSpec is the `w` a ProjectList optionally shares:
// partition keys, order keys, and a row-range frame expressed as offsets
// from the current row (e.g. ROWS BETWEEN 3 PRECEDING AND CURRENT ROW is
// StartOffset=-3, EndOffset=0).
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderKey
	StartOffset int64
	EndOffset   int64
}

func (w *WindowSpec) String() string {
	return fmt.Sprintf("partition=%d, order=%d, rows=[%d,%d]", len(w.PartitionBy), len(w.OrderBy), w.StartOffset, w.EndOffset)
}

// ProjectList is a group of scalar ProjectNodes sharing an optional
// Window. IsWindowAgg marks the list as a windowed aggregation rather
// than a plain row projection.
type ProjectList struct {
	Items       []ProjectListItem
	Window      *WindowSpec
	IsWindowAgg bool
}

// PosRef is one entry of a Project's pos_mapping: the final output
// position at this index is drawn from project-list ListIndex, position
// Position within that list.
type PosRef struct {
	ListIndex int
	Position  int
}

// ProjectNode owns an ordered vector of project-lists plus the pos_mapping
// that reassembles their outputs into final column order, the raw
// material of the project-list fan-out construction. ProjectNode
// always has exactly one child; a project list spanning multiple source
// tables is expressed upstream as a Join/LeftJoin feeding that one child,
// not as extra ProjectNode children.
type ProjectNode struct {
	baseLogical
	Lists      []ProjectList
	PosMapping []PosRef
}

// NewProjectNode builds a single-project-list projection over child: the
// common case of one non-windowed ProjectList whose pos_mapping is the
// identity permutation.
func NewProjectNode(child LogicalPlan, items []ProjectListItem) *ProjectNode {
	return NewMultiListProjectNode(child, []ProjectList{{Items: items}})
}

// NewWindowNode builds a single windowed ProjectList over child: Group(d,
// partitionBy) then Sort(., orderBy) are inserted beneath the resulting
// WindowAggregation by the transformer.
func NewWindowNode(child LogicalPlan, partitionBy []Expr, orderBy []OrderKey, startOffset, endOffset int64, items []ProjectListItem) *ProjectNode {
	return NewMultiListProjectNode(child, []ProjectList{{
		Items:       items,
		IsWindowAgg: true,
		Window:      &WindowSpec{PartitionBy: partitionBy, OrderBy: orderBy, StartOffset: startOffset, EndOffset: endOffset},
	}})
}

// NewMultiListProjectNode builds a Project over several project-lists
// fanned out via concat-join, with an identity pos_mapping: list 0's
// columns first, then list 1's, and so on in their original order.
func NewMultiListProjectNode(child LogicalPlan, lists []ProjectList) *ProjectNode {
	var mapping []PosRef
	for li, l := range lists {
		for pi := range l.Items {
			mapping = append(mapping, PosRef{ListIndex: li, Position: pi})
		}
	}
	return &ProjectNode{
		baseLogical: baseLogical{kind: LogicalProject, children: []LogicalPlan{child}},
		Lists:       lists,
		PosMapping:  mapping,
	}
}

// NewReorderedMultiListProjectNode is NewMultiListProjectNode with an
// explicit pos_mapping, for callers that need the final output order to
// differ from simple list-then-list concatenation.
func NewReorderedMultiListProjectNode(child LogicalPlan, lists []ProjectList, mapping []PosRef) *ProjectNode {
	return &ProjectNode{
		baseLogical: baseLogical{kind: LogicalProject, children: []LogicalPlan{child}},
		Lists:       lists,
		PosMapping:  mapping,
	}
}

func (p *ProjectNode) String() string {
	return fmt.Sprintf("PROJECT(%d lists, %d cols)", len(p.Lists), len(p.PosMapping))
}

// QueryNode is a transparent wrapper with exactly one child; the
// transformer delegates straight through it.
type QueryNode struct {
	baseLogical
}

// NewQueryNode builds a transparent Query wrapper over child.
func NewQueryNode(child LogicalPlan) *QueryNode {
	return &QueryNode{baseLogical{kind: LogicalQuery, children: []LogicalPlan{child}}}
}

func (*QueryNode) String() string { return "QUERY" }

// RenameNode aliases its child; the alias affects only name resolution in
// later schema building, never the row values themselves.
type RenameNode struct {
	baseLogical
	Alias string
}

// NewRenameNode builds a Rename over child under alias.
func NewRenameNode(child LogicalPlan, alias string) *RenameNode {
	return &RenameNode{baseLogical: baseLogical{kind: LogicalRename, children: []LogicalPlan{child}}, Alias: alias}
}

func (r *RenameNode) String() string { return fmt.Sprintf("RENAME(%s)", r.Alias) }

// UnionNode is a set union of two children, all-duplicates-kept when
// IsAll is set.
type UnionNode struct {
	baseLogical
	IsAll bool
}

// NewUnionNode builds a Union of left and right.
func NewUnionNode(left, right LogicalPlan, isAll bool) *UnionNode {
	return &UnionNode{baseLogical: baseLogical{kind: LogicalUnion, children: []LogicalPlan{left, right}}, IsAll: isAll}
}

func (u *UnionNode) String() string { return fmt.Sprintf("UNION(all=%v)", u.IsAll) }

// JoinNode is an inner join of two children on an equality condition list.
type JoinNode struct {
	baseLogical
	Condition []JoinKey
}

// JoinKey is one equality clause of a join condition.
type JoinKey struct {
	Left  Expr
	Right Expr
}

// NewJoinNode builds an inner join of left and right.
func NewJoinNode(left, right LogicalPlan, cond []JoinKey) *JoinNode {
	return &JoinNode{baseLogical: baseLogical{kind: LogicalJoin, children: []LogicalPlan{left, right}}, Condition: cond}
}

func (j *JoinNode) String() string { return fmt.Sprintf("JOIN(%d keys)", len(j.Condition)) }

// LeftJoinNode is a left-outer join; kept distinct from JoinNode because
// LeftJoinOptimized treats it specially.
type LeftJoinNode struct {
	baseLogical
	Condition []JoinKey
}

// NewLeftJoinNode builds a left-outer join of left and right.
func NewLeftJoinNode(left, right LogicalPlan, cond []JoinKey) *LeftJoinNode {
	return &LeftJoinNode{baseLogical: baseLogical{kind: LogicalLeftJoin, children: []LogicalPlan{left, right}}, Condition: cond}
}

func (j *LeftJoinNode) String() string { return fmt.Sprintf("LEFT_JOIN(%d keys)", len(j.Condition)) }

// GroupNode groups its child by a key list.
type GroupNode struct {
	baseLogical
	Keys []Expr
}

// NewGroupNode builds a Group over child keyed by keys.
func NewGroupNode(child LogicalPlan, keys []Expr) *GroupNode {
	return &GroupNode{baseLogical: baseLogical{kind: LogicalGroup, children: []LogicalPlan{child}}, Keys: keys}
}

func (g *GroupNode) String() string { return fmt.Sprintf("GROUP(%d keys)", len(g.Keys)) }

// SortNode orders its child by an order-key list.
type SortNode struct {
	baseLogical
	Order []OrderKey
}

// NewSortNode builds a Sort over child.
func NewSortNode(child LogicalPlan, order []OrderKey) *SortNode {
	return &SortNode{baseLogical: baseLogical{kind: LogicalSort, children: []LogicalPlan{child}}, Order: order}
}

func (s *SortNode) String() string { return fmt.Sprintf("SORT(%d keys)", len(s.Order)) }

// FilterNode filters its child by a predicate.
type FilterNode struct {
	baseLogical
	Condition Expr
}

// NewFilterNode builds a Filter over child.
func NewFilterNode(child LogicalPlan, cond Expr) *FilterNode {
	return &FilterNode{baseLogical: baseLogical{kind: LogicalFilter, children: []LogicalPlan{child}}, Condition: cond}
}

func (f *FilterNode) String() string { return fmt.Sprintf("FILTER(%s)", f.Condition.String()) }

// LimitNode caps its child's row count.
type LimitNode struct {
	baseLogical
	Count int64
}

// NewLimitNode builds a Limit over child.
func NewLimitNode(child LogicalPlan, count int64) *LimitNode {
	return &LimitNode{baseLogical: baseLogical{kind: LogicalLimit, children: []LogicalPlan{child}}, Count: count}
}

func (l *LimitNode) String() string { return fmt.Sprintf("LIMIT(%d)", l.Count) }

// WindowClauseNode stands for a raw `WINDOW w AS (...)` clause definition
// elsewhere in a parsed statement. It is never a valid part of a
// result-producing path — the transformer has no per-kind contract for it
// and ValidatePrimaryPath rejects it on sight. Actual window aggregation
// is expressed as a ProjectList's Window field, built via NewWindowNode
// above.
type WindowClauseNode struct {
	baseLogical
}

// NewWindowClauseNode builds a standalone window-clause placeholder node,
// for exercising ValidatePrimaryPath's reject-on-sight rule.
func NewWindowClauseNode() *WindowClauseNode {
	return &WindowClauseNode{baseLogical{kind: LogicalWindow}}
}

func (*WindowClauseNode) String() string { return "WINDOW_CLAUSE" }

// DistinctNode deduplicates its child's rows across all columns.
type DistinctNode struct {
	baseLogical
}

// NewDistinctNode builds a Distinct over child.
func NewDistinctNode(child LogicalPlan) *DistinctNode {
	return &DistinctNode{baseLogical{kind: LogicalDistinct, children: []LogicalPlan{child}}}
}

func (*DistinctNode) String() string { return "DISTINCT" }
