package plan

import (
	"fmt"
	"strings"

	"github.com/fesql/planner/server/innodb/metadata"
)

// PhysicalKind discriminates the PhysicalPlan node variants produced by the
// transformer.
type PhysicalKind int

const (
	PhysicalScanTable PhysicalKind = iota
	PhysicalScanIndex
	PhysicalFetchRequest
	PhysicalSimpleProject
	PhysicalRowProject
	PhysicalConcatJoin
	PhysicalJoin
	PhysicalLeftJoin
	PhysicalGroup
	PhysicalSort
	PhysicalFilter
	PhysicalLimit
	PhysicalAggregation
	PhysicalWindowAggregation
	PhysicalDistinct
	PhysicalRename
	PhysicalUnion
)

func (k PhysicalKind) String() string {
	switch k {
	case PhysicalScanTable:
		return "ScanTable"
	case PhysicalScanIndex:
		return "ScanIndex"
	case PhysicalFetchRequest:
		return "FetchRequest"
	case PhysicalSimpleProject:
		return "SimpleProject"
	case PhysicalRowProject:
		return "RowProject"
	case PhysicalConcatJoin:
		return "ConcatJoin"
	case PhysicalJoin:
		return "Join"
	case PhysicalLeftJoin:
		return "LeftJoin"
	case PhysicalGroup:
		return "Group"
	case PhysicalSort:
		return "Sort"
	case PhysicalFilter:
		return "Filter"
	case PhysicalLimit:
		return "Limit"
	case PhysicalAggregation:
		return "Aggregation"
	case PhysicalWindowAggregation:
		return "WindowAggregation"
	case PhysicalDistinct:
		return "Distinct"
	case PhysicalRename:
		return "Rename"
	case PhysicalUnion:
		return "Union"
	default:
		return "Unknown"
	}
}

// PhysicalPlan is a node in the physical operator DAG: the executable
// lowering the codegen module walks to emit runtime operators.
type PhysicalPlan interface {
	ID() int
	Kind() PhysicalKind
	Children() []PhysicalPlan
	OutputSchema() metadata.Schema
	String() string

	setID(int)
}

type basePhysical struct {
	id       int
	kind     PhysicalKind
	children []PhysicalPlan
	schema   metadata.Schema
}

func (b *basePhysical) ID() int                       { return b.id }
func (b *basePhysical) setID(id int)                  { b.id = id }
func (b *basePhysical) Kind() PhysicalKind            { return b.kind }
func (b *basePhysical) Children() []PhysicalPlan      { return b.children }
func (b *basePhysical) OutputSchema() metadata.Schema { return b.schema }

// ScanTableOp performs a full, unordered scan of a catalog table.
type ScanTableOp struct {
	basePhysical
	Db    string
	Table string
}

func newScanTableOp(db, table string, schema metadata.Schema) *ScanTableOp {
	return &ScanTableOp{basePhysical: basePhysical{kind: PhysicalScanTable, schema: schema}, Db: db, Table: table}
}

func (s *ScanTableOp) String() string { return fmt.Sprintf("SCAN_TABLE(%s.%s)", s.Db, s.Table) }

// ScanIndexOp performs an ordered scan over a named secondary index,
// produced by GroupByOptimized when an index matches the group keys.
type ScanIndexOp struct {
	basePhysical
	Db       string
	Table    string
	Index    string
	Keys     []string
	TsColumn string
}

func newScanIndexOp(db, table, index string, keys []string, tsColumn string, schema metadata.Schema) *ScanIndexOp {
	return &ScanIndexOp{basePhysical: basePhysical{kind: PhysicalScanIndex, schema: schema}, Db: db, Table: table, Index: index, Keys: keys, TsColumn: tsColumn}
}

func (s *ScanIndexOp) String() string {
	return fmt.Sprintf("SCAN_INDEX(%s.%s, %s, keys=[%s])", s.Db, s.Table, s.Index, strings.Join(s.Keys, ","))
}

// FetchRequestOp fetches the single incoming request row in request mode.
type FetchRequestOp struct {
	basePhysical
	Db    string
	Table string
}

func newFetchRequestOp(db, table string, schema metadata.Schema) *FetchRequestOp {
	return &FetchRequestOp{basePhysical: basePhysical{kind: PhysicalFetchRequest, schema: schema}, Db: db, Table: table}
}

func (f *FetchRequestOp) String() string { return fmt.Sprintf("FETCH_REQUEST(%s.%s)", f.Db, f.Table) }

// SimpleProjectOp is a single-child projection whose item list references
// only its one input's columns.
type SimpleProjectOp struct {
	basePhysical
	Items []ProjectListItem
}

func newSimpleProjectOp(child PhysicalPlan, items []ProjectListItem, schema metadata.Schema) *SimpleProjectOp {
	return &SimpleProjectOp{basePhysical: basePhysical{kind: PhysicalSimpleProject, children: []PhysicalPlan{child}, schema: schema}, Items: items}
}

func (p *SimpleProjectOp) String() string { return fmt.Sprintf("SIMPLE_PROJECT(%d cols)", len(p.Items)) }

// RowProjectOp reconstructs a final output row from a chain of
// concat-joined sources using a pos_mapping list. The transformer only
// builds one when the project needs more than its single source child
// unchanged.
type RowProjectOp struct {
	basePhysical
	PosMapping []PosMapping
}

func newRowProjectOp(child PhysicalPlan, mapping []PosMapping, schema metadata.Schema) *RowProjectOp {
	return &RowProjectOp{basePhysical: basePhysical{kind: PhysicalRowProject, children: []PhysicalPlan{child}, schema: schema}, PosMapping: mapping}
}

func (p *RowProjectOp) String() string { return fmt.Sprintf("ROW_PROJECT(%d cols)", len(p.PosMapping)) }

// ConcatJoinOp horizontally concatenates two child row sources column-wise,
// the synthesis step of multi-list project fan-out. It has no key and no
// condition; its output is the row-aligned concatenation of its children.
type ConcatJoinOp struct {
	basePhysical
}

func newConcatJoinOp(left, right PhysicalPlan, schema metadata.Schema) *ConcatJoinOp {
	return &ConcatJoinOp{basePhysical{kind: PhysicalConcatJoin, children: []PhysicalPlan{left, right}, schema: schema}}
}

func (*ConcatJoinOp) String() string { return "CONCAT_JOIN" }

// JoinOp is a physical inner join.
type JoinOp struct {
	basePhysical
	Condition []JoinKey
}

func newJoinOp(left, right PhysicalPlan, cond []JoinKey, schema metadata.Schema) *JoinOp {
	return &JoinOp{basePhysical: basePhysical{kind: PhysicalJoin, children: []PhysicalPlan{left, right}, schema: schema}, Condition: cond}
}

func (j *JoinOp) String() string { return fmt.Sprintf("JOIN(%d keys)", len(j.Condition)) }

// LeftJoinOp is a physical left-outer join.
type LeftJoinOp struct {
	basePhysical
	Condition []JoinKey
}

func newLeftJoinOp(left, right PhysicalPlan, cond []JoinKey, schema metadata.Schema) *LeftJoinOp {
	return &LeftJoinOp{basePhysical: basePhysical{kind: PhysicalLeftJoin, children: []PhysicalPlan{left, right}, schema: schema}, Condition: cond}
}

func (j *LeftJoinOp) String() string { return fmt.Sprintf("LEFT_JOIN(%d keys)", len(j.Condition)) }

// GroupOp groups its child by key list; GroupByOptimized may rewrite the
// ScanTable beneath it into a ScanIndex and drop the matched keys.
type GroupOp struct {
	basePhysical
	Keys []Expr
}

func newGroupOp(child PhysicalPlan, keys []Expr, schema metadata.Schema) *GroupOp {
	return &GroupOp{basePhysical: basePhysical{kind: PhysicalGroup, children: []PhysicalPlan{child}, schema: schema}, Keys: keys}
}

func (g *GroupOp) String() string { return fmt.Sprintf("GROUP(%d keys)", len(g.Keys)) }

// SortOp orders its child; SortByOptimized may drop the ts-column key when
// the child already supplies that order.
type SortOp struct {
	basePhysical
	Order []OrderKey
}

func newSortOp(child PhysicalPlan, order []OrderKey, schema metadata.Schema) *SortOp {
	return &SortOp{basePhysical: basePhysical{kind: PhysicalSort, children: []PhysicalPlan{child}, schema: schema}, Order: order}
}

func (s *SortOp) String() string { return fmt.Sprintf("SORT(%d keys)", len(s.Order)) }

// FilterOp filters its child by a predicate.
type FilterOp struct {
	basePhysical
	Condition Expr
}

func newFilterOp(child PhysicalPlan, cond Expr, schema metadata.Schema) *FilterOp {
	return &FilterOp{basePhysical: basePhysical{kind: PhysicalFilter, children: []PhysicalPlan{child}, schema: schema}, Condition: cond}
}

func (f *FilterOp) String() string { return fmt.Sprintf("FILTER(%s)", f.Condition.String()) }

// LimitOp caps its child's row count.
type LimitOp struct {
	basePhysical
	Count int64
}

func newLimitOp(child PhysicalPlan, count int64, schema metadata.Schema) *LimitOp {
	return &LimitOp{basePhysical: basePhysical{kind: PhysicalLimit, children: []PhysicalPlan{child}, schema: schema}, Count: count}
}

func (l *LimitOp) String() string { return fmt.Sprintf("LIMIT(%d)", l.Count) }

// AggregationOp is a plain (non-windowed) aggregation; the transformer
// builds one only over a Group child. Named distinctly from WindowAggregationOp per this module's
// decision to keep the two constructors separate (see DESIGN.md Open
// Question on aggregation naming).
type AggregationOp struct {
	basePhysical
	Items []ProjectListItem
}

func newAggregationOp(child PhysicalPlan, items []ProjectListItem, schema metadata.Schema) *AggregationOp {
	return &AggregationOp{basePhysical: basePhysical{kind: PhysicalAggregation, children: []PhysicalPlan{child}, schema: schema}, Items: items}
}

func (a *AggregationOp) String() string { return fmt.Sprintf("AGGREGATION(%d cols)", len(a.Items)) }

// WindowAggregationOp is a window aggregation lowered from a windowed
// ProjectList: a Group then Sort is always inserted beneath it by the
// transformer when the window carries partition/order keys.
// StartOffset/EndOffset are the row-range frame bounds (e.g.
// ROWS BETWEEN 3 PRECEDING AND CURRENT ROW is -3, 0).
type WindowAggregationOp struct {
	basePhysical
	PartitionBy []Expr
	OrderBy     []OrderKey
	StartOffset int64
	EndOffset   int64
	Items       []ProjectListItem
}

func newWindowAggregationOp(child PhysicalPlan, partitionBy []Expr, orderBy []OrderKey, startOffset, endOffset int64, items []ProjectListItem, schema metadata.Schema) *WindowAggregationOp {
	return &WindowAggregationOp{
		basePhysical: basePhysical{kind: PhysicalWindowAggregation, children: []PhysicalPlan{child}, schema: schema},
		PartitionBy:  partitionBy,
		OrderBy:      orderBy,
		StartOffset:  startOffset,
		EndOffset:    endOffset,
		Items:        items,
	}
}

func (w *WindowAggregationOp) String() string {
	return fmt.Sprintf("WINDOW_AGGREGATION(partition=%d, order=%d, rows=[%d,%d])", len(w.PartitionBy), len(w.OrderBy), w.StartOffset, w.EndOffset)
}

// DistinctOp deduplicates its child's rows.
type DistinctOp struct {
	basePhysical
}

func newDistinctOp(child PhysicalPlan, schema metadata.Schema) *DistinctOp {
	return &DistinctOp{basePhysical{kind: PhysicalDistinct, children: []PhysicalPlan{child}, schema: schema}}
}

func (*DistinctOp) String() string { return "DISTINCT" }

// RenameOp aliases its child's output; the alias affects only name
// resolution upstream.
type RenameOp struct {
	basePhysical
	Alias string
}

func newRenameOp(child PhysicalPlan, alias string, schema metadata.Schema) *RenameOp {
	return &RenameOp{basePhysical: basePhysical{kind: PhysicalRename, children: []PhysicalPlan{child}, schema: schema}, Alias: alias}
}

func (r *RenameOp) String() string { return fmt.Sprintf("RENAME(%s)", r.Alias) }

// UnionOp is a physical set union of two children; IsAll preserves
// duplicate rows the way `UNION ALL` does.
type UnionOp struct {
	basePhysical
	IsAll bool
}

func newUnionOp(left, right PhysicalPlan, isAll bool, schema metadata.Schema) *UnionOp {
	return &UnionOp{basePhysical: basePhysical{kind: PhysicalUnion, children: []PhysicalPlan{left, right}, schema: schema}, IsAll: isAll}
}

func (u *UnionOp) String() string { return fmt.Sprintf("UNION(all=%v)", u.IsAll) }
