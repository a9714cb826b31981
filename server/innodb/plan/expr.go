package plan

import (
	"fmt"
	"strings"
)

// Expr is the planner's structural view of a scalar expression: enough to
// drive index-key matching, project-list fan-out, and Explain dumps.
// Evaluating an expression against a row is the codegen/runtime module's
// job — Expr carries no Eval.
type Expr interface {
	// String renders the expression for Explain / error messages.
	String() string
	// exprNode is unexported so Expr can only be satisfied inside this
	// package; callers pattern-match on the concrete types below.
	exprNode()
}

// ColumnRef is a reference to a named column, optionally qualified by a
// relation alias (empty when unqualified).
type ColumnRef struct {
	Relation string
	Column   string
}

func (ColumnRef) exprNode() {}
func (c ColumnRef) String() string {
	if c.Relation == "" {
		return c.Column
	}
	return c.Relation + "." + c.Column
}

// Star is the `*` or `rel.*` projection expression. Children, once
// expanded, holds one ColumnRef per column it stands for; an un-expanded
// Star has an empty Children.
type Star struct {
	Relation string
	Children []ColumnRef
}

func (Star) exprNode() {}
func (s Star) String() string {
	if s.Relation == "" {
		return "*"
	}
	return s.Relation + ".*"
}

// Literal is a constant value carried only for display purposes.
type Literal struct {
	Value interface{}
}

func (Literal) exprNode() {}
func (l Literal) String() string { return fmt.Sprintf("%v", l.Value) }

// Call is a function-call expression (aggregate or scalar); the planner
// does not interpret Name or Args beyond using them for index-key
// matching (where they never match, being non-column) and Explain text.
type Call struct {
	Name string
	Args []Expr
}

func (Call) exprNode() {}
func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// OrderKey is one entry of an ORDER BY / window order list.
type OrderKey struct {
	Expr      Expr
	Ascending bool
}

func (o OrderKey) String() string {
	dir := "ASC"
	if !o.Ascending {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", o.Expr.String(), dir)
}

// exprColumnName returns (name, true) if e is a bare column reference,
// which is the only shape GroupByOptimized/SortByOptimized/
// LeftJoinOptimized match against index keys or join-side schemas.
func exprColumnName(e Expr) (string, bool) {
	if c, ok := e.(ColumnRef); ok {
		return c.Column, true
	}
	return "", false
}
