package plan

import (
	"fmt"

	"github.com/fesql/planner/server/innodb/metadata"
)

// fnNameMarker prefixes every function name a ProjectListCompiler mints.
const fnNameMarker = "__internal_fn_"

// ProjectListCompiler is the codegen collaborator that turns a resolved
// project list into an executable row function. Compile returns the
// deterministic function name codegen would bind the compiled list to,
// plus the output schema the list produces (column order and declared
// name preserved; an unnamed `*` must already be expanded by the caller).
// rowProject distinguishes a row-mode projection (one row in, one row
// out) from a non-row aggregation/window compile.
type ProjectListCompiler interface {
	Compile(items []ProjectListItem, inputs []metadata.Schema, rowProject bool) (fn string, schema metadata.Schema, err error)
}

// defaultProjectListCompiler is a deterministic, dependency-free stand-in
// for the real codegen module: it accepts any project list whose bare
// column references resolve unambiguously against inputs, and rejects
// everything else. It also mints the deterministic function name and
// computes the output schema, since no real codegen backend is wired in
// this module. Transformer uses this when no ProjectListCompiler is
// supplied, so the transform/pass tests can run without one.
type defaultProjectListCompiler struct {
	counter int
}

// NewDefaultProjectListCompiler returns the stub compiler described above.
func NewDefaultProjectListCompiler() ProjectListCompiler {
	return &defaultProjectListCompiler{}
}

func (c *defaultProjectListCompiler) Compile(items []ProjectListItem, inputs []metadata.Schema, rowProject bool) (string, metadata.Schema, error) {
	for _, item := range items {
		if err := compileExpr(item.Expr, inputs); err != nil {
			return "", nil, err
		}
	}
	c.counter++
	fn := fmt.Sprintf("%s%d", fnNameMarker, c.counter)
	return fn, buildCompiledSchema(items, inputs), nil
}

// buildCompiledSchema computes the output schema of a project list:
// for bare column references the type is copied from whichever input
// schema declares it; computed expressions have no inferable type at
// this layer (no Eval/codegen here) and default to TypeString as a
// placeholder, matching the decision to keep Expr free of type inference.
func buildCompiledSchema(items []ProjectListItem, inputs []metadata.Schema) metadata.Schema {
	schema := make(metadata.Schema, 0, len(items))
	for _, item := range items {
		name := item.Alias
		if name == "" {
			name = item.Expr.String()
		}
		dt := metadata.TypeString
		if col, ok := exprColumnName(item.Expr); ok {
			for _, in := range inputs {
				for _, c := range in {
					if c.Name == col {
						dt = c.DataType
					}
				}
			}
		}
		schema = append(schema, metadata.Column{Name: name, DataType: dt})
	}
	return schema
}

func compileExpr(e Expr, inputs []metadata.Schema) error {
	switch expr := e.(type) {
	case ColumnRef:
		return resolveColumnRef(expr, inputs)
	case Star:
		return nil
	case Literal:
		return nil
	case Call:
		for _, arg := range expr.Args {
			if err := compileExpr(arg, inputs); err != nil {
				return err
			}
		}
		return nil
	default:
		return NewCodegenError("unrecognized expression type %T", e)
	}
}

// resolveColumnRef matches c against every input schema by column name.
// Relation aliases are not tracked at this layer (alias-to-source binding
// happens upstream, in the binder); a qualified reference is resolved
// purely by its bare column name, same as an unqualified one.
func resolveColumnRef(c ColumnRef, inputs []metadata.Schema) error {
	matches := 0
	for _, schema := range inputs {
		if schema.Contains(c.Column) {
			matches++
		}
	}
	if matches == 0 {
		return NewCodegenError("column %s does not resolve against any input schema", c.String())
	}
	if matches > 1 {
		return NewCodegenError("column %s is ambiguous across input schemas", c.String())
	}
	return nil
}
