package plan

import (
	"fmt"
	"strings"
)

// Explain renders root as a deterministic, indented textual dump: one
// line per node, children indented two spaces deeper than their parent.
// Used by tests as a golden-string assertion target and by the CLI demo.
func Explain(root PhysicalPlan) string {
	var b strings.Builder
	explainNode(&b, root, 0)
	return b.String()
}

func explainNode(b *strings.Builder, node PhysicalPlan, depth int) {
	fmt.Fprintf(b, "%s%s  [%s]\n", strings.Repeat("  ", depth), node.String(), node.OutputSchema().String())
	for _, c := range node.Children() {
		explainNode(b, c, depth+1)
	}
}
