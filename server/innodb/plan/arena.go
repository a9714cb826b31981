package plan

import "fmt"

// Arena owns every PhysicalPlan produced by a single Transformer run and
// memoizes the logical-to-physical mapping by logical node identity, so
// that a logical node reachable from two parents lowers to exactly one
// physical node instead of being transformed twice.
type Arena struct {
	nodes  []PhysicalPlan
	memo   map[LogicalPlan]PhysicalPlan
	nextID int
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{memo: make(map[LogicalPlan]PhysicalPlan)}
}

// Register assigns node an id, stores it, and returns it. Call this
// exactly once per freshly-built physical node; do not re-register a node
// obtained from Lookup/Memoize.
func (a *Arena) Register(node PhysicalPlan) PhysicalPlan {
	a.nextID++
	node.setID(a.nextID)
	a.nodes = append(a.nodes, node)
	return node
}

// Lookup returns the physical node already produced for logical, if any.
func (a *Arena) Lookup(logical LogicalPlan) (PhysicalPlan, bool) {
	n, ok := a.memo[logical]
	return n, ok
}

// Memoize records that logical lowers to physical. Call after Register.
func (a *Arena) Memoize(logical LogicalPlan, physical PhysicalPlan) {
	a.memo[logical] = physical
}

// Size returns the number of distinct physical nodes registered so far.
func (a *Arena) Size() int {
	return len(a.nodes)
}

// Nodes returns all registered physical nodes in registration order.
func (a *Arena) Nodes() []PhysicalPlan {
	return a.nodes
}

func (a *Arena) String() string {
	return fmt.Sprintf("Arena(%d nodes)", len(a.nodes))
}
