package plan

import (
	"github.com/fesql/planner/logger"
	"github.com/fesql/planner/server/conf"
	"github.com/fesql/planner/server/innodb/metadata"
)

// Pipeline runs an ordered list of Passes over a physical plan.
type Pipeline struct {
	passes []Pass
}

// NewPipeline creates an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// AddPass appends p to the pipeline.
func (p *Pipeline) AddPass(pass Pass) *Pipeline {
	p.passes = append(p.passes, pass)
	return p
}

// AddDefaultPasses registers the three built-in cost-free passes in the
// order LeftJoinOptimized, GroupByOptimized, SortByOptimized: pushing
// Group/Sort below a LeftJoin first gives GroupByOptimized and
// SortByOptimized a chance to match an index scan on the now-exposed
// left-hand side.
func (p *Pipeline) AddDefaultPasses(cat metadata.Catalog) error {
	p.AddPass(LeftJoinOptimized{})
	p.AddPass(GroupByOptimized{Catalog: cat})
	p.AddPass(SortByOptimized{})
	return nil
}

// AddDefaultPassesWithConfig is AddDefaultPasses but skips any pass the
// optimizer section of cfg has disabled.
func (p *Pipeline) AddDefaultPassesWithConfig(cat metadata.Catalog, cfg *conf.OptimizerConfig) error {
	if cfg.LeftJoinOptimized {
		p.AddPass(LeftJoinOptimized{})
	}
	if cfg.GroupByOptimized {
		p.AddPass(GroupByOptimized{Catalog: cat})
	}
	if cfg.SortByOptimized {
		p.AddPass(SortByOptimized{})
	}
	return nil
}

// Run applies every registered pass once, in order, over root (a single
// sweep, not a fixed-point loop). It returns the rewritten root and
// whether any pass changed anything.
func (p *Pipeline) Run(arena *Arena, root PhysicalPlan) (PhysicalPlan, bool, error) {
	changedAny := false
	for _, pass := range p.passes {
		newRoot, changed, err := pass.Apply(arena, root)
		if err != nil {
			logger.Warnf("pipeline: pass %s failed: %v", pass.Name(), err)
			return nil, false, NewOpGenError("pass %s failed: %v", pass.Name(), err)
		}
		if changed {
			logger.Debugf("pipeline: pass %s rewrote the plan", pass.Name())
		}
		root = newRoot
		changedAny = changedAny || changed
	}
	return root, changedAny, nil
}

// RunToFixedPoint repeats Run until no pass reports a change or maxRounds
// is reached, whichever comes first. A second sweep can occasionally find
// a match the first one exposed, e.g. LeftJoinOptimized pushing a Group
// down onto a scan that GroupByOptimized can then fold into an index.
func (p *Pipeline) RunToFixedPoint(arena *Arena, root PhysicalPlan, maxRounds int) (PhysicalPlan, error) {
	for i := 0; i < maxRounds; i++ {
		newRoot, changed, err := p.Run(arena, root)
		if err != nil {
			return nil, err
		}
		root = newRoot
		if !changed {
			return root, nil
		}
	}
	return root, nil
}
