package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/fesql/planner/logger"
	"github.com/fesql/planner/server/conf"
	"github.com/fesql/planner/server/innodb/metadata"
	"github.com/fesql/planner/server/innodb/plan"
)

func main() {
	configPath := flag.String("config", "", "path to a planner.ini configuration file")
	requestMode := flag.Bool("request", false, "lower the sample plan in request mode instead of batch")
	flag.Parse()

	cfg, err := conf.NewCompilerConfig().Load(&conf.CommandLineArgs{ConfigPath: *configPath})
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := logger.InitLogger(logger.LogConfig{
		LogLevel:     cfg.Log.Level,
		InfoLogPath:  cfg.Log.InfoPath,
		ErrorLogPath: cfg.Log.ErrorPath,
	}); err != nil {
		log.Fatalf("initializing logger: %v", err)
	}

	cat := demoCatalog()
	root := demoLogicalPlan(*requestMode)

	tr := plan.NewTransformer(cat, "demo", nil)
	var phys plan.PhysicalPlan
	var arena *plan.Arena
	if *requestMode {
		phys, arena, err = tr.TransformRequest(root)
	} else {
		phys, arena, err = tr.TransformBatch(root)
	}
	if err != nil {
		log.Fatalf("transform failed: %v", err)
	}

	fmt.Println("before optimization:")
	fmt.Println(plan.Explain(phys))

	pipeline := plan.NewPipeline()
	if err := pipeline.AddDefaultPassesWithConfig(cat, &cfg.Optimizer); err != nil {
		log.Fatalf("building pipeline: %v", err)
	}

	var optimized plan.PhysicalPlan
	if cfg.FixedPoint {
		optimized, err = pipeline.RunToFixedPoint(arena, phys, cfg.MaxRounds)
	} else {
		optimized, _, err = pipeline.Run(arena, phys)
	}
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	fmt.Println("after optimization:")
	fmt.Println(plan.Explain(optimized))
	fmt.Printf("arena size: %d\n", arena.Size())
}

// demoCatalog builds a small fixture catalog: an events table with a
// secondary index on (user_id) so GroupByOptimized/SortByOptimized have
// something to match.
func demoCatalog() metadata.Catalog {
	events := metadata.NewTableBuilder("demo", "events").
		Column("event_id", metadata.TypeBigInt).
		Column("user_id", metadata.TypeBigInt).
		Column("value", metadata.TypeDouble).
		Column("ts", metadata.TypeTimestamp).
		Index("idx_user_ts", 3, "user_id").
		MustBuild()
	return metadata.NewMemCatalog(events)
}

// demoLogicalPlan builds a sample plan appropriate to the requested mode.
// Batch mode builds SELECT user_id, SUM(value) AS total FROM events WINDOW
// (PARTITION BY user_id ORDER BY ts ROWS 100 PRECEDING). Request mode
// builds the single-row lookup SELECT * FROM events WHERE event_id = ?
// LIMIT 1; TransformRequest resolves the events leaf as the primary path.
func demoLogicalPlan(request bool) plan.LogicalPlan {
	if request {
		return plan.NewLimitNode(
			plan.NewFilterNode(plan.NewTableNode("demo", "events"), plan.ColumnRef{Column: "event_id"}),
			1,
		)
	}

	return plan.NewWindowNode(
		plan.NewTableNode("demo", "events"),
		[]plan.Expr{plan.ColumnRef{Column: "user_id"}},
		[]plan.OrderKey{{Expr: plan.ColumnRef{Column: "ts"}, Ascending: true}},
		-100, 0,
		[]plan.ProjectListItem{
			{Expr: plan.ColumnRef{Column: "user_id"}, Alias: "user_id"},
			{Expr: plan.Call{Name: "sum", Args: []plan.Expr{plan.ColumnRef{Column: "value"}}}, Alias: "total"},
		},
	)
}
