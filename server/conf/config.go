package conf

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/ini.v1"
)

// ConfigPath is the resolved path of the loaded ini file, set by Load.
var ConfigPath string

// CommandLineArgs carries the flags the CLI demo accepts.
type CommandLineArgs struct {
	ConfigPath string
}

/*
[planner]
db               = db1
request_mode     = false
fixed_point      = false
max_rounds       = 4

[optimizer]
group_by_optimized  = true
sort_by_optimized   = true
left_join_optimized = true

[log]
level      = info
info_path  =
error_path =
*/

// CompilerConfig is the planner's top-level configuration: which default
// optimizer passes run, request-mode behavior, and logging, in the ini.v1
// struct-tag style the rest of this module's ambient stack uses.
type CompilerConfig struct {
	Raw *ini.File

	DB          string `default:"" yaml:"db" json:"db,omitempty"`
	RequestMode bool   `default:"false" yaml:"request_mode" json:"request_mode,omitempty"`

	FixedPoint                bool   `default:"false" yaml:"fixed_point" json:"fixed_point,omitempty"`
	MaxRounds                 int    `default:"4" yaml:"max_rounds" json:"max_rounds,omitempty"`
	FixedPointTimeout         string `default:"5s" yaml:"fixed_point_timeout" json:"fixed_point_timeout,omitempty"`
	FixedPointTimeoutDuration time.Duration

	Optimizer OptimizerConfig  `yaml:"optimizer" json:"optimizer,omitempty"`
	Log       LogSectionConfig `yaml:"log" json:"log,omitempty"`
}

// OptimizerConfig toggles the three built-in cost-free passes
// individually; Pipeline.AddDefaultPassesWithConfig skips any pass whose
// toggle is off.
type OptimizerConfig struct {
	GroupByOptimized  bool `default:"true" yaml:"group_by_optimized" json:"group_by_optimized,omitempty"`
	SortByOptimized   bool `default:"true" yaml:"sort_by_optimized" json:"sort_by_optimized,omitempty"`
	LeftJoinOptimized bool `default:"true" yaml:"left_join_optimized" json:"left_join_optimized,omitempty"`
}

// LogSectionConfig mirrors logger.LogConfig in ini-tag form so a single
// ini file can configure both the planner and its logger.
type LogSectionConfig struct {
	Level     string `default:"info" yaml:"level" json:"level,omitempty"`
	InfoPath  string `default:"" yaml:"info_path" json:"info_path,omitempty"`
	ErrorPath string `default:"" yaml:"error_path" json:"error_path,omitempty"`
}

// NewCompilerConfig returns a CompilerConfig with every default applied,
// equivalent to loading an empty ini file.
func NewCompilerConfig() *CompilerConfig {
	return &CompilerConfig{
		Raw:         ini.Empty(),
		RequestMode: false,
		FixedPoint:  false,
		MaxRounds:   4,

		FixedPointTimeout:         "5s",
		FixedPointTimeoutDuration: 5 * time.Second,
		Optimizer: OptimizerConfig{
			GroupByOptimized:  true,
			SortByOptimized:   true,
			LeftJoinOptimized: true,
		},
		Log: LogSectionConfig{Level: "info"},
	}
}

// Load reads args.ConfigPath as an ini file and populates cfg from its
// [planner], [optimizer], and [log] sections, falling back to the
// CompilerConfig defaults for anything the file omits.
func (cfg *CompilerConfig) Load(args *CommandLineArgs) (*CompilerConfig, error) {
	setConfigPath(args)
	if _, err := os.Stat(ConfigPath); os.IsNotExist(err) {
		return cfg, nil
	}

	parsed, err := ini.Load(ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", ConfigPath, err)
	}
	cfg.Raw = parsed

	planner := parsed.Section("planner")
	cfg.DB = planner.Key("db").MustString(cfg.DB)
	cfg.RequestMode = planner.Key("request_mode").MustBool(cfg.RequestMode)
	cfg.FixedPoint = planner.Key("fixed_point").MustBool(cfg.FixedPoint)
	cfg.MaxRounds = planner.Key("max_rounds").MustInt(cfg.MaxRounds)
	cfg.FixedPointTimeout = planner.Key("fixed_point_timeout").MustString(cfg.FixedPointTimeout)
	if cfg.FixedPointTimeout != "" {
		d, err := time.ParseDuration(cfg.FixedPointTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing fixed_point_timeout %q: %w", cfg.FixedPointTimeout, err)
		}
		cfg.FixedPointTimeoutDuration = d
	}

	optimizer := parsed.Section("optimizer")
	cfg.Optimizer.GroupByOptimized = optimizer.Key("group_by_optimized").MustBool(cfg.Optimizer.GroupByOptimized)
	cfg.Optimizer.SortByOptimized = optimizer.Key("sort_by_optimized").MustBool(cfg.Optimizer.SortByOptimized)
	cfg.Optimizer.LeftJoinOptimized = optimizer.Key("left_join_optimized").MustBool(cfg.Optimizer.LeftJoinOptimized)

	log := parsed.Section("log")
	cfg.Log.Level = log.Key("level").MustString(cfg.Log.Level)
	cfg.Log.InfoPath = log.Key("info_path").MustString(cfg.Log.InfoPath)
	cfg.Log.ErrorPath = log.Key("error_path").MustString(cfg.Log.ErrorPath)

	return cfg, nil
}

func setConfigPath(args *CommandLineArgs) {
	if args != nil && args.ConfigPath != "" {
		ConfigPath = args.ConfigPath
		return
	}
	ConfigPath = "planner.ini"
}
