// Package config holds the settings of the probebench driver.
package config

import (
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"github.com/rip-create-your-account/probetable"
	"github.com/rip-create-your-account/probetable/internal/gen"
)

// Config is the benchmark configuration.
type Config struct {
	// Numbers of keys to test. Asked for on stdin when empty.
	Sizes []int `toml:"sizes" json:"sizes"`
	// Each size M runs against tables of NextPrime(M/lf) slots.
	LoadFactors []float64 `toml:"load-factors" json:"load-factors"`
	// Share of searches that look for absent keys.
	MissRate float64 `toml:"miss-rate" json:"miss-rate"`
	// Measured runs per table, timings are averaged.
	Runs int `toml:"runs" json:"runs"`
	// 0 picks a seed from the clock.
	Seed       uint64   `toml:"seed" json:"seed"`
	Patterns   []string `toml:"patterns" json:"patterns"`
	Strategies []string `toml:"strategies" json:"strategies"`
	OutputDir  string   `toml:"output-dir" json:"output-dir"`
	// Serve /metrics on this address when set, e.g. ":9191".
	MetricsAddr string `toml:"metrics-addr" json:"metrics-addr"`
	Log         Log    `toml:"log" json:"log"`
}

// Log is the logging section.
type Log struct {
	// debug, info, warn or error
	Level string `toml:"level" json:"level"`
	// console or json
	Format string `toml:"format" json:"format"`
}

var defaultConf = Config{
	LoadFactors: []float64{0.5, 0.9},
	MissRate:    0.2,
	Runs:        2,
	Patterns:    []string{"RANDOM", "SEQUENTIAL", "CLUSTERED"},
	Strategies:  []string{"double", "linear", "quadratic"},
	OutputDir:   ".",
	Log: Log{
		Level:  "info",
		Format: "console",
	},
}

// NewConfig returns a copy of the default configuration.
func NewConfig() *Config {
	conf := defaultConf
	conf.LoadFactors = append([]float64(nil), defaultConf.LoadFactors...)
	conf.Patterns = append([]string(nil), defaultConf.Patterns...)
	conf.Strategies = append([]string(nil), defaultConf.Strategies...)
	return &conf
}

// Load decodes confFile over c. Unknown keys are an error so typos don't
// silently fall back to defaults.
func (c *Config) Load(confFile string) error {
	metaData, err := toml.DecodeFile(confFile, c)
	if err != nil {
		return errors.Annotatef(err, "load config %s", confFile)
	}
	if undecoded := metaData.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, item := range undecoded {
			keys = append(keys, item.String())
		}
		return errors.Errorf("config file %s contains invalid configuration options: %s",
			confFile, strings.Join(keys, ", "))
	}
	return nil
}

// Valid checks c. Empty Sizes are allowed, the driver prompts for them.
func (c *Config) Valid() error {
	for _, s := range c.Sizes {
		if s <= 0 {
			return errors.Errorf("invalid size %d", s)
		}
	}
	if len(c.LoadFactors) == 0 {
		return errors.New("no load factors")
	}
	for _, lf := range c.LoadFactors {
		if lf <= 0 || lf > 1 {
			return errors.Errorf("load factor %v out of (0, 1]", lf)
		}
	}
	if c.MissRate < 0 || c.MissRate > 1 {
		return errors.Errorf("miss rate %v out of [0, 1]", c.MissRate)
	}
	if c.Runs <= 0 {
		return errors.Errorf("invalid runs %d", c.Runs)
	}
	if _, err := c.ParsedPatterns(); err != nil {
		return errors.Trace(err)
	}
	if _, err := c.ParsedStrategies(); err != nil {
		return errors.Trace(err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) ParsedPatterns() ([]gen.Pattern, error) {
	if len(c.Patterns) == 0 {
		return nil, errors.New("no patterns")
	}
	patterns := make([]gen.Pattern, 0, len(c.Patterns))
	for _, name := range c.Patterns {
		p, err := gen.ParsePattern(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func (c *Config) ParsedStrategies() ([]probetable.Strategy, error) {
	if len(c.Strategies) == 0 {
		return nil, errors.New("no strategies")
	}
	strategies := make([]probetable.Strategy, 0, len(c.Strategies))
	for _, name := range c.Strategies {
		s, err := probetable.ParseStrategy(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

// ParseSizes reads a whitespace separated list of sizes such as "1000 5000".
func ParseSizes(line string) ([]int, error) {
	fields := strings.Fields(line)
	sizes := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Annotatef(err, "size %q", f)
		}
		if n <= 0 {
			return nil, errors.Errorf("invalid size %d", n)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
