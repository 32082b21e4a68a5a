// Package config loads engine settings from a YAML file, AUTOTUNE_*
// environment variables and defaults.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/autotune/engine"
	"github.com/YuminosukeSato/autotune/importance"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
	"github.com/YuminosukeSato/autotune/selection"
	"github.com/YuminosukeSato/autotune/tuning"
)

// EnvPrefix prefixes every environment override, e.g. AUTOTUNE_SEED or
// AUTOTUNE_IMPORTANCE_TREES.
const EnvPrefix = "AUTOTUNE"

// Importance configures the feature importance aggregator.
type Importance struct {
	Trees     int `mapstructure:"trees" yaml:"trees"`
	MaxDepth  int `mapstructure:"max_depth" yaml:"max_depth"`
	Neighbors int `mapstructure:"neighbors" yaml:"neighbors"`
}

// Recommend configures the variable selection recommender.
type Recommend struct {
	MaxFeatures int `mapstructure:"max_features" yaml:"max_features"`
}

// Config is the effective engine configuration.
type Config struct {
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	Seed       int64  `mapstructure:"seed" yaml:"seed"`
	Strategy   string `mapstructure:"strategy" yaml:"strategy"`
	Folds      int    `mapstructure:"folds" yaml:"folds"`
	Candidates int    `mapstructure:"candidates" yaml:"candidates"`
	MaxWorkers int    `mapstructure:"max_workers" yaml:"max_workers"`
	// Families lists model families by name; empty means every family that
	// supports the detected problem type.
	Families         []string   `mapstructure:"families" yaml:"families"`
	ParallelFamilies bool       `mapstructure:"parallel_families" yaml:"parallel_families"`
	Importance       Importance `mapstructure:"importance" yaml:"importance"`
	Recommend        Recommend  `mapstructure:"recommend" yaml:"recommend"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("seed", tuning.DefaultSeed)
	v.SetDefault("strategy", string(tuning.StrategyFast))
	v.SetDefault("folds", 0)
	v.SetDefault("candidates", 0)
	v.SetDefault("max_workers", 0)
	v.SetDefault("families", []string{})
	v.SetDefault("parallel_families", false)
	v.SetDefault("importance.trees", importance.DefaultTrees)
	v.SetDefault("importance.max_depth", importance.DefaultMaxDepth)
	v.SetDefault("importance.neighbors", importance.DefaultNeighbors)
	v.SetDefault("recommend.max_features", selection.DefaultMaxFeatures)
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		panic(err)
	}
	return &c
}

// Load reads cfgFile when it is not empty and applies environment
// overrides. Precedence: env > config file > defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c as YAML to path.
func Save(c *Config, path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := tuning.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if _, err := c.FamilyList(); err != nil {
		return err
	}
	checks := []struct {
		name  string
		value int
	}{
		{"folds", c.Folds},
		{"candidates", c.Candidates},
		{"max_workers", c.MaxWorkers},
		{"importance.trees", c.Importance.Trees},
		{"importance.max_depth", c.Importance.MaxDepth},
		{"importance.neighbors", c.Importance.Neighbors},
		{"recommend.max_features", c.Recommend.MaxFeatures},
	}
	for _, chk := range checks {
		if chk.value < 0 {
			return errors.NewValidationError(chk.name, "must not be negative", chk.value)
		}
	}
	if c.Folds == 1 {
		return errors.NewValidationError("folds", "must be 0 or at least 2", c.Folds)
	}
	return nil
}

// FamilyList parses Families.
func (c *Config) FamilyList() ([]tuning.Family, error) {
	out := make([]tuning.Family, 0, len(c.Families))
	for _, name := range c.Families {
		f, err := tuning.ParseFamily(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// EngineOptions converts c into engine options.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithSeed(c.Seed),
		engine.WithWorkers(c.MaxWorkers),
		engine.WithMaxFeatures(c.Recommend.MaxFeatures),
		engine.WithImportance(c.Importance.Trees, c.Importance.MaxDepth, c.Importance.Neighbors),
		engine.WithParallelFamilies(c.ParallelFamilies),
	}
}

// Request builds an engine request for target and features.
func (c *Config) Request(target string, features []string) (engine.Request, error) {
	strategy, err := tuning.ParseStrategy(c.Strategy)
	if err != nil {
		return engine.Request{}, err
	}
	families, err := c.FamilyList()
	if err != nil {
		return engine.Request{}, err
	}
	return engine.Request{
		Target:     target,
		Features:   features,
		Families:   families,
		Strategy:   strategy,
		Folds:      c.Folds,
		Candidates: c.Candidates,
	}, nil
}
