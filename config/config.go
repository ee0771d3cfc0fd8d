// Package config loads OrchestratorConfig from an optional TOML file,
// falling back to code defaults: an explicit path overrides the defaults
// field by field, and no default file location is searched.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/lixenwraith/frameorc/constant"
)

// OrchestratorConfig is the tunable subset of orchestrator behavior a
// deployment may override without a code change.
type OrchestratorConfig struct {
	TargetFPS      int    `toml:"target_fps"`
	SafetyDelay    uint64 `toml:"safety_delay"`
	ThreadPoolSize int    `toml:"thread_pool_size"`
	AsyncPerTickCap int   `toml:"async_per_tick_cap"`
	MetricsAddr    string `toml:"metrics_addr"`
}

// Default returns the built-in configuration used when no file is given.
func Default() OrchestratorConfig {
	return OrchestratorConfig{
		TargetFPS:       60,
		SafetyDelay:     constant.SafetyDelay,
		ThreadPoolSize:  0, // 0 => runtime.GOMAXPROCS(0)
		AsyncPerTickCap: constant.AsyncPerTickCap,
		MetricsAddr:     ":9090",
	}
}

// Load reads an OrchestratorConfig from path, starting from Default() so
// an unset field in the file keeps its default. An empty path returns
// Default() unchanged.
func Load(path string) (OrchestratorConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, errors.Wrapf(err, "config file %q", path)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %q", path)
	}
	return cfg, nil
}
