package config

import "github.com/spf13/viper"

// Default configuration values
const (
	DefaultWorkers   = 0 // one per CPU
	DefaultOutputDir = "out"
)

// SetDefaults configures default values in viper
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("log.json", false)
}

// Default returns the configuration written by config init: built-in values
// plus an empty table for every target.
func Default() *Config {
	targets := map[string]TargetConfig{}
	for _, name := range targetNames() {
		targets[name] = TargetConfig{}
	}
	return &Config{
		Workers:   DefaultWorkers,
		OutputDir: DefaultOutputDir,
		Targets:   targets,
	}
}
