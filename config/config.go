// Package config loads codebinder.toml and turns it into target options.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"codebinder/compiler"
	"codebinder/errors"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "codebinder.toml"

// Config is the codebinder configuration.
type Config struct {
	Workers   int                     `mapstructure:"workers" toml:"workers" yaml:"workers"`          // 0 = one per CPU
	OutputDir string                  `mapstructure:"output_dir" toml:"output_dir" yaml:"output_dir"` // artifacts go to <output_dir>/<target>/
	Log       LogConfig               `mapstructure:"log" toml:"log" yaml:"log"`
	Targets   map[string]TargetConfig `mapstructure:"targets" toml:"targets" yaml:"targets"`

	// dir resolves relative replacement files; empty means the working directory
	dir string
}

// LogConfig controls logger output.
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" yaml:"json"`
}

// TargetConfig overrides the built-in settings of one target. Empty fields
// keep the built-in value.
type TargetConfig struct {
	Enable             []string          `mapstructure:"enable" toml:"enable,omitempty" yaml:"enable,omitempty"`
	Disable            []string          `mapstructure:"disable" toml:"disable,omitempty" yaml:"disable,omitempty"`
	Methods            string            `mapstructure:"methods" toml:"methods,omitempty" yaml:"methods,omitempty"`
	Properties         string            `mapstructure:"properties" toml:"properties,omitempty" yaml:"properties,omitempty"`
	Types              string            `mapstructure:"types" toml:"types,omitempty" yaml:"types,omitempty"`
	Replacements       []string          `mapstructure:"replacements" toml:"replacements,omitempty" yaml:"replacements,omitempty"` // YAML files, merged in order
	CheckOverloads     *bool             `mapstructure:"check_overloads" toml:"check_overloads,omitempty" yaml:"check_overloads,omitempty"`
	Constructors       ConstructorConfig `mapstructure:"constructors" toml:"constructors,omitempty" yaml:"constructors,omitempty"`
	FinalizerInterface string            `mapstructure:"finalizer_interface" toml:"finalizer_interface,omitempty" yaml:"finalizer_interface,omitempty"`
}

// ConstructorConfig is the overloaded-constructor policy of a target.
type ConstructorConfig struct {
	SingleRegular *bool  `mapstructure:"single_regular" toml:"single_regular,omitempty" yaml:"single_regular,omitempty"`
	Annotation    string `mapstructure:"annotation" toml:"annotation,omitempty" yaml:"annotation,omitempty"`
}

// Dir returns the directory relative replacement paths are resolved from.
func (c *Config) Dir() string { return c.dir }

// Target returns the settings for a target, accepting aliases on both sides.
func (c *Config) Target(name string) (TargetConfig, error) {
	want, err := canonical(name)
	if err != nil {
		return TargetConfig{}, err
	}
	for key, tc := range c.Targets {
		got, err := canonical(key)
		if err == nil && got == want {
			return tc, nil
		}
	}
	return TargetConfig{}, nil
}

// TargetOptions converts the settings of a target into compiler options.
func (c *Config) TargetOptions(name string) (compiler.TargetOptions, error) {
	tc, err := c.Target(name)
	if err != nil {
		return compiler.TargetOptions{}, err
	}
	var opts compiler.TargetOptions
	if opts.Enable, err = capabilities(tc.Enable); err != nil {
		return opts, err
	}
	if opts.Disable, err = capabilities(tc.Disable); err != nil {
		return opts, err
	}
	if opts.Methods, err = casing(tc.Methods); err != nil {
		return opts, err
	}
	if opts.Properties, err = casing(tc.Properties); err != nil {
		return opts, err
	}
	if opts.Types, err = casing(tc.Types); err != nil {
		return opts, err
	}
	opts.CheckOverloads = tc.CheckOverloads
	if tc.Constructors.SingleRegular != nil || tc.Constructors.Annotation != "" {
		policy := compiler.ConstructorPolicy{SingleRegular: true, Annotation: tc.Constructors.Annotation}
		if tc.Constructors.SingleRegular != nil {
			policy.SingleRegular = *tc.Constructors.SingleRegular
		}
		opts.Constructors = &policy
	}
	opts.FinalizerInterface = tc.FinalizerInterface
	if opts.Replacements, err = LoadReplacements(c.resolve(tc.Replacements)...); err != nil {
		return opts, errors.Wrapf(err, "target %s", name)
	}
	return opts, nil
}

func (c *Config) resolve(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if c.dir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(c.dir, p)
		}
		out[i] = p
	}
	return out
}

// LoadReplacements reads replacement tables from YAML files mapping
// qualified member names to target spellings:
//
//	string.Length: length
//	System.Console.WriteLine: console.log({args})
//
// Later files override earlier ones.
func LoadReplacements(paths ...string) (compiler.ReplacementTable, error) {
	var table compiler.ReplacementTable
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return table, errors.Wrapf(err, "read replacement table %s", path)
		}
		var entries map[string]string
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return table, errors.Mark(errors.Wrapf(err, "parse replacement table %s", path), errors.ErrInvalidConfig)
		}
		table = table.Merge(compiler.NewReplacementTable(entries))
	}
	return table, nil
}

func canonical(name string) (string, error) {
	em, err := compiler.NewTarget(name, compiler.TargetOptions{})
	if err != nil {
		return "", err
	}
	return em.Name(), nil
}

func capabilities(names []string) ([]compiler.Capability, error) {
	var out []compiler.Capability
	for _, n := range names {
		c, err := compiler.ParseCapability(n)
		if err != nil {
			return nil, errors.Mark(err, errors.ErrInvalidConfig)
		}
		out = append(out, c)
	}
	return out, nil
}

func casing(name string) (*compiler.Casing, error) {
	if name == "" {
		return nil, nil
	}
	c, err := compiler.ParseCasing(name)
	if err != nil {
		return nil, errors.Mark(err, errors.ErrInvalidConfig)
	}
	return &c, nil
}
