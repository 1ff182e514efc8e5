package compiler

import (
	"sort"
	"strings"

	"codebinder/errors"
)

var targetFactories = map[string]func() Emitter{
	"java":       func() Emitter { return NewJavaEmitter() },
	"typescript": func() Emitter { return NewTypeScriptEmitter() },
	"javascript": func() Emitter { return NewJavaScriptEmitter() },
	"clang":      func() Emitter { return NewClangEmitter() },
	"csharp":     func() Emitter { return NewCSharpEmitter() },
}

var targetAliases = map[string]string{
	"ts": "typescript",
	"js": "javascript",
	"c":  "clang",
	"cs": "csharp",
}

// TargetNames lists the registered targets in sorted order.
func TargetNames() []string {
	names := make([]string, 0, len(targetFactories))
	for name := range targetFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TargetOptions adjust a registered target for one run. Zero values keep
// the target's defaults.
type TargetOptions struct {
	Enable  []Capability
	Disable []Capability
	// Casing overrides; nil keeps the built-in policy.
	Methods    *Casing
	Properties *Casing
	Types      *Casing
	// Replacements are merged over the built-in table.
	Replacements ReplacementTable
	// CheckOverloads overrides CheckMethodOverloads when set.
	CheckOverloads     *bool
	Constructors       *ConstructorPolicy
	FinalizerInterface string
}

// configurable is implemented by every emitter built on BaseEmitter.
type configurable interface {
	base() *BaseEmitter
}

func (e *BaseEmitter) base() *BaseEmitter { return e }

// NewTarget builds a fresh emitter for the named target. Emitters hold
// settings only, but every run gets its own so options never leak.
func NewTarget(name string, opts TargetOptions) (Emitter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := targetAliases[key]; ok {
		key = alias
	}
	factory, ok := targetFactories[key]
	if !ok {
		return nil, errors.WithHintf(errors.Wrapf(errors.ErrUnknownTarget, "%q", name),
			"registered targets: %s", strings.Join(TargetNames(), ", "))
	}
	em := factory()
	c, ok := em.(configurable)
	if !ok {
		return em, nil
	}
	e := c.base()
	e.profile = e.profile.With(opts.Enable...).Without(opts.Disable...)
	if opts.CheckOverloads != nil {
		e.profile.CheckMethodOverloads = *opts.CheckOverloads
	}
	if opts.Constructors != nil {
		e.profile.Constructors = *opts.Constructors
	}
	if opts.FinalizerInterface != "" {
		e.profile.FinalizerInterface = opts.FinalizerInterface
	}
	if opts.Methods != nil {
		e.naming.Methods = *opts.Methods
	}
	if opts.Properties != nil {
		e.naming.Properties = *opts.Properties
	}
	if opts.Types != nil {
		e.naming.Types = *opts.Types
	}
	e.naming.Replacements = e.naming.Replacements.Merge(opts.Replacements)
	return em, nil
}
