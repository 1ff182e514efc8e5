package compiler

import (
	"strings"

	"codebinder/errors"
)

// Capability is an optional feature a target may support.
type Capability uint

const (
	PassByRef Capability = 1 << iota
	Delegates
	Iterators
	GarbageCollection
	InstanceFinalizers
	ExplicitInterfaceImplementation
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{PassByRef, "PassByRef"},
	{Delegates, "Delegates"},
	{Iterators, "Iterators"},
	{GarbageCollection, "GarbageCollection"},
	{InstanceFinalizers, "InstanceFinalizers"},
	{ExplicitInterfaceImplementation, "ExplicitInterfaceImplementation"},
}

func (c Capability) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if c&cn.c != 0 {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// AllCapabilities lists every capability in a stable order.
func AllCapabilities() []Capability {
	out := make([]Capability, len(capabilityNames))
	for i, cn := range capabilityNames {
		out[i] = cn.c
	}
	return out
}

// ParseCapability accepts a capability name, case-insensitively.
func ParseCapability(s string) (Capability, error) {
	for _, cn := range capabilityNames {
		if strings.EqualFold(cn.name, s) {
			return cn.c, nil
		}
	}
	return 0, errors.WithHintf(errors.Newf("unknown capability %q", s),
		"valid capabilities: %s", Capability(^uint(0)))
}

// ConstructorPolicy restricts how many constructors a type may declare
// without the overload annotation.
type ConstructorPolicy struct {
	SingleRegular bool
	Annotation    string
}

// DefaultConstructorAnnotation is the attribute that marks an additional
// overloaded constructor.
const DefaultConstructorAnnotation = "OverloadedConstructor"

// CapabilityProfile is the immutable feature set of a target for one
// conversion run.
type CapabilityProfile struct {
	caps                 Capability
	CheckMethodOverloads bool
	Constructors         ConstructorPolicy
	// FinalizerInterface lets a type opt in to finalizers on targets without
	// InstanceFinalizers by implementing the named interface.
	FinalizerInterface string
}

// NewProfile returns a profile with the given capabilities, overload
// checking enabled and at most one constructor without the default
// annotation.
func NewProfile(caps ...Capability) CapabilityProfile {
	p := CapabilityProfile{
		CheckMethodOverloads: true,
		Constructors:         ConstructorPolicy{SingleRegular: true, Annotation: DefaultConstructorAnnotation},
	}
	for _, c := range caps {
		p.caps |= c
	}
	return p
}

func (p CapabilityProfile) Has(c Capability) bool { return p.caps&c == c }

func (p CapabilityProfile) With(caps ...Capability) CapabilityProfile {
	for _, c := range caps {
		p.caps |= c
	}
	return p
}

func (p CapabilityProfile) Without(caps ...Capability) CapabilityProfile {
	for _, c := range caps {
		p.caps &^= c
	}
	return p
}

// Capabilities returns the set capabilities in a stable order.
func (p CapabilityProfile) Capabilities() []Capability {
	var out []Capability
	for _, c := range AllCapabilities() {
		if p.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (p CapabilityProfile) String() string { return p.caps.String() }
