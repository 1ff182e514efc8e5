package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/errors"
)

func TestTargetNamesAndAliases(t *testing.T) {
	assert.Equal(t, []string{"clang", "csharp", "java", "javascript", "typescript"}, TargetNames())

	for alias, name := range map[string]string{"ts": "typescript", "JS": "javascript", " c ": "clang", "cs": "csharp", "Java": "java"} {
		em, err := NewTarget(alias, TargetOptions{})
		require.NoError(t, err, alias)
		assert.Equal(t, name, em.Name())
	}
}

func TestUnknownTarget(t *testing.T) {
	_, err := NewTarget("cobol", TargetOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownTarget))
	assert.Contains(t, errors.FlattenHints(err), "registered targets: clang, csharp, java, javascript, typescript")
}

func TestTargetOptionsDoNotLeak(t *testing.T) {
	off := false
	em, err := NewTarget("typescript", TargetOptions{
		Enable:         []Capability{PassByRef},
		Disable:        []Capability{Iterators},
		Methods:        func() *Casing { c := SnakeCase; return &c }(),
		CheckOverloads: &off,
		Constructors:   &ConstructorPolicy{SingleRegular: true, Annotation: "Ctor"},
		Replacements:   NewReplacementTable(map[string]string{"Demo.X.Y": "z"}),
	})
	require.NoError(t, err)
	p := em.DefaultProfile()
	assert.True(t, p.Has(PassByRef))
	assert.False(t, p.Has(Iterators))
	assert.False(t, p.CheckMethodOverloads)
	assert.Equal(t, "Ctor", p.Constructors.Annotation)
	assert.Equal(t, SnakeCase, em.Naming().Methods)
	_, ok := em.Naming().Replacements.Lookup("Demo.X", "Y")
	assert.True(t, ok)

	fresh := target(t, "typescript")
	assert.False(t, fresh.DefaultProfile().Has(PassByRef))
	assert.True(t, fresh.DefaultProfile().Has(Iterators))
	assert.True(t, fresh.DefaultProfile().CheckMethodOverloads)
	assert.Equal(t, LowerCamel, fresh.Naming().Methods)
	assert.Equal(t, "IDisposable", fresh.DefaultProfile().FinalizerInterface)
}

func TestTargetProfiles(t *testing.T) {
	tests := []struct {
		target string
		has    []Capability
		lacks  []Capability
	}{
		{"csharp", []Capability{PassByRef, Delegates, Iterators, GarbageCollection, InstanceFinalizers}, nil},
		{"java", []Capability{Delegates, GarbageCollection, InstanceFinalizers}, []Capability{PassByRef, Iterators}},
		{"typescript", []Capability{Delegates, Iterators, GarbageCollection}, []Capability{PassByRef, InstanceFinalizers}},
		{"clang", []Capability{PassByRef, Delegates}, []Capability{GarbageCollection, Iterators}},
	}
	for _, tt := range tests {
		p := target(t, tt.target).DefaultProfile()
		for _, c := range tt.has {
			assert.True(t, p.Has(c), "%s has %s", tt.target, c)
		}
		for _, c := range tt.lacks {
			assert.False(t, p.Has(c), "%s lacks %s", tt.target, c)
		}
	}
}

func TestCapabilityParsing(t *testing.T) {
	for _, c := range AllCapabilities() {
		got, err := ParseCapability(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseCapability("passbyref")
	require.NoError(t, err)
	assert.Equal(t, PassByRef, got)

	_, err = ParseCapability("Teleport")
	require.Error(t, err)

	p := NewProfile(Delegates, Iterators)
	assert.Equal(t, "Delegates|Iterators", p.String())
	assert.Equal(t, []Capability{Delegates}, p.Without(Iterators).Capabilities())
	assert.True(t, p.With(PassByRef).Has(PassByRef|Delegates))
	assert.False(t, p.Has(PassByRef))
	assert.Equal(t, "none", Capability(0).String())
}

func TestArtifactNames(t *testing.T) {
	c := newConverter(t, program(class("Program", methodF1)), ConverterOptions{})
	root := c.Forest().Lookup("Demo.Program")
	require.NotNil(t, root)

	assert.Equal(t, "demo/Program.java", ArtifactName(target(t, "java"), root))
	assert.Equal(t, "Program.ts", ArtifactName(target(t, "ts"), root))
	assert.Equal(t, "Program.h", ArtifactName(target(t, "c"), root))
	assert.Equal(t, "Program.cs", ArtifactName(target(t, "cs"), root))
}
