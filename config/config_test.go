package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/compiler"
	"codebinder/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "java.yaml", "Demo.Program.Shutdown: exit\nstring.Length: length()\n")
	writeFile(t, dir, "java-extra.yaml", "string.Length: size()\n")
	path := writeFile(t, dir, FileName, `
workers = 4
output_dir = "build"

[targets.java]
enable = ["Iterators"]
disable = ["InstanceFinalizers"]
methods = "snake_case"
replacements = ["java.yaml", "java-extra.yaml"]
check_overloads = false

[targets.java.constructors]
single_regular = false
annotation = "Ctor"

[targets.ts]
finalizer_interface = "Disposable"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "build", cfg.OutputDir)
	assert.Equal(t, dir, cfg.Dir())

	opts, err := cfg.TargetOptions("java")
	require.NoError(t, err)
	assert.Equal(t, []compiler.Capability{compiler.Iterators}, opts.Enable)
	assert.Equal(t, []compiler.Capability{compiler.InstanceFinalizers}, opts.Disable)
	require.NotNil(t, opts.Methods)
	assert.Equal(t, compiler.SnakeCase, *opts.Methods)
	assert.Nil(t, opts.Properties)
	require.NotNil(t, opts.CheckOverloads)
	assert.False(t, *opts.CheckOverloads)
	require.NotNil(t, opts.Constructors)
	assert.Equal(t, compiler.ConstructorPolicy{SingleRegular: false, Annotation: "Ctor"}, *opts.Constructors)

	r, ok := opts.Replacements.Lookup("string", "Length")
	require.True(t, ok)
	assert.Equal(t, "size()", r.Text, "later files override earlier ones")
	_, ok = opts.Replacements.Lookup("Demo.Program", "Shutdown")
	assert.True(t, ok)

	em, err := compiler.NewTarget("java", opts)
	require.NoError(t, err)
	assert.True(t, em.DefaultProfile().Has(compiler.Iterators))
	assert.False(t, em.DefaultProfile().Has(compiler.InstanceFinalizers))

	// aliases resolve on both sides
	ts, err := cfg.TargetOptions("typescript")
	require.NoError(t, err)
	assert.Equal(t, "Disposable", ts.FinalizerInterface)
	assert.Nil(t, ts.Constructors)

	none, err := cfg.TargetOptions("clang")
	require.NoError(t, err)
	assert.Empty(t, none.Enable)
	assert.Equal(t, 0, none.Replacements.Len())

	_, err = cfg.TargetOptions("cobol")
	assert.True(t, errors.Is(err, errors.ErrUnknownTarget))
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), FileName, "")
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadFromFileEnvOverride(t *testing.T) {
	t.Setenv("CODEBINDER_WORKERS", "7")
	path := writeFile(t, t.TempDir(), FileName, "workers = 2\n")
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"defaults", *Default(), ""},
		{"negative workers", Config{Workers: -1, OutputDir: "out"}, "workers must be >= 0, got -1"},
		{"empty output", Config{}, "output_dir cannot be empty"},
		{"unknown target", Config{OutputDir: "out", Targets: map[string]TargetConfig{"cobol": {}}}, "targets.cobol"},
		{"alias clash", Config{OutputDir: "out", Targets: map[string]TargetConfig{"ts": {}, "typescript": {}}}, "both configure typescript"},
		{"bad capability", Config{OutputDir: "out", Targets: map[string]TargetConfig{"java": {Enable: []string{"Teleport"}}}}, "targets.java.enable"},
		{"bad casing", Config{OutputDir: "out", Targets: map[string]TargetConfig{"java": {Methods: "kebab"}}}, `unknown casing "kebab"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.name != "unknown target" {
				assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", FileName)
	require.NoError(t, WriteDefault(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# codebinder configuration")
	assert.Contains(t, string(data), `output_dir = "out"`)
	for _, name := range compiler.TargetNames() {
		assert.Contains(t, string(data), "[targets."+name+"]")
	}

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)

	err = WriteDefault(path, false)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "--force")
	assert.NoError(t, WriteDefault(path, true))
}

func TestLoadReplacementsErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadReplacements(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "- a\n- b\n")
	_, err = LoadReplacements(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
