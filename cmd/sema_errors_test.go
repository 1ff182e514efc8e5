package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebinder/errors"
)

// rejectionCases maps each document in testdata/rejected to the targets
// that reject it and the diagnostic they report.
var rejectionCases = map[string]map[string]string{
	"goto.json": {
		"java":       "goto statement: Goto statements are not supported.",
		"typescript": "goto statement: Goto statements are not supported.",
		"clang":      "goto statement: Goto statements are not supported.",
	},
	"yield.json": {
		"java": "yield statement requires capability Iterators",
	},
	"recursive_local.json": {
		"java": "local function Loop is recursive",
	},
	"overloads.json": {
		"typescript": "cannot be distinguished",
		"clang":      "the target has no overloading",
	},
}

// TestSemaErrors verifies that each document in testdata/rejected is
// rejected by check with the expected diagnostic.
func TestSemaErrors(t *testing.T) {
	dir := filepath.Join("testdata", "rejected")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	cfg := writeConfig(t, "")

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		t.Run(name, func(t *testing.T) {
			targets, ok := rejectionCases[name]
			require.True(t, ok, "no expectations for %s", name)
			for target, want := range targets {
				stdout, err := execute(t, "check", "--config", cfg, "-t", target, filepath.Join(dir, name))
				require.Error(t, err, "%s should reject %s", target, name)
				assert.True(t, errors.Is(err, errors.ErrUnitRejected))
				assert.Contains(t, stdout, want, target)
			}
		})
	}
}

// Native overloads and arity-distinct groups are fine where the target
// supports them.
func TestOverloadsAcceptedWithNativeOverloading(t *testing.T) {
	cfg := writeConfig(t, "")
	for _, target := range []string{"java", "csharp"} {
		_, err := execute(t, "check", "--config", cfg, "-t", target, filepath.Join("testdata", "rejected", "overloads.json"))
		assert.NoError(t, err, target)
	}
}
