package compiler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

// Each testdata archive holds an input.json document and expectation files
// named <target>.contains (lines every converted artifact set must contain)
// or <target>.rejects (lines some diagnostic message must contain).
func TestGoldenArchives(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			require.NoError(t, err)

			var input string
			for _, f := range ar.Files {
				if f.Name == "input.json" {
					input = string(f.Data)
				}
			}
			require.NotEmpty(t, input, "archive has no input.json")

			for _, f := range ar.Files {
				targetName, kind, ok := strings.Cut(f.Name, ".")
				if !ok || f.Name == "input.json" {
					continue
				}
				t.Run(f.Name, func(t *testing.T) {
					c := newConverter(t, input, ConverterOptions{})
					results, err := c.Convert(context.Background(), target(t, targetName))
					require.NoError(t, err)

					var artifacts, diags strings.Builder
					for _, r := range results {
						for _, a := range r.Artifacts {
							artifacts.WriteString(a.Text)
						}
						for _, m := range messages(r.Diagnostics) {
							diags.WriteString(m)
							diags.WriteByte('\n')
						}
					}
					for _, line := range strings.Split(string(f.Data), "\n") {
						line = strings.TrimSpace(line)
						if line == "" {
							continue
						}
						switch kind {
						case "contains":
							assert.Contains(t, artifacts.String(), line)
						case "rejects":
							assert.Contains(t, diags.String(), line)
						default:
							t.Fatalf("unknown expectation kind %q", kind)
						}
					}
				})
			}
		})
	}
}
