package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"codebinder/compiler"
)

// reporter prints unit outcomes.
type reporter struct {
	w io.Writer

	converted int
	rejected  int
	failed    int
}

func newReporter(w io.Writer) *reporter { return &reporter{w: w} }

// unit prints one result. written lists the artifact paths of a converted
// unit; check runs pass none.
func (r *reporter) unit(res *compiler.UnitResult, written []string) {
	switch res.Status {
	case compiler.UnitConverted:
		r.converted++
		line := fmt.Sprintf("%s %s", res.Target, res.Unit)
		if len(written) > 0 {
			line += " -> " + strings.Join(written, ", ")
		}
		fmt.Fprint(r.w, pterm.Success.Sprintln(line))
	case compiler.UnitRejected:
		r.rejected++
		fmt.Fprint(r.w, pterm.Error.Sprintfln("%s %s rejected", res.Target, res.Unit))
	default:
		r.failed++
		fmt.Fprint(r.w, pterm.Error.Sprintfln("%s %s failed", res.Target, res.Unit))
	}
	for _, d := range res.Diagnostics.All() {
		if d.Severity == compiler.SeverityWarning {
			fmt.Fprint(r.w, pterm.Warning.Sprintln("  "+d.String()))
			continue
		}
		fmt.Fprintf(r.w, "  %s\n", d)
	}
}

// notConverted counts the units that produced no artifacts.
func (r *reporter) notConverted() int { return r.rejected + r.failed }

func (r *reporter) summary() {
	fmt.Fprint(r.w, pterm.Info.Sprintfln("%d converted, %d rejected, %d failed", r.converted, r.rejected, r.failed))
}
