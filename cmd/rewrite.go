package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codebinder/compiler"
	"codebinder/errors"
)

type rewriteFlags struct {
	target string
	units  []string
}

func newRewriteCmd(o *options) *cobra.Command {
	f := &rewriteFlags{}
	cmd := &cobra.Command{
		Use:   "rewrite <input.json|dir>...",
		Short: "Print units after the rewrites a target needs",
		Long: `Validate and rewrite units for a target, then print the result as C#.
By-reference arguments show up as boxes and trampolines, local functions
as closures, exactly as the target's emitter receives them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			paths, err := inputPaths(args)
			if err != nil {
				return err
			}
			files, err := loadInputs(paths)
			if err != nil {
				return err
			}
			lower, err := newTarget(f.target, cfg)
			if err != nil {
				return err
			}
			printer, err := compiler.NewTarget("csharp", compiler.TargetOptions{})
			if err != nil {
				return err
			}

			conv := compiler.NewConverter(files, nil, compiler.ConverterOptions{})
			units := f.units
			if len(units) == 0 {
				for _, root := range conv.Forest().Roots() {
					units = append(units, root.QualifiedName)
				}
			}
			w := cmd.OutOrStdout()
			rep := newReporter(w)
			for _, unit := range units {
				text, diags, err := conv.Preview(lower, printer, unit)
				if err != nil {
					if diags == nil {
						return err
					}
					rep.unit(&compiler.UnitResult{Unit: unit, Target: lower.Name(), Diagnostics: diags,
						Status: compiler.UnitRejected, Err: err}, nil)
					continue
				}
				fmt.Fprintf(w, "// %s (%s)\n%s\n", unit, lower.Name(), text)
			}
			if n := rep.notConverted(); n > 0 {
				return errors.Mark(errors.Newf("%d unit(s) rejected", n), errors.ErrUnitRejected)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.target, "target", "t", "java", "Target whose rewrites to apply")
	cmd.Flags().StringSliceVarP(&f.units, "unit", "u", nil, "Rewrite only these types (default: every top-level type)")
	return cmd
}
