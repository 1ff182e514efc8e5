package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"codebinder/compiler"
	"codebinder/errors"
)

type checkFlags struct {
	targets []string
	units   []string
}

func newCheckCmd(o *options) *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check <input.json|dir>...",
		Short: "Validate syntax documents without writing artifacts",
		Long: `Bind and validate every unit for the selected targets and report all
diagnostics. Nothing is written. The command fails if any unit is rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			targets, err := targetList(f.targets)
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

			w := cmd.OutOrStdout()
			conv := compiler.NewConverter(files, nil, compiler.ConverterOptions{Units: f.units})
			rep := newReporter(w)
			table := pterm.TableData{{"Target", "Unit", "Status", "Errors", "Warnings"}}
			for _, name := range targets {
				em, err := newTarget(name, cfg)
				if err != nil {
					return err
				}
				results, err := conv.Check(cmd.Context(), em)
				if err != nil {
					return err
				}
				for _, res := range results {
					if res.Status != compiler.UnitConverted {
						rep.unit(res, nil)
					} else {
						rep.converted++
					}
					errs := len(res.Diagnostics.Errors())
					table = append(table, []string{em.Name(), res.Unit, checkStatus(res),
						strconv.Itoa(errs), strconv.Itoa(res.Diagnostics.Len() - errs)})
				}
			}
			out, err := pterm.DefaultTable.WithHasHeader().WithData(table).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(w, out)
			if n := rep.notConverted(); n > 0 {
				return errors.Mark(errors.Newf("%d unit(s) rejected", n), errors.ErrUnitRejected)
			}
			fmt.Fprint(w, pterm.Success.Sprintln("all units pass"))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&f.targets, "target", "t", []string{"all"}, "Targets to check against (comma-separated, or all)")
	cmd.Flags().StringSliceVarP(&f.units, "unit", "u", nil, "Check only these top-level types (qualified names)")
	return cmd
}

func checkStatus(res *compiler.UnitResult) string {
	if res.Status == compiler.UnitConverted {
		return "ok"
	}
	return res.Status.String()
}
